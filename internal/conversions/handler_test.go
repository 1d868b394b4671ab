package conversions

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"cv-mapper/internal/extract/pdftest"
	"cv-mapper/resume/service"
)

func newTestRouter(converter Converter, maxUpload int64) (*gin.Engine, *MemoryRepo) {
	gin.SetMode(gin.TestMode)
	repo := NewMemoryRepo()
	h := NewHandler(&Service{Repo: repo, Converter: converter}, maxUpload)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))
	return r, repo
}

func uploadRequest(t *testing.T, field, name string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fileWriter, err := writer.CreateFormFile(field, name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fileWriter.Write(content); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversions", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestCreateReturnsDocxAttachment(t *testing.T) {
	doc := renderedDocx(t, "Ada Lovelace")
	router, repo := newTestRouter(&fakeConverter{result: service.Result{Document: doc, Experiences: 1}}, 0)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, uploadRequest(t, "file", "cv.pdf", pdftest.Blank(1)))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if got := resp.Header().Get("Content-Disposition"); got != `attachment; filename="cv_final.docx"` {
		t.Fatalf("unexpected Content-Disposition %q", got)
	}
	if got := resp.Header().Get("Content-Type"); got != "application/vnd.openxmlformats-officedocument.wordprocessingml.document" {
		t.Fatalf("unexpected Content-Type %q", got)
	}
	if !bytes.Equal(resp.Body.Bytes(), doc) {
		t.Fatalf("expected rendered document in body")
	}
	if resp.Header().Get("X-Experience-Count") != "1" {
		t.Fatalf("expected experience count header")
	}

	id := resp.Header().Get("X-Conversion-Id")
	if _, err := repo.GetByID(t.Context(), id); err != nil {
		t.Fatalf("expected audit record for %q: %v", id, err)
	}
}

func TestCreateMapsFailuresToErrorCodes(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{&service.UpstreamServiceError{Err: errors.New("timeout")}, http.StatusBadGateway, "upstream_error"},
		{&service.ParseError{Err: errors.New("bad json")}, http.StatusBadGateway, "parse_error"},
		{&service.TemplateError{Err: errors.New("markers")}, http.StatusInternalServerError, "template_error"},
		{&service.SerializationError{Err: errors.New("zip")}, http.StatusInternalServerError, "serialization_error"},
	}
	for _, tc := range cases {
		router, _ := newTestRouter(&fakeConverter{err: tc.err}, 0)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, uploadRequest(t, "file", "cv.pdf", pdftest.Blank(1)))

		if resp.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.code, tc.status, resp.Code)
		}
		var payload errorEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if payload.Error.Code != tc.code || payload.Error.Message != tc.err.Error() {
			t.Fatalf("unexpected error body %+v", payload.Error)
		}
		if resp.Header().Get("Content-Disposition") != "" {
			t.Fatalf("%s: no document expected on failure", tc.code)
		}
	}
}

func TestCreateValidatesUpload(t *testing.T) {
	router, _ := newTestRouter(&fakeConverter{}, 1<<20)

	cases := map[string]*http.Request{
		"missing file": uploadRequest(t, "other", "cv.pdf", pdftest.Blank(1)),
		"not a pdf":    uploadRequest(t, "file", "cv.pdf", []byte("plain text")),
		"too large":    uploadRequest(t, "file", "cv.pdf", bytes.Repeat([]byte("a"), 2<<20)),
	}
	for name, req := range cases {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, resp.Code)
		}
		var payload errorEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			t.Fatalf("%s: decode: %v", name, err)
		}
		if payload.Error.Code != "validation_error" {
			t.Fatalf("%s: unexpected code %q", name, payload.Error.Code)
		}
	}
}

func TestListAndGetConversions(t *testing.T) {
	doc := renderedDocx(t, "Ada")
	router, _ := newTestRouter(&fakeConverter{result: service.Result{Document: doc, Experiences: 2}}, 0)

	upload := httptest.NewRecorder()
	router.ServeHTTP(upload, uploadRequest(t, "file", "cv.pdf", pdftest.Blank(2)))
	id := upload.Header().Get("X-Conversion-Id")

	listResp := httptest.NewRecorder()
	router.ServeHTTP(listResp, httptest.NewRequest(http.MethodGet, "/api/v1/conversions?limit=5", nil))
	if listResp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", listResp.Code)
	}
	var list []ConversionResponse
	if err := json.NewDecoder(listResp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].ConversionID != id || list[0].PDFPages != 2 || list[0].Status != StatusSucceeded {
		t.Fatalf("unexpected list %+v", list)
	}

	getResp := httptest.NewRecorder()
	router.ServeHTTP(getResp, httptest.NewRequest(http.MethodGet, "/api/v1/conversions/"+id, nil))
	if getResp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", getResp.Code)
	}
	var got ConversionResponse
	if err := json.NewDecoder(getResp.Body).Decode(&got); err != nil {
		t.Fatalf("decode get: %v", err)
	}
	if got.ExperienceCount != 2 || got.SourceFileName != "cv.pdf" {
		t.Fatalf("unexpected conversion %+v", got)
	}

	missing := httptest.NewRecorder()
	router.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/api/v1/conversions/nope", nil))
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.Code)
	}
}
