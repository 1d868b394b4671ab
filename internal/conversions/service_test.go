package conversions

import (
	"context"
	"errors"
	"testing"
	"time"

	"cv-mapper/internal/extract/pdftest"
	"cv-mapper/resume/render/rendertest"
	"cv-mapper/resume/service"
)

type fakeConverter struct {
	result service.Result
	err    error
	calls  int
}

func (f *fakeConverter) Convert(_ context.Context, _ string, _ []byte) (service.Result, error) {
	f.calls++
	if f.err != nil {
		return service.Result{}, f.err
	}
	return f.result, nil
}

type failingRepo struct {
	*MemoryRepo
}

func (failingRepo) Create(context.Context, Conversion) error {
	return errors.New("db down")
}

func renderedDocx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	body := ""
	for _, p := range paragraphs {
		body += rendertest.Para(p)
	}
	data, err := rendertest.Docx{Body: body}.Bytes()
	if err != nil {
		t.Fatalf("build docx: %v", err)
	}
	return data
}

func fixedClock() func() time.Time {
	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(250 * time.Millisecond)
		return now
	}
}

func TestServiceConvertRecordsSuccess(t *testing.T) {
	doc := renderedDocx(t, "Ada Lovelace", "Acme | Lead")
	converter := &fakeConverter{result: service.Result{Document: doc, Experiences: 2}}
	repo := NewMemoryRepo()
	svc := &Service{Repo: repo, Converter: converter, Now: fixedClock()}

	outcome, err := svc.Convert(context.Background(), Input{FileName: "cv.pdf", Content: pdftest.Blank(3), RequestID: "req-1"})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if string(outcome.Document) != string(doc) {
		t.Fatalf("expected converter document to be returned")
	}

	stored, err := repo.GetByID(context.Background(), outcome.Conversion.ID)
	if err != nil {
		t.Fatalf("expected stored record: %v", err)
	}
	if stored.Status != StatusSucceeded || stored.FailureKind != "" {
		t.Fatalf("unexpected status %s/%s", stored.Status, stored.FailureKind)
	}
	if stored.PDFPages != 3 || stored.ExperienceCount != 2 || stored.OutputSizeBytes != int64(len(doc)) {
		t.Fatalf("unexpected record %+v", stored)
	}
	if stored.UnresolvedTokens != 0 || stored.RequestID != "req-1" || stored.SourceFileName != "cv.pdf" {
		t.Fatalf("unexpected record %+v", stored)
	}
	if stored.Duration != 250*time.Millisecond {
		t.Fatalf("unexpected duration %s", stored.Duration)
	}
}

func TestServiceConvertCountsUnresolvedTokens(t *testing.T) {
	doc := renderedDocx(t, "Ada Lovelace", "[poste] at [nom_entreprise]")
	svc := &Service{
		Repo:      NewMemoryRepo(),
		Converter: &fakeConverter{result: service.Result{Document: doc, Experiences: 1}},
	}

	outcome, err := svc.Convert(context.Background(), Input{FileName: "cv.pdf", Content: pdftest.Blank(1)})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if outcome.Conversion.UnresolvedTokens != 2 {
		t.Fatalf("expected 2 unresolved tokens, got %d", outcome.Conversion.UnresolvedTokens)
	}
}

func TestServiceConvertRejectsNonPDF(t *testing.T) {
	converter := &fakeConverter{}
	repo := NewMemoryRepo()
	svc := &Service{Repo: repo, Converter: converter}

	outcome, err := svc.Convert(context.Background(), Input{FileName: "cv.txt", Content: []byte("hello")})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if converter.calls != 0 {
		t.Fatalf("expected converter not to be called")
	}
	if outcome.Document != nil || outcome.Conversion.FailureKind != FailureValidation {
		t.Fatalf("unexpected outcome %+v", outcome.Conversion)
	}
	list, _ := repo.List(context.Background(), 10, 0)
	if len(list) != 1 || list[0].Status != StatusFailed {
		t.Fatalf("expected failed record, got %+v", list)
	}
}

func TestServiceConvertRejectsTraversalName(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo(), Converter: &fakeConverter{}}
	if _, err := svc.Convert(context.Background(), Input{FileName: "../cv.pdf", Content: pdftest.Blank(1)}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestServiceConvertClassifiesFailures(t *testing.T) {
	cases := map[string]error{
		FailureUpstream:      &service.UpstreamServiceError{Err: errors.New("503")},
		FailureParse:         &service.ParseError{Err: errors.New("bad json")},
		FailureTemplate:      &service.TemplateError{Err: errors.New("no block")},
		FailureSerialization: &service.SerializationError{Err: errors.New("zip")},
		FailureCancelled:     context.Canceled,
		FailureInternal:      errors.New("boom"),
	}
	for want, convErr := range cases {
		repo := NewMemoryRepo()
		svc := &Service{Repo: repo, Converter: &fakeConverter{err: convErr}}
		outcome, err := svc.Convert(context.Background(), Input{FileName: "cv.pdf", Content: pdftest.Blank(1)})
		if !errors.Is(err, convErr) {
			t.Fatalf("%s: expected converter error, got %v", want, err)
		}
		if outcome.Conversion.FailureKind != want || outcome.Document != nil {
			t.Fatalf("%s: unexpected outcome %+v", want, outcome.Conversion)
		}
		if _, err := repo.GetByID(context.Background(), outcome.Conversion.ID); err != nil {
			t.Fatalf("%s: expected failed record to be stored: %v", want, err)
		}
	}
}

func TestServiceConvertSurvivesAuditFailure(t *testing.T) {
	doc := renderedDocx(t, "Ada")
	svc := &Service{
		Repo:      failingRepo{NewMemoryRepo()},
		Converter: &fakeConverter{result: service.Result{Document: doc}},
	}
	outcome, err := svc.Convert(context.Background(), Input{FileName: "cv.pdf", Content: pdftest.Blank(1)})
	if err != nil {
		t.Fatalf("expected conversion to succeed, got %v", err)
	}
	if outcome.Document == nil {
		t.Fatalf("expected document")
	}
}

func TestMemoryRepoListNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := repo.Create(context.Background(), Conversion{ID: id, CreatedAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	page, err := repo.List(context.Background(), 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 || page[0].ID != "c" || page[1].ID != "b" {
		t.Fatalf("unexpected page %+v", page)
	}
	rest, _ := repo.List(context.Background(), 2, 2)
	if len(rest) != 1 || rest[0].ID != "a" {
		t.Fatalf("unexpected second page %+v", rest)
	}
	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
