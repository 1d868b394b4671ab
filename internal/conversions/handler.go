package conversions

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cv-mapper/internal/extract"
	"cv-mapper/internal/shared/server/middleware"
	"cv-mapper/internal/shared/server/respond"
	"cv-mapper/resume/service"
)

const defaultMaxUploadSize = 10 << 20 // 10MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc           *Service
	MaxUploadSize int64
}

// NewHandler constructs a Handler. maxUploadSize <= 0 means 10MB.
func NewHandler(svc *Service, maxUploadSize int64) *Handler {
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxUploadSize
	}
	return &Handler{Svc: svc, MaxUploadSize: maxUploadSize}
}

// RegisterRoutes attaches conversion routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/conversions", h.create)
	rg.GET("/conversions", h.list)
	rg.GET("/conversions/:id", h.get)
}

func (h *Handler) create(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(c, http.StatusBadRequest, FailureValidation, fmt.Sprintf("file exceeds %d MB", h.MaxUploadSize>>20))
			return
		}
		h.fail(c, http.StatusBadRequest, FailureValidation, "file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.fail(c, http.StatusBadRequest, FailureValidation, "unable to read file")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.fail(c, http.StatusBadRequest, FailureValidation, "unable to read file")
		return
	}

	outcome, err := h.Svc.Convert(c.Request.Context(), Input{
		FileName:  fileHeader.Filename,
		Content:   content,
		RequestID: middleware.RequestIDFromContext(c),
	})
	if outcome.Conversion.ID != "" {
		c.Set(middleware.ConversionIDKey, outcome.Conversion.ID)
		c.Header("X-Conversion-Id", outcome.Conversion.ID)
	}
	if err != nil {
		kind := FailureKind(err)
		h.fail(c, statusFor(kind), kind, messageFor(kind, err))
		return
	}

	c.Header("X-Experience-Count", strconv.Itoa(outcome.Conversion.ExperienceCount))
	c.Header("X-Unresolved-Tokens", strconv.Itoa(outcome.Conversion.UnresolvedTokens))
	respond.Attachment(c, service.OutputFileName, extract.MimeDOCX, outcome.Document)
}

func (h *Handler) get(c *gin.Context) {
	conv, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "conversion not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch conversion", nil)
		}
		return
	}
	respond.OK(c, toResponse(conv))
}

func (h *Handler) list(c *gin.Context) {
	limit := 20
	offset := 0

	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	if limit > 50 {
		limit = 50
	}

	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	convs, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list conversions", nil)
		return
	}

	resp := make([]ConversionResponse, 0, len(convs))
	for _, conv := range convs {
		resp = append(resp, toResponse(conv))
	}
	respond.OK(c, resp)
}

func (h *Handler) fail(c *gin.Context, status int, kind, message string) {
	c.Set(middleware.FailureKindKey, kind)
	respond.Error(c, status, kind, message, nil)
}

func statusFor(kind string) int {
	switch kind {
	case FailureValidation:
		return http.StatusBadRequest
	case FailureUpstream, FailureParse:
		return http.StatusBadGateway
	case FailureCancelled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(kind string, err error) string {
	switch kind {
	case FailureInternal:
		return "unexpected conversion failure"
	case FailureCancelled:
		return "request cancelled"
	default:
		return err.Error()
	}
}
