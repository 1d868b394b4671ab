package conversions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"cv-mapper/internal/extract"
	"cv-mapper/internal/shared/metrics"
	"cv-mapper/internal/shared/telemetry"
	"cv-mapper/internal/shared/util"
	"cv-mapper/resume/service"
)

// Converter produces a DOCX from an uploaded resume.
type Converter interface {
	Convert(ctx context.Context, fileName string, content []byte) (service.Result, error)
}

// Input is one uploaded file.
type Input struct {
	FileName  string
	Content   []byte
	RequestID string
}

// Outcome is a finished conversion. Document is nil on failure.
type Outcome struct {
	Conversion Conversion
	Document   []byte
}

// Service validates uploads, runs the mapper and records an audit trail.
type Service struct {
	Repo      Repo
	Converter Converter
	Now       func() time.Time
}

// Convert runs one conversion. The returned Outcome always carries the audit
// record, also when err is non-nil.
func (s *Service) Convert(ctx context.Context, in Input) (Outcome, error) {
	if s.Repo == nil || s.Converter == nil {
		return Outcome{}, errors.New("missing dependencies")
	}
	start := s.now()
	conv := Conversion{
		ID:        uuid.NewString(),
		Status:    StatusFailed,
		RequestID: in.RequestID,
		CreatedAt: start.UTC(),
	}
	metrics.IncConversionStarted()

	doc, err := s.run(ctx, in, &conv)
	conv.Duration = s.now().Sub(start)
	if err != nil {
		conv.FailureKind = FailureKind(err)
		conv.ErrorMessage = err.Error()
	} else {
		conv.Status = StatusSucceeded
	}

	outcome := conv.FailureKind
	if err == nil {
		outcome = "success"
	}
	metrics.ObserveConversion(outcome, conv.Duration.Seconds(), conv.ExperienceCount)
	s.record(ctx, conv)

	if err != nil {
		return Outcome{Conversion: conv}, err
	}
	return Outcome{Conversion: conv, Document: doc}, nil
}

func (s *Service) run(ctx context.Context, in Input, conv *Conversion) ([]byte, error) {
	name, err := util.SanitizeFileName(in.FileName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	conv.SourceFileName = name
	if len(in.Content) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}
	info, err := extract.InspectPDF(in.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	conv.PDFPages = info.Pages

	result, err := s.Converter.Convert(ctx, name, in.Content)
	if err != nil {
		return nil, err
	}
	conv.ExperienceCount = result.Experiences
	conv.OutputSizeBytes = int64(len(result.Document))

	tokens, err := extract.UnresolvedTokens(result.Document)
	if err != nil {
		telemetry.Warn("conversion.audit_failed", map[string]any{
			"conversion_id": conv.ID,
			"error":         err,
		})
	} else if len(tokens) > 0 {
		conv.UnresolvedTokens = len(tokens)
		metrics.AddUnresolvedTokens(len(tokens))
		telemetry.Warn("conversion.unresolved_tokens", map[string]any{
			"conversion_id": conv.ID,
			"tokens":        strings.Join(tokens, ","),
		})
	}
	return result.Document, nil
}

// record stores the audit row. A storage failure is logged and does not
// fail the conversion.
func (s *Service) record(ctx context.Context, conv Conversion) {
	fields := map[string]any{
		"conversion_id":     conv.ID,
		"request_id":        conv.RequestID,
		"status":            conv.Status,
		"failure_kind":      conv.FailureKind,
		"experiences":       conv.ExperienceCount,
		"pdf_pages":         conv.PDFPages,
		"output_size_bytes": conv.OutputSizeBytes,
		"duration_ms":       conv.Duration.Milliseconds(),
	}
	if err := s.Repo.Create(context.WithoutCancel(ctx), conv); err != nil {
		fields["error"] = err
		telemetry.Error("conversion.record_failed", fields)
		return
	}
	if conv.Status == StatusSucceeded {
		telemetry.Info("conversion.completed", fields)
	} else {
		fields["error"] = conv.ErrorMessage
		telemetry.Warn("conversion.failed", fields)
	}
}

// Get returns a conversion record by ID.
func (s *Service) Get(ctx context.Context, id string) (Conversion, error) {
	if strings.TrimSpace(id) == "" {
		return Conversion{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, id)
}

// List returns conversion records ordered newest-first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Conversion, error) {
	return s.Repo.List(ctx, limit, offset)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// FailureKind maps a conversion error to its failure kind.
func FailureKind(err error) string {
	var (
		upstream      *service.UpstreamServiceError
		parse         *service.ParseError
		template      *service.TemplateError
		serialization *service.SerializationError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return FailureValidation
	case errors.As(err, &upstream):
		return FailureUpstream
	case errors.As(err, &parse):
		return FailureParse
	case errors.As(err, &template):
		return FailureTemplate
	case errors.As(err, &serialization):
		return FailureSerialization
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return FailureCancelled
	default:
		return FailureInternal
	}
}
