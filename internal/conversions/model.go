package conversions

import "time"

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Failure kinds double as HTTP error codes and metric outcome labels.
const (
	FailureValidation    = "validation_error"
	FailureUpstream      = "upstream_error"
	FailureParse         = "parse_error"
	FailureTemplate      = "template_error"
	FailureSerialization = "serialization_error"
	FailureCancelled     = "cancelled"
	FailureInternal      = "internal_error"
)

// Conversion is the audit record of one upload. It never holds CV content
// or document bytes.
type Conversion struct {
	ID               string
	SourceFileName   string
	Status           string
	FailureKind      string
	ErrorMessage     string
	ExperienceCount  int
	PDFPages         int
	OutputSizeBytes  int64
	UnresolvedTokens int
	Duration         time.Duration
	RequestID        string
	CreatedAt        time.Time
}
