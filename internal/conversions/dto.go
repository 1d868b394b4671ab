package conversions

import "time"

// ConversionResponse is the outward-facing representation of a conversion.
type ConversionResponse struct {
	ConversionID     string    `json:"conversionId"`
	SourceFileName   string    `json:"sourceFileName"`
	Status           string    `json:"status"`
	FailureKind      string    `json:"failureKind,omitempty"`
	ExperienceCount  int       `json:"experienceCount"`
	PDFPages         int       `json:"pdfPages"`
	OutputSizeBytes  int64     `json:"outputSizeBytes"`
	UnresolvedTokens int       `json:"unresolvedTokens"`
	DurationMs       int64     `json:"durationMs"`
	CreatedAt        time.Time `json:"createdAt"`
}

func toResponse(conv Conversion) ConversionResponse {
	return ConversionResponse{
		ConversionID:     conv.ID,
		SourceFileName:   conv.SourceFileName,
		Status:           conv.Status,
		FailureKind:      conv.FailureKind,
		ExperienceCount:  conv.ExperienceCount,
		PDFPages:         conv.PDFPages,
		OutputSizeBytes:  conv.OutputSizeBytes,
		UnresolvedTokens: conv.UnresolvedTokens,
		DurationMs:       conv.Duration.Milliseconds(),
		CreatedAt:        conv.CreatedAt,
	}
}
