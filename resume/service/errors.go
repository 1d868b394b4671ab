package service

import "fmt"

// UpstreamServiceError is a failed call to the reformulation service:
// transport failure, timeout or non-200 status.
type UpstreamServiceError struct {
	Err error
}

func (e *UpstreamServiceError) Error() string {
	return fmt.Sprintf("service error: %v", e.Err)
}

func (e *UpstreamServiceError) Unwrap() error { return e.Err }

// ParseError is a reformulation response that is not a valid CV record.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// TemplateError is a missing or malformed template or image asset.
type TemplateError struct {
	Err error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template error: %v", e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

// SerializationError is a failure writing the final document.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization error: %v", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }
