package services

import (
	"errors"
	"fmt"
)

// Sentinel errors the API layer maps to response codes.
var (
	ErrDocumentNotFound    = errors.New("document not found")
	ErrNameTaken           = errors.New("document name already in use")
	ErrUnsupportedFileType = errors.New("unsupported file type")
)

// ValidationError is a caller mistake detected before any external call.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
