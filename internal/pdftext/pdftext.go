// Package pdftext turns statement PDFs into plain text for the statement
// parser. Two backends exist: a pure-Go reader and the poppler pdftotext
// tool, which keeps column layout.
package pdftext

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Extraction errors. Password errors are distinct from parse failures so
// the caller can prompt for a password and retry.
var (
	ErrPasswordRequired = errors.New("pdf is password protected")
	ErrInvalidPassword  = errors.New("pdf password is incorrect")
	ErrParsingFailed    = errors.New("failed to read pdf")
	ErrUnknownBackend   = errors.New("unknown pdf backend")
)

// Backend names accepted by New.
const (
	BackendNative    = "native"
	BackendPdftotext = "pdftotext"
)

// Extractor returns the plain text of a PDF. An empty password means the
// document is opened without one.
type Extractor interface {
	Extract(ctx context.Context, path, password string) (string, error)
}

// New returns the extractor for a backend name. An empty name selects the
// native backend.
func New(backend string) (Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendNative:
		return NewNativeExtractor(), nil
	case BackendPdftotext:
		return NewLayoutExtractor(""), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// passwordError picks the password sentinel for an encrypted document.
func passwordError(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	return ErrInvalidPassword
}
