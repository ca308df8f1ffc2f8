package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dslipak/pdf"
)

// NativeExtractor reads PDFs with a pure-Go parser.
type NativeExtractor struct{}

// NewNativeExtractor creates a NativeExtractor.
func NewNativeExtractor() *NativeExtractor {
	return &NativeExtractor{}
}

// Extract implements Extractor.
func (n *NativeExtractor) Extract(ctx context.Context, path, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	reader, file, err := openDocument(path, password)
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()

	text, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrParsingFailed, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(text); err != nil {
		return "", fmt.Errorf("%w: %w", ErrParsingFailed, err)
	}
	return buf.String(), nil
}

// openDocument opens path, trying password at most once if the document is
// protected. The reader reads lazily from the returned file, so the caller
// closes it once done with the reader. On error the file is already closed.
func openDocument(path, password string) (*pdf.Reader, io.Closer, error) {
	f, err := os.Open(path) //nolint:gosec // user selected statement file
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrParsingFailed, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("%w: %w", ErrParsingFailed, err)
	}

	tried := false
	reader, err := pdf.NewReaderEncrypted(f, info.Size(), func() string {
		if tried {
			return ""
		}
		tried = true
		return password
	})
	switch {
	case errors.Is(err, pdf.ErrInvalidPassword) && password == "":
		_ = f.Close()
		return nil, nil, ErrPasswordRequired
	case errors.Is(err, pdf.ErrInvalidPassword):
		_ = f.Close()
		return nil, nil, ErrInvalidPassword
	case err != nil:
		_ = f.Close()
		return nil, nil, fmt.Errorf("%w: %w", ErrParsingFailed, err)
	}
	return reader, f, nil
}
