package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// LayoutExtractor shells out to poppler's pdftotext with -layout, which
// keeps table columns on one line.
type LayoutExtractor struct {
	binary string
}

// NewLayoutExtractor creates a LayoutExtractor. An empty binary means
// "pdftotext" on PATH.
func NewLayoutExtractor(binary string) *LayoutExtractor {
	if binary == "" {
		binary = "pdftotext"
	}
	return &LayoutExtractor{binary: binary}
}

// Extract implements Extractor.
func (l *LayoutExtractor) Extract(ctx context.Context, path, password string) (string, error) {
	cmd := exec.CommandContext(ctx, l.binary, layoutArgs(path, password)...) //nolint:gosec // fixed binary, user file
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", classifyFailure(stderr.String(), password, err)
	}
	return stdout.String(), nil
}

func layoutArgs(path, password string) []string {
	args := []string{"-layout"}
	if password != "" {
		args = append(args, "-upw", password)
	}
	return append(args, path, "-")
}

// classifyFailure maps pdftotext output to the package errors.
func classifyFailure(stderr, password string, err error) error {
	if strings.Contains(strings.ToLower(stderr), "incorrect password") {
		return passwordError(password)
	}

	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return fmt.Errorf("%w: pdftotext not available: %w", ErrParsingFailed, err)
	}
	msg := strings.TrimSpace(stderr)
	if msg == "" {
		msg = err.Error()
	}
	return fmt.Errorf("%w: %s", ErrParsingFailed, msg)
}
