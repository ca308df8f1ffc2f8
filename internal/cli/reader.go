package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/term"
)

// ErrInputCancelled is returned when input is canceled by context.
var ErrInputCancelled = errors.New("input canceled")

// NonBlockingReader provides context-aware input reading that can be interrupted.
type NonBlockingReader struct {
	reader      *bufio.Reader
	readingLock sync.Mutex
}

// NewNonBlockingReader creates a new non-blocking reader.
func NewNonBlockingReader(reader io.Reader) *NonBlockingReader {
	if reader == nil {
		panic("reader cannot be nil")
	}

	return &NonBlockingReader{
		reader: bufio.NewReader(reader),
	}
}

// ReadString reads a string until delim, respecting context cancellation.
// A read abandoned on cancellation keeps running in the background.
func (r *NonBlockingReader) ReadString(ctx context.Context, delim byte) (string, error) {
	type result struct {
		err   error
		value string
	}
	resultCh := make(chan result, 1)

	go func() {
		r.readingLock.Lock()
		defer r.readingLock.Unlock()

		value, err := r.reader.ReadString(delim)
		resultCh <- result{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case res := <-resultCh:
		return res.value, res.err
	}
}

// ReadLine reads a line, respecting context cancellation. A final line
// without a newline is still returned.
func (r *NonBlockingReader) ReadLine(ctx context.Context) (string, error) {
	line, err := r.ReadString(ctx, '\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Confirm asks a yes/no question on w and reads the answer from r. An empty
// answer picks def.
func Confirm(ctx context.Context, r *NonBlockingReader, w io.Writer, question string, def bool) (bool, error) {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}

	for {
		if _, err := fmt.Fprint(w, FormatPrompt(question+" "+hint)); err != nil {
			return false, err
		}

		answer, err := r.ReadLine(ctx)
		if err != nil {
			return false, err
		}

		switch strings.ToLower(answer) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		if _, err := fmt.Fprintln(w, FormatWarning("Please answer y or n.")); err != nil {
			return false, err
		}
	}
}

// ReadSecret reads a line without echo when fd is a terminal and falls back
// to r otherwise, so piped input keeps working. Pass -1 when there is no
// terminal to read from.
func ReadSecret(ctx context.Context, r *NonBlockingReader, w io.Writer, fd int) (string, error) {
	if fd < 0 || !term.IsTerminal(fd) {
		return r.ReadLine(ctx)
	}

	state, err := term.GetState(fd)
	if err != nil {
		return "", fmt.Errorf("failed to read terminal state: %w", err)
	}

	type result struct {
		err   error
		value []byte
	}
	resultCh := make(chan result, 1)

	go func() {
		value, err := term.ReadPassword(fd)
		resultCh <- result{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		// ReadPassword only restores echo when it returns.
		_ = term.Restore(fd, state)
		return "", ErrInputCancelled
	case res := <-resultCh:
		// The terminal swallowed the newline along with the echo.
		if _, err := fmt.Fprintln(w); err != nil {
			return "", err
		}
		if res.err != nil {
			return "", res.err
		}
		return strings.TrimSpace(string(res.value)), nil
	}
}
