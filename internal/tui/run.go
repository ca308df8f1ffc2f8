package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/spendwise/internal/ingest"
	tea "github.com/charmbracelet/bubbletea"
)

// RunReview shows the review screen until the user confirms or cancels.
// It reports whether the selection was confirmed; rows are edited in place.
func RunReview(ctx context.Context, review *ingest.Review, opts ...Option) (bool, error) {
	if review == nil {
		return false, errors.New("review is required")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	programOpts := []tea.ProgramOption{
		tea.WithContext(ctx),
		tea.WithInput(cfg.Input),
		tea.WithOutput(cfg.Output),
	}
	if cfg.AltScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}

	final, err := tea.NewProgram(newModel(review, cfg), programOpts...).Run()
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, fmt.Errorf("review screen failed: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return false, fmt.Errorf("unexpected review model %T", final)
	}
	return m.Confirmed(), nil
}
