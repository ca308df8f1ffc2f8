package tui

import (
	"io"
	"os"

	"github.com/Veraticus/spendwise/internal/model"
)

// Config holds TUI configuration.
type Config struct {
	Input      io.Reader
	Output     io.Writer
	Categories []model.Category
	Width      int
	Height     int
	AltScreen  bool
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Input:     os.Stdin,
		Output:    os.Stdout,
		Width:     100,
		Height:    24,
		AltScreen: true,
	}
}

// WithCategories sets the categories offered when reassigning a row.
func WithCategories(categories []model.Category) Option {
	return func(c *Config) {
		c.Categories = categories
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithIO replaces the terminal streams.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(c *Config) {
		c.Input = in
		c.Output = out
	}
}

// WithAltScreen toggles the alternate screen buffer.
func WithAltScreen(enabled bool) Option {
	return func(c *Config) {
		c.AltScreen = enabled
	}
}
