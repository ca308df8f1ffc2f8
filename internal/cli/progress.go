package cli

import (
	"io"

	"github.com/schollz/progressbar/v3"
)

// NewProgressBar returns a progress bar for count items written to w.
// Pass io.Discard to silence it.
func NewProgressBar(w io.Writer, count int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(count,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
	)
}
