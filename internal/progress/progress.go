// Package progress renders per-stage scan activity on stderr. Each phase
// of a scan (walk, combine+diff) owns one Stage; a Stage started disabled
// is inert, so callers update it without guarding.
package progress

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

const redrawEvery = 65 * time.Millisecond

// Stage is the activity spinner for one phase of a scan. Its text is
// supplied by the phase's own stats value, re-rendered on every Update.
type Stage struct {
	spinner *progressbar.ProgressBar
}

// Start returns a Stage, live only when enabled.
func Start(enabled bool) *Stage {
	if !enabled {
		return &Stage{}
	}
	return &Stage{spinner: progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionThrottle(redrawEvery),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSpinnerType(11),
		progressbar.OptionSetElapsedTime(false),
	)}
}

// Update replaces the text shown beside the spinner.
func (s *Stage) Update(status fmt.Stringer) {
	if s.spinner != nil {
		s.spinner.Describe(status.String())
	}
}

// Done clears the spinner and leaves the stage's final summary line behind.
func (s *Stage) Done(status fmt.Stringer) {
	if s.spinner != nil {
		_ = s.spinner.Finish()
		fmt.Fprintln(os.Stderr, status.String())
	}
}
