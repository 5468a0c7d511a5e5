package progress

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tagscout/tagscout/internal/scan"
)

// RefreshInterval is the redraw period of the renderer.
const RefreshInterval = 100 * time.Millisecond

// clearLine moves up one line and clears it.
const clearLine = "\033[1A\033[K"

// Renderer drives a Bar from scan events and redraws it on a terminal.
type Renderer struct {
	bar    *Bar
	output io.Writer
	mu     sync.Mutex
	drawn  bool
}

var _ scan.Reporter = (*Renderer)(nil)

// NewRenderer creates a renderer writing to output.
func NewRenderer(bar *Bar, output io.Writer) *Renderer {
	return &Renderer{
		bar:    bar,
		output: output,
	}
}

// Report applies a scan event to the bar.
func (r *Renderer) Report(event scan.Event) {
	switch e := event.(type) {
	case scan.ServersSet:
		r.bar.SetTotal(int64(len(e.Servers)))
	case scan.ScanningChanged:
		if e.Scanning {
			r.bar.Reset()
			r.bar.SetMessage("Scanning")
		} else {
			r.bar.SetMessage("Idle")
			r.bar.SetStepMessage("")
		}

		r.bar.SetCounters(e.Counters.TotalScanned, e.Counters.TotalFound)
	case scan.CurrentServerChanged:
		r.bar.SetStepMessage(e.Name)
	case scan.ProgressUpdated:
		r.bar.SetScanned(e.TotalScanned)
	case scan.MatchFound:
		r.bar.SetCounters(e.Counters.TotalScanned, e.Counters.TotalFound)
	case scan.CommunityFinished:
		if e.Result.Err != nil {
			r.bar.AddFailure()
		}

		r.bar.SetTotal(int64(e.Total))
		r.bar.SetCurrent(int64(e.Index + 1))
	}
}

// Draw replaces the previously drawn line with the current bar.
func (r *Renderer) Draw() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.drawn {
		_, _ = fmt.Fprint(r.output, clearLine)
	}

	_, _ = fmt.Fprintln(r.output, r.bar.String())
	r.drawn = true
}

// Run redraws the bar until ctx is done, then clears it.
func (r *Renderer) Run(ctx context.Context) {
	ticker := time.NewTicker(RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Stop()
			return
		case <-ticker.C:
			r.Draw()
		}
	}
}

// Stop clears the drawn bar from the screen.
func (r *Renderer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.drawn {
		_, _ = fmt.Fprint(r.output, clearLine)
		r.drawn = false
	}
}
