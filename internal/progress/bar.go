package progress

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Bar tracks scan progress over communities along with the running member
// counters. The ETA is the average community duration times the remainder.
type Bar struct {
	mu          sync.Mutex
	total       int64
	current     int64
	width       int
	message     string
	stepMessage string
	scanned     int64
	found       int64
	failed      int64
	stepStart   time.Time
	start       time.Time
	now         func() time.Time
}

// NewBar creates a progress bar with a width in characters and a message
// describing the overall operation.
func NewBar(width int, message string) *Bar {
	return newBar(width, message, time.Now)
}

func newBar(width int, message string, now func() time.Time) *Bar {
	return &Bar{
		width:     max(width, 1),
		message:   message,
		stepStart: now(),
		start:     now(),
		now:       now,
	}
}

// SetTotal updates the number of communities that represents 100%.
func (b *Bar) SetTotal(total int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.total = max(total, 0)
	b.current = min(b.current, b.total)
}

// SetCurrent sets the number of finished communities, capped at the total.
func (b *Bar) SetCurrent(current int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = min(max(current, 0), b.total)
}

// SetMessage updates the overall operation description.
func (b *Bar) SetMessage(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.message = message
}

// SetStepMessage updates the current step description and resets the step timer.
func (b *Bar) SetStepMessage(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stepMessage = message
	b.stepStart = b.now()
}

// SetCounters updates the member counters shown next to the bar.
func (b *Bar) SetCounters(scanned, found int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.scanned = scanned
	b.found = found
}

// SetScanned updates only the scanned counter.
func (b *Bar) SetScanned(scanned int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.scanned = scanned
}

// AddFailure counts one failed community.
func (b *Bar) AddFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failed++
}

// Reset prepares the bar for a new scan.
func (b *Bar) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = 0
	b.scanned = 0
	b.found = 0
	b.failed = 0
	b.stepMessage = ""
	b.stepStart = b.now()
	b.start = b.now()
}

// String renders the bar on a single line.
func (b *Bar) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	percent := 0.0
	if b.total > 0 {
		percent = float64(b.current) / float64(b.total)
	}

	filled := int(percent * float64(b.width))
	bar := strings.Repeat("=", filled) + strings.Repeat("-", b.width-filled)

	now := b.now()
	step := ""
	if b.stepMessage != "" {
		step = fmt.Sprintf(" | %s (%s)", b.stepMessage, now.Sub(b.stepStart).Round(time.Second))
	}

	return fmt.Sprintf("%s [%s] %d/%d %.1f%% | scanned %d found %d failed %d%s | Overall: %s (ETA: %s)",
		b.message, bar, b.current, b.total, percent*100, b.scanned, b.found, b.failed, step,
		now.Sub(b.start).Round(time.Second), b.eta(now))
}

func (b *Bar) eta(now time.Time) time.Duration {
	if b.current == 0 || b.current >= b.total {
		return 0
	}

	perCommunity := now.Sub(b.start) / time.Duration(b.current)

	return (perCommunity * time.Duration(b.total-b.current)).Round(time.Second)
}
