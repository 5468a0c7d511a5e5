package progress_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tagscout/tagscout/internal/progress"
	"github.com/tagscout/tagscout/internal/scan"
)

func TestRendererReport(t *testing.T) {
	t.Parallel()

	bar := progress.NewBar(10, "Idle")
	renderer := progress.NewRenderer(bar, &bytes.Buffer{})

	events := []scan.Event{
		scan.ScanningChanged{Scanning: true},
		scan.ServersSet{Servers: []scan.ServerInfo{{Name: "A"}, {Name: "B"}}},
		scan.CurrentServerChanged{Name: "A"},
		scan.ProgressUpdated{TotalScanned: 40},
		scan.MatchFound{Counters: scan.Counters{TotalScanned: 41, TotalFound: 1}},
		scan.CommunityFinished{Index: 0, Total: 2},
		scan.CurrentServerChanged{Name: "B"},
		scan.CommunityFinished{Index: 1, Total: 2, Result: scan.CommunityResult{Err: errors.New("timeout")}},
	}

	for _, event := range events {
		renderer.Report(event)
	}

	out := bar.String()
	assert.Contains(t, out, "Scanning [==========] 2/2 100.0%")
	assert.Contains(t, out, "scanned 41 found 1 failed 1")
	assert.Contains(t, out, "| B (")

	renderer.Report(scan.ScanningChanged{Scanning: false, Counters: scan.Counters{TotalScanned: 41, TotalFound: 1}})
	assert.True(t, strings.HasPrefix(bar.String(), "Idle "))
}

func TestRendererDraw(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	renderer := progress.NewRenderer(progress.NewBar(4, "Idle"), &buf)

	renderer.Draw()
	renderer.Draw()
	renderer.Stop()

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "\n"))
	assert.Equal(t, 2, strings.Count(out, "\033[1A\033[K"))
}

func TestRendererRunStopsWithContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(t.Context(), 3*progress.RefreshInterval)
	defer cancel()

	var buf bytes.Buffer
	done := make(chan struct{})

	go func() {
		progress.NewRenderer(progress.NewBar(4, "Idle"), &buf).Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("renderer did not stop")
	}

	assert.Contains(t, buf.String(), "Idle [----]")
}
