package worker

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressStats(t *testing.T) {
	tests := []struct {
		name   string
		stats  progressStats
		rate   float64
		eta    time.Duration
		filled int
	}{
		{"nothing done", progressStats{total: 10, elapsed: 5 * time.Second}, 0, 0, 0},
		{"no time elapsed", progressStats{completed: 3, total: 10}, 0, 0, 9},
		{"half way", progressStats{completed: 5, total: 10, elapsed: 10 * time.Second}, 0.5, 10 * time.Second, 15},
		{"finished", progressStats{completed: 10, total: 10, elapsed: 4 * time.Second}, 2.5, 0, barWidth},
		{"overshoot is capped", progressStats{completed: 12, total: 10, elapsed: time.Second}, 12, 0, barWidth},
		{"empty batch", progressStats{elapsed: time.Second}, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.rate, tt.stats.rate(), 1e-9)
			assert.Equal(t, tt.eta, tt.stats.eta())

			bar := tt.stats.bar()
			assert.Equal(t, tt.filled, strings.Count(bar, "█"))
			assert.Equal(t, barWidth-tt.filled, strings.Count(bar, "░"))
		})
	}
}

func TestProgressAddBytes(t *testing.T) {
	p := NewProgress(4, false)
	p.AddBytes(0)
	p.AddBytes(-10)
	assert.Zero(t, p.stats().written)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.AddBytes(100)
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(5000), p.stats().written)
}

func TestProgressLine(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(10, true)
	p.output = &buf
	p.startTime = time.Now().Add(-10 * time.Second)

	p.AddBytes(2048)
	p.Callback()(5, 10, 1)

	line := buf.String()
	require.True(t, strings.HasPrefix(line, "\r["), "line redraws in place: %q", line)
	assert.Equal(t, 15, strings.Count(line, "█"))
	assert.Contains(t, line, "] 5/10 images (1 failed) - 0.5 images/sec - 2.0 kB - ETA: 10s")
	assert.NotContains(t, line, "Done in")
}

func TestProgressDoneLine(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(2, true)
	p.output = &buf
	p.startTime = time.Now().Add(-90 * time.Second)

	p.Update(2, 2, 0)
	buf.Reset()
	p.Done()

	line := buf.String()
	assert.Contains(t, line, "2/2 images - ")
	assert.Contains(t, line, "Done in 1m30s")
	assert.NotContains(t, line, "ETA")
	assert.NotContains(t, line, "failed")
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestProgressDisabledIsSilent(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(3, false)
	p.output = &buf

	p.Update(3, 3, 1)
	p.Done()

	assert.Empty(t, buf.String())
	assert.Equal(t, 3, p.stats().completed)
}

func TestProgressSummary(t *testing.T) {
	p := NewProgress(10, false)
	p.startTime = time.Now().Add(-20 * time.Second)

	p.Update(10, 10, 2)
	p.AddBytes(1_500_000)
	p.AddBytes(500_000)

	assert.Equal(t,
		"Enhanced 8/10 images (2 failed, 2.0 MB written) in 20s (0.5 images/sec)",
		p.Summary())
}

func TestFormatDuration(t *testing.T) {
	tests := map[time.Duration]string{
		0:                               "0s",
		45 * time.Second:                "45s",
		90 * time.Second:                "1m30s",
		59*time.Minute + 59*time.Second: "59m59s",
		2*time.Hour + 5*time.Minute:     "2h5m",
	}
	for d, want := range tests {
		assert.Equal(t, want, formatDuration(d), d.String())
	}
}
