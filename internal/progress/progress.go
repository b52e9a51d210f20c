// Package progress wraps request/response bodies with a byte-counting
// transform that emits cadence-limited {loaded, total, rate, eta} events.
package progress

import (
	"io"
	"time"

	"github.com/forattini-dev/recker/internal/recker"
)

const (
	// emitEveryBytes caps event frequency by byte count.
	emitEveryBytes = 64 * 1024
	// emitEveryInterval caps event frequency by wall-clock time.
	emitEveryInterval = 100 * time.Millisecond
	// ewmaAlpha weights the most recent rate sample.
	ewmaAlpha = 0.3
)

// Reader wraps an io.ReadCloser, emitting recker.ProgressEvent values to fn
// as bytes flow through Read.
type Reader struct {
	io.ReadCloser
	total     int64
	loaded    int64
	direction string
	fn        recker.ProgressFunc

	start       time.Time
	lastEmit    time.Time
	lastBytes   int64
	rate        float64
	emittedZero bool
	done        bool
}

// New wraps r so every Read call advances the progress accounting. total
// is 0 when the length is unknown.
func New(r io.ReadCloser, total int64, direction string, fn recker.ProgressFunc) *Reader {
	now := time.Now()
	return &Reader{
		ReadCloser: r,
		total:      total,
		direction:  direction,
		fn:         fn,
		start:      now,
		lastEmit:   now,
	}
}

func (p *Reader) Read(buf []byte) (int, error) {
	n, err := p.ReadCloser.Read(buf)
	if n > 0 {
		p.loaded += int64(n)
		p.maybeEmit(false)
	}
	if err == io.EOF && !p.done {
		p.done = true
		p.emit(true)
	}
	return n, err
}

func (p *Reader) maybeEmit(final bool) {
	now := time.Now()
	if !p.emittedZero {
		p.emittedZero = true
		p.emit(false)
		return
	}
	sinceBytes := p.loaded - p.lastBytes
	if final || sinceBytes >= emitEveryBytes || now.Sub(p.lastEmit) >= emitEveryInterval {
		p.emit(final)
	}
}

func (p *Reader) emit(final bool) {
	now := time.Now()
	elapsed := now.Sub(p.lastEmit).Seconds()
	instant := 0.0
	if elapsed > 0 {
		instant = float64(p.loaded-p.lastBytes) / elapsed
	}
	if p.rate == 0 {
		p.rate = instant
	} else {
		p.rate = ewmaAlpha*instant + (1-ewmaAlpha)*p.rate
	}

	ev := recker.ProgressEvent{
		Loaded:    p.loaded,
		Total:     p.total,
		Rate:      p.rate,
		Direction: p.direction,
		Final:     final,
	}
	if p.total > 0 {
		ev.Percent = float64(p.loaded) / float64(p.total) * 100
		if p.rate > 0 {
			remaining := p.total - p.loaded
			if remaining < 0 {
				remaining = 0
			}
			ev.ETA = time.Duration(float64(remaining)/p.rate) * time.Second
		}
	}

	p.lastEmit = now
	p.lastBytes = p.loaded
	if p.fn != nil {
		p.fn(ev)
	}
}
