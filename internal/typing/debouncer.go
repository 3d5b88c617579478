// Package typing turns keystrokes into typing and stop-typing signals.
package typing

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultQuiet is how long input must stay idle before the stop signal fires.
const DefaultQuiet = 1000 * time.Millisecond

type Signal int

const (
	Start Signal = iota
	Stop
)

func (s Signal) String() string {
	if s == Start {
		return "typing"
	}
	return "stop_typing"
}

// Debouncer emits Start on every keystroke and a single trailing Stop once
// input has been idle for the quiet period.
type Debouncer struct {
	mu     sync.Mutex
	clock  clock.Clock
	quiet  time.Duration
	emit   func(Signal)
	timer  *clock.Timer
	gen    uint64
	active bool
}

// New returns a Debouncer calling emit for every signal. A nil clk uses the
// wall clock; a non-positive quiet uses DefaultQuiet.
func New(clk clock.Clock, quiet time.Duration, emit func(Signal)) *Debouncer {
	if clk == nil {
		clk = clock.New()
	}
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	return &Debouncer{clock: clk, quiet: quiet, emit: emit}
}

// Keystroke records an input event. Signals are emitted without holding the
// lock, so a slow emit never blocks later calls.
func (d *Debouncer) Keystroke() {
	d.mu.Lock()
	d.stopTimer()
	d.active = true
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.quiet, func() { d.expire(gen) })
	d.mu.Unlock()

	d.emit(Start)
}

// Flush cancels any pending timer and emits Stop right away.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	d.stopTimer()
	d.active = false
	d.mu.Unlock()

	d.emit(Stop)
}

// Active reports whether a typing signal is outstanding.
func (d *Debouncer) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

func (d *Debouncer) expire(gen uint64) {
	d.mu.Lock()
	// A keystroke or flush after this timer was armed supersedes it.
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.gen++
	d.active = false
	d.mu.Unlock()

	d.emit(Stop)
}

// stopTimer cancels the pending timer. d.mu must be held.
func (d *Debouncer) stopTimer() {
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
