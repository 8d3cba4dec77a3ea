// internal/services/timer.go
package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Timer is the single countdown primitive behind both the OTP validity
// window and the resend cooldown display. It emits a tick every second
// with the whole seconds remaining and fires the expiry callback exactly
// once, never before the full duration has elapsed.
//
// Only one countdown runs at a time: Start implicitly stops any running
// countdown, which is how a resend resets the clock.
type Timer struct {
	clk clock.Clock

	mu       sync.Mutex
	deadline time.Time
	cancel   chan struct{}
	running  bool
}

func NewTimer(clk clock.Clock) *Timer {
	return &Timer{clk: clk}
}

// Start begins a countdown of the given duration. onTick receives the
// remaining whole seconds once per second; onExpired fires exactly once
// when the countdown reaches zero. Either callback may be nil.
func (t *Timer) Start(d time.Duration, onTick func(remaining int), onExpired func()) {
	t.mu.Lock()
	t.stopLocked()

	t.deadline = t.clk.Now().Add(d)
	cancel := make(chan struct{})
	t.cancel = cancel
	t.running = true
	deadline := t.deadline
	t.mu.Unlock()

	go t.run(deadline, d, cancel, onTick, onExpired)
}

func (t *Timer) run(deadline time.Time, d time.Duration, cancel chan struct{}, onTick func(int), onExpired func()) {
	expiry := t.clk.Timer(d)
	defer expiry.Stop()
	ticker := t.clk.Ticker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-cancel:
			return
		case now := <-ticker.C:
			if remaining := remainingSeconds(deadline, now); remaining > 0 && onTick != nil {
				onTick(remaining)
			}
		case now := <-expiry.C:
			// Expiry must never fire early: re-arm if the clock says
			// the deadline has not actually passed yet.
			if now.Before(deadline) {
				expiry.Reset(deadline.Sub(now))
				continue
			}
			t.mu.Lock()
			if t.cancel == cancel {
				t.running = false
			}
			t.mu.Unlock()
			if onTick != nil {
				onTick(0)
			}
			if onExpired != nil {
				onExpired()
			}
			return
		}
	}
}

// Stop cancels the countdown without firing the expiry callback. Safe
// to call when nothing is running.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Timer) stopLocked() {
	if t.cancel != nil {
		close(t.cancel)
		t.cancel = nil
	}
	t.running = false
}

// Running reports whether a countdown is active.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Remaining returns the whole seconds left on the current countdown,
// never negative. Zero when nothing is running.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return 0
	}
	return remainingSeconds(t.deadline, t.clk.Now())
}

func remainingSeconds(deadline, now time.Time) int {
	d := deadline.Sub(now)
	if d <= 0 {
		return 0
	}
	// Round up so the countdown shows the full window at the start and
	// only hits 0 once the deadline has truly passed.
	return int((d + time.Second - 1) / time.Second)
}

// FormatCountdown renders remaining seconds as zero-padded MM:SS.
// Negative input clamps to 00:00.
func FormatCountdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
