package useCases

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// SearchDebounce is the quiescence window of the user search box.
const SearchDebounce = 300 * time.Millisecond

// Debouncer runs only the last of a burst of triggers, once the burst has
// been quiet for the window.
type Debouncer struct {
	clock  clockwork.Clock
	window time.Duration

	mu    sync.Mutex
	timer clockwork.Timer
	seq   uint64
}

func NewDebouncer(clock clockwork.Clock, window time.Duration) *Debouncer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Debouncer{clock: clock, window: window}
}

// Trigger cancels the pending call, if any, and schedules fn.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = d.clock.AfterFunc(d.window, func() {
		d.mu.Lock()
		current := d.seq == seq
		if current {
			d.timer = nil
		}
		d.mu.Unlock()

		// a timer that lost the race with Stop or Trigger must not run
		if current {
			fn()
		}
	})
}

// Stop cancels the pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
