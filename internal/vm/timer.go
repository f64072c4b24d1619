package vm

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// TimerTick is the countdown period of the delay and sound timers (~60Hz).
const TimerTick = 16 * time.Millisecond

// CountdownTimer is a byte counter decremented towards zero by its own
// goroutine. Reads never block. Writes and their notifications are
// serialized, so the last notification always carries the current value.
type CountdownTimer struct {
	value    atomic.Uint32
	period   time.Duration
	onChange func(value uint8)

	// held across a write and its onChange call
	mu sync.Mutex
}

// NewCountdownTimer creates a stopped timer. onChange, if not nil, is called
// with the new value after every set and every decrement, from whichever
// goroutine made the change. It must not call back into the timer.
func NewCountdownTimer(onChange func(value uint8)) *CountdownTimer {
	return &CountdownTimer{
		period:   TimerTick,
		onChange: onChange,
	}
}

// Start runs the countdown until ctx is done.
func (t *CountdownTimer) Start(ctx context.Context) {
	ticker := time.NewTicker(t.period)

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.tick()
			}
		}
	}()
}

func (t *CountdownTimer) Get() uint8 {
	return uint8(t.value.Load())
}

func (t *CountdownTimer) Set(value uint8) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.value.Store(uint32(value))
	t.changed(value)
}

func (t *CountdownTimer) tick() {
	t.mu.Lock()
	defer t.mu.Unlock()

	v := t.value.Load()
	if v == 0 {
		return
	}

	t.value.Store(v - 1)
	t.changed(uint8(v - 1))
}

func (t *CountdownTimer) changed(value uint8) {
	if t.onChange != nil {
		t.onChange(value)
	}
}
