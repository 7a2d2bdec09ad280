package timectrl

import (
	"context"
	"sync"
	"time"
)

// Mode describes how the TimeController paces simulation ticks.
type Mode int

const (
	// RealTime waits Tick of wall-clock time between simulation ticks.
	RealTime Mode = iota
	// Accelerated advances as quickly as listeners return.
	Accelerated
)

func (m Mode) String() string {
	switch m {
	case RealTime:
		return "realtime"
	case Accelerated:
		return "accelerated"
	default:
		return "unknown"
	}
}

// TimeController drives integer simulation ticks and notifies registered
// listeners, e.g. to replay a computed schedule as a live timeline.
type TimeController struct {
	mu sync.RWMutex
	// Tick is the wall-clock duration of one simulation tick in RealTime mode.
	Tick time.Duration
	Mode Mode

	current   int
	listeners []func(int)
}

// NewTimeController constructs a controller positioned at tick 0.
func NewTimeController(tick time.Duration, mode Mode) *TimeController {
	return &TimeController{
		Tick: tick,
		Mode: mode,
	}
}

// Now returns the current simulation tick.
func (tc *TimeController) Now() int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.current
}

// SetTick moves the controller to tick without notifying listeners.
func (tc *TimeController) SetTick(tick int) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.current = tick
}

// AddListener registers a callback invoked on every tick. Register listeners
// before Start.
func (tc *TimeController) AddListener(fn func(int)) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.listeners = append(tc.listeners, fn)
}

// Start delivers ticks [Now(), Now()+ticks) to listeners in a separate
// goroutine. It returns a channel closed when the run finishes or ctx is done.
func (tc *TimeController) Start(ctx context.Context, ticks int) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		tc.mu.RLock()
		first := tc.current
		listeners := append([]func(int){}, tc.listeners...)
		tc.mu.RUnlock()

		var pace <-chan time.Time
		if tc.Mode == RealTime && tc.Tick > 0 {
			ticker := time.NewTicker(tc.Tick)
			defer ticker.Stop()
			pace = ticker.C
		}

		for tick := first; tick < first+ticks; tick++ {
			if pace != nil {
				select {
				case <-ctx.Done():
					return
				case <-pace:
				}
			} else if ctx.Err() != nil {
				return
			}

			tc.mu.Lock()
			tc.current = tick
			tc.mu.Unlock()

			for _, fn := range listeners {
				fn(tick)
			}
		}

		tc.mu.Lock()
		tc.current = first + ticks
		tc.mu.Unlock()
	}()
	return done
}
