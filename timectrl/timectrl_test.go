package timectrl

import (
	"context"
	"testing"
	"time"
)

func TestTimeControllerSetTick(t *testing.T) {
	tc := NewTimeController(time.Second, RealTime)

	tc.SetTick(42)

	if got := tc.Now(); got != 42 {
		t.Fatalf("Now() = %d, want 42", got)
	}
}

func TestTimeControllerAcceleratedDeliversEveryTick(t *testing.T) {
	tc := NewTimeController(time.Hour, Accelerated)

	var seen []int
	tc.AddListener(func(tick int) { seen = append(seen, tick) })

	<-tc.Start(context.Background(), 5)

	if len(seen) != 5 {
		t.Fatalf("listener saw %d ticks, want 5", len(seen))
	}
	for i, tick := range seen {
		if tick != i {
			t.Fatalf("tick[%d] = %d, want %d", i, tick, i)
		}
	}
	if got := tc.Now(); got != 5 {
		t.Fatalf("Now() = %d, want 5", got)
	}
}

func TestTimeControllerRealTimeUpdatesNow(t *testing.T) {
	tc := NewTimeController(2*time.Millisecond, RealTime)
	tc.SetTick(10)

	<-tc.Start(context.Background(), 3)

	if got := tc.Now(); got != 13 {
		t.Fatalf("Now() = %d, want 13", got)
	}
}

func TestTimeControllerStopsOnCancel(t *testing.T) {
	tc := NewTimeController(time.Hour, RealTime)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	tc.AddListener(func(int) { calls++ })

	done := tc.Start(ctx, 1000)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("controller did not stop after cancel")
	}
	if calls != 0 {
		t.Fatalf("listener called %d times, want 0", calls)
	}
}
