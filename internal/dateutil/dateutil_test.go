package dateutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDayKey(t *testing.T) {
	ts := time.Date(2024, 1, 2, 23, 59, 0, 0, time.Local)
	require.Equal(t, "2024-01-02", DayKey(ts))
}

func TestToday_UsesSeam(t *testing.T) {
	orig := timeNow
	t.Cleanup(func() { timeNow = orig })

	timeNow = func() time.Time { return time.Date(2024, 6, 30, 0, 0, 1, 0, time.Local) }
	require.Equal(t, "2024-06-30", Today())
}

func TestWatcher_EmitsOnDateChange(t *testing.T) {
	orig := timeNow
	t.Cleanup(func() { timeNow = orig })

	var mu sync.Mutex
	day := time.Date(2024, 1, 1, 12, 0, 0, 0, time.Local)
	timeNow = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return day
	}

	w := NewWatcher(5 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Run(ctx)

	// Same date: nothing should arrive.
	select {
	case key := <-w.Days():
		t.Fatalf("unexpected day event %q", key)
	case <-time.After(30 * time.Millisecond):
	}

	mu.Lock()
	day = time.Date(2024, 1, 2, 0, 0, 30, 0, time.Local)
	mu.Unlock()

	select {
	case key := <-w.Days():
		require.Equal(t, "2024-01-02", key)
	case <-time.After(time.Second):
		t.Fatal("day boundary event not delivered")
	}
}
