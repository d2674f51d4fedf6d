package zorder

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFocus_TargetStrictlyTopmost(t *testing.T) {
	orders := map[string]int{"a": 3, "b": 7, "c": 2}

	next := Focus(orders, "a")

	for id, o := range next {
		if id == "a" {
			continue
		}
		require.Less(t, o, next["a"], "widget %s must be below the focused one", id)
	}
	require.Equal(t, 8, next["a"])
}

func TestFocus_NoDuplicateTopOrder(t *testing.T) {
	next := Focus(map[string]int{"a": 1, "b": 1, "c": 1}, "b")

	top := next["b"]
	count := 0
	for _, o := range next {
		if o == top {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestFocus_EmptySet(t *testing.T) {
	next := Focus(nil, "solo")
	require.Equal(t, Baseline+1, next["solo"])
}

func TestFocus_RepeatedFocusStaysStrictlyTopmost(t *testing.T) {
	orders := map[string]int{"a": 1, "b": 1}
	prevTop := Baseline
	for i := 0; i < 100; i++ {
		for _, target := range []string{"a", "b"} {
			orders = Focus(orders, target)
			top := orders[target]
			require.Greater(t, top, prevTop, "focus must raise the target above the previous top")
			for id, o := range orders {
				if id != target {
					require.Equal(t, Baseline, o, "widget %s must be reset to baseline", id)
				}
			}
			prevTop = top
		}
	}
	// One raise per focus event from the shared starting order.
	require.Equal(t, Baseline+200, orders["b"])
}
