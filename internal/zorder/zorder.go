// Package zorder assigns stacking order to the floating widgets (notes,
// time-box, todo-box) so the last selected one is strictly topmost.
package zorder

// Baseline is the order every non-focused widget is reset to on a focus
// event; the focused widget always ends strictly above it.
const Baseline = 1

// Focus returns a new order assignment with target on top. All widgets are
// reset to Baseline and target gets max(currentMax+1, Baseline+1), so the
// result is strictly monotonic for the target and never has two widgets
// sharing the top order. Unknown targets are added.
func Focus(orders map[string]int, target string) map[string]int {
	maxOrder := Baseline
	for _, o := range orders {
		if o > maxOrder {
			maxOrder = o
		}
	}

	next := make(map[string]int, len(orders)+1)
	for id := range orders {
		next[id] = Baseline
	}

	top := maxOrder + 1
	if top < Baseline+1 {
		top = Baseline + 1
	}
	next[target] = top
	return next
}
