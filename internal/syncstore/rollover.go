package syncstore

import (
	"sort"

	"github.com/akarpov/deskpad/internal/docstore"
	"github.com/akarpov/deskpad/internal/models"
)

// rolloverOps computes the daily reset for todos whose lastDate is not
// today:
//
//   - fixed items restart the day: completed=false, lastDate=today;
//   - unfinished one-off items carry forward: lastDate=today only;
//   - finished one-off items are left alone and age out of the visible
//     window.
//
// The returned ops are committed as one atomic batch. An empty result means
// the snapshot is already normalized and can be published.
func rolloverOps(todos []models.Todo, today string) []docstore.Op {
	var ops []docstore.Op
	for _, td := range todos {
		if td.LastDate == today {
			continue
		}
		switch {
		case td.Fixed:
			ops = append(ops, docstore.Op{
				Kind:       docstore.OpUpdate,
				Collection: models.CollectionTodos,
				ID:         td.ID,
				Fields:     map[string]any{"completed": false, "last_date": today},
			})
		case !td.Completed:
			ops = append(ops, docstore.Op{
				Kind:       docstore.OpUpdate,
				Collection: models.CollectionTodos,
				ID:         td.ID,
				Fields:     map[string]any{"last_date": today},
			})
		}
	}
	return ops
}

// visibleTodos filters a normalized snapshot to the items shown today and
// sorts them: incomplete before completed, ascending manual order within
// each group.
func visibleTodos(todos []models.Todo, today string) []models.Todo {
	visible := make([]models.Todo, 0, len(todos))
	for _, td := range todos {
		if td.LastDate == today || td.Fixed {
			visible = append(visible, td)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		if visible[i].Completed != visible[j].Completed {
			return !visible[i].Completed
		}
		return visible[i].Order < visible[j].Order
	})
	return visible
}

// nextTodoOrder returns the order for a newly added item: one past the
// highest order among incomplete todos, starting at 1.
func nextTodoOrder(todos []models.Todo) int {
	maxOrder := 0
	for _, td := range todos {
		if !td.Completed && td.Order > maxOrder {
			maxOrder = td.Order
		}
	}
	return maxOrder + 1
}
