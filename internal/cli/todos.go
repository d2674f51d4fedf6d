package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/akarpov/deskpad/internal/models"
)

func (a *App) todoByIndex(args []string) (models.Todo, bool) {
	todos := a.store.Todos()
	if len(args) == 0 {
		fmt.Fprintln(a.out, "Usage: <command> <n>  (see 'todos' for numbers)")
		return models.Todo{}, false
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(todos) {
		fmt.Fprintf(a.out, "No todo #%s\n", args[0])
		return models.Todo{}, false
	}
	return todos[n-1], true
}

func (a *App) listTodos() {
	todos := a.store.Todos()
	if len(todos) == 0 {
		fmt.Fprintln(a.out, "Nothing for today. Try 'addtodo <text>'.")
		return
	}
	for i, td := range todos {
		check := " "
		if td.Completed {
			check = "x"
		}
		pin := "  "
		if td.Fixed {
			pin = " *"
		}
		fmt.Fprintf(a.out, "%3d [%s]%s %s\n", i+1, check, pin, td.Text)
	}
}

func (a *App) addTodo(ctx context.Context, args []string) {
	text := strings.Join(args, " ")
	if text == "" {
		var err error
		text, err = GetSimpleText(a.reader, "Todo text", a.out)
		if err != nil {
			fmt.Fprintln(a.out, "Error:", err)
			return
		}
	}

	id, err := a.store.AddTodo(ctx, text)
	if err != nil {
		fmt.Fprintln(a.out, "Error:", err)
		return
	}
	if id == "" {
		fmt.Fprintln(a.out, "Nothing to add")
	}
}

func (a *App) toggleTodo(ctx context.Context, args []string) {
	td, ok := a.todoByIndex(args)
	if !ok {
		return
	}
	if err := a.store.ToggleTodo(ctx, td.ID); err != nil {
		fmt.Fprintln(a.out, "Error:", err)
	}
}

func (a *App) fixTodo(ctx context.Context, args []string) {
	td, ok := a.todoByIndex(args)
	if !ok {
		return
	}
	if err := a.store.ToggleTodoFixed(ctx, td.ID); err != nil {
		fmt.Fprintln(a.out, "Error:", err)
	}
}

// reorderTodos prompts for the new sequence of current numbers, e.g.
// "3 1 2" moves the third item first.
func (a *App) reorderTodos(ctx context.Context) {
	todos := a.store.Todos()
	if len(todos) < 2 {
		fmt.Fprintln(a.out, "Nothing to reorder")
		return
	}

	line, err := GetSimpleText(a.reader, "New order (current numbers, space-separated)", a.out)
	if err != nil {
		fmt.Fprintln(a.out, "Error:", err)
		return
	}

	fields := strings.Fields(line)
	if len(fields) != len(todos) {
		fmt.Fprintf(a.out, "Expected %d numbers, got %d\n", len(todos), len(fields))
		return
	}

	ids := make([]string, 0, len(todos))
	seen := make(map[int]struct{}, len(todos))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 1 || n > len(todos) {
			fmt.Fprintf(a.out, "Bad number %q\n", f)
			return
		}
		if _, dup := seen[n]; dup {
			fmt.Fprintf(a.out, "Number %d repeated\n", n)
			return
		}
		seen[n] = struct{}{}
		ids = append(ids, todos[n-1].ID)
	}

	if err := a.store.UpdateTodoOrder(ctx, ids); err != nil {
		fmt.Fprintln(a.out, "Error:", err)
	}
}

func (a *App) deleteTodo(ctx context.Context, args []string) {
	td, ok := a.todoByIndex(args)
	if !ok {
		return
	}
	if err := a.store.DeleteTodo(ctx, td.ID); err != nil {
		fmt.Fprintln(a.out, "Error:", err)
		return
	}
	fmt.Fprintln(a.out, "Todo deleted")
}
