package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/akarpov/deskpad/internal/models"
)

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

// noteByIndex resolves a 1-based listing index into the mirrored note.
func (a *App) noteByIndex(args []string) (models.Note, bool) {
	notes := a.store.Notes()
	if len(args) == 0 {
		fmt.Fprintln(a.out, "Usage: <command> <n>  (see 'notes' for numbers)")
		return models.Note{}, false
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(notes) {
		fmt.Fprintf(a.out, "No note #%s\n", args[0])
		return models.Note{}, false
	}
	return notes[n-1], true
}

func (a *App) listNotes() {
	notes := a.store.Notes()
	if len(notes) == 0 {
		fmt.Fprintln(a.out, "No notes yet. Try 'addnote'.")
		return
	}
	for i, n := range notes {
		marker := " "
		switch n.Status {
		case models.NoteStatusMinimized:
			marker = "_"
		case models.NoteStatusArchived:
			marker = "x"
		}
		fmt.Fprintf(a.out, "%3d [%s] %s\n", i+1, marker, firstLine(n.Content))
	}
}

func (a *App) addNote(ctx context.Context) {
	content, err := GetMultiline(a.reader, "Note text", a.out)
	if err != nil {
		fmt.Fprintln(a.out, "Error:", err)
		return
	}

	id, err := a.store.AddNote(ctx)
	if err != nil {
		fmt.Fprintln(a.out, "Error:", err)
		return
	}
	if content != "" {
		if err := a.store.UpdateNoteContent(ctx, id, content); err != nil {
			fmt.Fprintln(a.out, "Error:", err)
			return
		}
	}
	fmt.Fprintln(a.out, "Note added")
}

func (a *App) editNote(ctx context.Context, args []string) {
	n, ok := a.noteByIndex(args)
	if !ok {
		return
	}
	fmt.Fprintln(a.out, "Current text:")
	fmt.Fprintln(a.out, n.Content)

	content, err := GetMultiline(a.reader, "New text", a.out)
	if err != nil {
		fmt.Fprintln(a.out, "Error:", err)
		return
	}
	a.store.BeginNoteEdit(n.ID, content)
	if err := a.store.UpdateNoteContent(ctx, n.ID, content); err != nil {
		fmt.Fprintln(a.out, "Error:", err)
	}
}

func (a *App) frontNote(ctx context.Context, args []string) {
	n, ok := a.noteByIndex(args)
	if !ok {
		return
	}
	if err := a.store.BringNoteToFront(ctx, n.ID); err != nil {
		fmt.Fprintln(a.out, "Error:", err)
	}
}

func (a *App) minimizeNote(ctx context.Context, args []string) {
	n, ok := a.noteByIndex(args)
	if !ok {
		return
	}
	if err := a.store.UpdateNoteStatus(ctx, n.ID, models.NoteStatusMinimized); err != nil {
		fmt.Fprintln(a.out, "Error:", err)
	}
}

func (a *App) archiveNote(ctx context.Context, args []string) {
	n, ok := a.noteByIndex(args)
	if !ok {
		return
	}
	if err := a.store.UpdateNoteStatus(ctx, n.ID, models.NoteStatusArchived); err != nil {
		fmt.Fprintln(a.out, "Error:", err)
	}
}

func (a *App) deleteNote(ctx context.Context, args []string) {
	n, ok := a.noteByIndex(args)
	if !ok {
		return
	}
	if err := a.store.DeleteNote(ctx, n.ID); err != nil {
		fmt.Fprintln(a.out, "Error:", err)
		return
	}
	fmt.Fprintln(a.out, "Note deleted")
}
