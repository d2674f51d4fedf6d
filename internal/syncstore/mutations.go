package syncstore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"

	"github.com/akarpov/deskpad/internal/docstore"
	"github.com/akarpov/deskpad/internal/models"
)

// ErrFileTooLarge is returned for attachments over models.MaxFileSize. The
// check runs before any remote call.
var ErrFileTooLarge = errors.New("file exceeds maximum size")

// notePalette is the background/foreground pairs new notes cycle through.
var notePalette = []struct{ bg, fg string }{
	{"#fff9b1", "#333333"},
	{"#ffd1dc", "#333333"},
	{"#c9f0c4", "#333333"},
	{"#cfe8ff", "#333333"},
	{"#ffe0b3", "#333333"},
	{"#e6d7ff", "#333333"},
}

func (s *Store) write(ctx context.Context, op string, fn func(owner string) error) error {
	owner := s.ownerID()
	if owner == "" {
		return ErrNotSignedIn
	}
	if err := fn(owner); err != nil {
		s.reportError(ctx, op, err)
		return err
	}
	return nil
}

// AddNote creates a blank sticky note with a palette color pair and a
// jittered spawn position, returning the new id.
func (s *Store) AddNote(ctx context.Context) (string, error) {
	id := uuid.NewString()
	err := s.write(ctx, "adding note", func(owner string) error {
		colors := notePalette[rand.Intn(len(notePalette))]
		now := timeNow()
		n := models.Note{
			Owner:      owner,
			Background: colors.bg,
			Foreground: colors.fg,
			Position: models.Position{
				X: 80 + float64(rand.Intn(120)),
				Y: 80 + float64(rand.Intn(120)),
			},
			Status:     models.NoteStatusActive,
			CreatedAt:  now,
			LastEdited: now,
		}
		return s.docs.Set(ctx, models.CollectionNotes, id, n, false)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// UpdateNoteContent commits the note text, resolving any pending draft.
func (s *Store) UpdateNoteContent(ctx context.Context, id, content string) error {
	err := s.write(ctx, "updating note content", func(owner string) error {
		return s.docs.Update(ctx, models.CollectionNotes, id, map[string]any{
			"content":     content,
			"last_edited": timeNow(),
		})
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	if o, ok := s.drafts[id]; ok {
		s.drafts[id] = o.Resolve(content)
	}
	s.mu.Unlock()
	s.notifyChanged()
	return nil
}

// UpdateNotePosition persists drag geometry. Moving a note is not an edit:
// last_edited stays untouched so recency ordering is stable under drags.
func (s *Store) UpdateNotePosition(ctx context.Context, id string, pos models.Position) error {
	return s.write(ctx, "moving note", func(owner string) error {
		return s.docs.Update(ctx, models.CollectionNotes, id, map[string]any{
			"position": pos,
		})
	})
}

// UpdateNoteSize persists resize geometry and refreshes last_edited.
func (s *Store) UpdateNoteSize(ctx context.Context, id string, size models.Size) error {
	return s.write(ctx, "resizing note", func(owner string) error {
		return s.docs.Update(ctx, models.CollectionNotes, id, map[string]any{
			"size":        size,
			"last_edited": timeNow(),
		})
	})
}

// UpdateNoteColor assigns a palette pair to an existing note.
func (s *Store) UpdateNoteColor(ctx context.Context, id, background, foreground string) error {
	return s.write(ctx, "recoloring note", func(owner string) error {
		return s.docs.Update(ctx, models.CollectionNotes, id, map[string]any{
			"background":  background,
			"foreground":  foreground,
			"last_edited": timeNow(),
		})
	})
}

// UpdateNoteStatus moves a note between active, minimized and archived.
func (s *Store) UpdateNoteStatus(ctx context.Context, id string, status models.NoteStatus) error {
	switch status {
	case models.NoteStatusActive, models.NoteStatusMinimized, models.NoteStatusArchived:
	default:
		return fmt.Errorf("unknown note status %q", status)
	}
	return s.write(ctx, "changing note status", func(owner string) error {
		return s.docs.Update(ctx, models.CollectionNotes, id, map[string]any{
			"status":      status,
			"last_edited": timeNow(),
		})
	})
}

// BringNoteToFront reactivates the note and makes it the most recently
// edited, which places it on top when windows are rebuilt.
func (s *Store) BringNoteToFront(ctx context.Context, id string) error {
	return s.write(ctx, "bringing note to front", func(owner string) error {
		return s.docs.Update(ctx, models.CollectionNotes, id, map[string]any{
			"status":      models.NoteStatusActive,
			"last_edited": timeNow(),
		})
	})
}

// DeleteNote removes a note permanently.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	err := s.write(ctx, "deleting note", func(owner string) error {
		return s.docs.Delete(ctx, models.CollectionNotes, id)
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.drafts, id)
	s.mu.Unlock()
	return nil
}

// AddFile stores a small attachment inline, base64-encoded. Oversized
// content is rejected locally with ErrFileTooLarge.
func (s *Store) AddFile(ctx context.Context, name, mimeType string, content []byte) (string, error) {
	if len(content) > models.MaxFileSize {
		return "", fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, len(content), models.MaxFileSize)
	}
	id := uuid.NewString()
	err := s.write(ctx, "adding file", func(owner string) error {
		f := models.StoredFile{
			Owner:     owner,
			Name:      name,
			MimeType:  mimeType,
			SizeBytes: int64(len(content)),
			Content:   base64.StdEncoding.EncodeToString(content),
			CreatedAt: timeNow(),
		}
		return s.docs.Set(ctx, models.CollectionFiles, id, f, false)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// DeleteFile removes an attachment permanently.
func (s *Store) DeleteFile(ctx context.Context, id string) error {
	return s.write(ctx, "deleting file", func(owner string) error {
		return s.docs.Delete(ctx, models.CollectionFiles, id)
	})
}

// AddTodo appends an item at the end of the incomplete group. Blank text is
// a silent no-op.
func (s *Store) AddTodo(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	id := uuid.NewString()
	err := s.write(ctx, "adding todo", func(owner string) error {
		s.mu.RLock()
		order := nextTodoOrder(s.rawTodos)
		today := s.dayKey
		s.mu.RUnlock()

		td := models.Todo{
			Owner:     owner,
			Text:      text,
			LastDate:  today,
			Order:     order,
			CreatedAt: timeNow(),
		}
		return s.docs.Set(ctx, models.CollectionTodos, id, td, false)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// ToggleTodo flips completion.
func (s *Store) ToggleTodo(ctx context.Context, id string) error {
	return s.write(ctx, "toggling todo", func(owner string) error {
		td, ok := s.findTodo(id)
		if !ok {
			return fmt.Errorf("todo %s: %w", id, docstore.ErrNotFound)
		}
		return s.docs.Update(ctx, models.CollectionTodos, id, map[string]any{
			"completed": !td.Completed,
		})
	})
}

// ToggleTodoFixed flips the daily-recurring flag.
func (s *Store) ToggleTodoFixed(ctx context.Context, id string) error {
	return s.write(ctx, "toggling todo fixed flag", func(owner string) error {
		td, ok := s.findTodo(id)
		if !ok {
			return fmt.Errorf("todo %s: %w", id, docstore.ErrNotFound)
		}
		return s.docs.Update(ctx, models.CollectionTodos, id, map[string]any{
			"fixed": !td.Fixed,
		})
	})
}

// UpdateTodoText rewrites the item text; blanking it out is rejected
// locally, delete is the way to remove an item.
func (s *Store) UpdateTodoText(ctx context.Context, id, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("todo text cannot be blank")
	}
	return s.write(ctx, "updating todo text", func(owner string) error {
		return s.docs.Update(ctx, models.CollectionTodos, id, map[string]any{
			"text": text,
		})
	})
}

// UpdateTodoOrder persists a manual reorder: each id gets its index in the
// given slice as its order, committed as one atomic batch.
func (s *Store) UpdateTodoOrder(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.write(ctx, "reordering todos", func(owner string) error {
		ops := make([]docstore.Op, 0, len(ids))
		for i, id := range ids {
			ops = append(ops, docstore.Op{
				Kind:       docstore.OpUpdate,
				Collection: models.CollectionTodos,
				ID:         id,
				Fields:     map[string]any{"order": i},
			})
		}
		return s.docs.Batch(ctx, ops)
	})
}

// DeleteTodo removes an item permanently.
func (s *Store) DeleteTodo(ctx context.Context, id string) error {
	return s.write(ctx, "deleting todo", func(owner string) error {
		return s.docs.Delete(ctx, models.CollectionTodos, id)
	})
}

func (s *Store) findTodo(id string) (models.Todo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, td := range s.rawTodos {
		if td.ID == id {
			return td, true
		}
	}
	return models.Todo{}, false
}

// UpdateTimeBoxEntry writes one slot's text for the current day. The whole
// clone is written with merge semantics so concurrent edits to other hours
// survive.
func (s *Store) UpdateTimeBoxEntry(ctx context.Context, hour, slot int, text string) error {
	if hour < models.TimeBoxFirstHour || hour > models.TimeBoxLastHour {
		return fmt.Errorf("hour %d outside planner range", hour)
	}
	if slot != 1 && slot != 2 {
		return fmt.Errorf("slot must be 1 or 2, got %d", slot)
	}
	return s.writeTimeBox(ctx, "updating planner entry", func(tb *models.TimeBoxData) {
		pair := tb.Entries[models.HourKey(hour)]
		if slot == 1 {
			pair.Slot1 = text
		} else {
			pair.Slot2 = text
		}
		tb.Entries[models.HourKey(hour)] = pair
	})
}

// UpdateTimeBoxColor sets the highlight color of one (hour, slot) cell;
// empty color clears the highlight.
func (s *Store) UpdateTimeBoxColor(ctx context.Context, hour, slot int, color string) error {
	if hour < models.TimeBoxFirstHour || hour > models.TimeBoxLastHour {
		return fmt.Errorf("hour %d outside planner range", hour)
	}
	if slot != 1 && slot != 2 {
		return fmt.Errorf("slot must be 1 or 2, got %d", slot)
	}
	return s.writeTimeBox(ctx, "updating planner color", func(tb *models.TimeBoxData) {
		key := models.SlotColorKey(hour, slot)
		if color == "" {
			delete(tb.Colors, key)
		} else {
			tb.Colors[key] = color
		}
	})
}

// UpdateTimeBoxPosition persists the planner window position.
func (s *Store) UpdateTimeBoxPosition(ctx context.Context, pos models.Position) error {
	return s.writeTimeBox(ctx, "moving planner", func(tb *models.TimeBoxData) {
		tb.Position = &models.Position{X: pos.X, Y: pos.Y}
	})
}

func (s *Store) writeTimeBox(ctx context.Context, op string, mutate func(*models.TimeBoxData)) error {
	return s.write(ctx, op, func(owner string) error {
		s.mu.RLock()
		day := s.dayKey
		tb := s.timeBox
		s.mu.RUnlock()

		docID := models.TimeBoxDocID(owner, day)
		if tb == nil {
			// Cold cache: a write may land before the first snapshot. The
			// merge below is top-level only, so read the stored document to
			// avoid clobbering entries written from another session.
			stored, err := s.loadTimeBox(ctx, owner, day, docID)
			if err != nil {
				return err
			}
			tb = stored
		}
		clone := tb.Clone()
		mutate(clone)
		return s.docs.Set(ctx, models.CollectionTimeBox, docID, clone, true)
	})
}

func (s *Store) loadTimeBox(ctx context.Context, owner, day, docID string) (*models.TimeBoxData, error) {
	doc, err := s.docs.Get(ctx, models.CollectionTimeBox, docID)
	if errors.Is(err, docstore.ErrNotFound) {
		return models.NewTimeBoxData(owner, day), nil
	}
	if err != nil {
		return nil, err
	}
	tb := &models.TimeBoxData{}
	if err := json.Unmarshal(doc.Data, tb); err != nil {
		return nil, fmt.Errorf("decoding planner document: %w", err)
	}
	tb.ID = doc.ID
	if tb.Entries == nil {
		tb.Entries = make(map[string]models.SlotPair)
	}
	if tb.Colors == nil {
		tb.Colors = make(map[string]string)
	}
	return tb, nil
}

// UpdateTodoBoxPosition persists the to-do window position.
func (s *Store) UpdateTodoBoxPosition(ctx context.Context, pos models.Position) error {
	return s.writeTodoBox(ctx, "moving todo box", func(ws *models.WidgetSettings) {
		ws.Position = pos
	})
}

// UpdateTodoBoxHeight persists the to-do window height.
func (s *Store) UpdateTodoBoxHeight(ctx context.Context, height float64) error {
	return s.writeTodoBox(ctx, "resizing todo box", func(ws *models.WidgetSettings) {
		ws.Height = height
	})
}

func (s *Store) writeTodoBox(ctx context.Context, op string, mutate func(*models.WidgetSettings)) error {
	return s.write(ctx, op, func(owner string) error {
		ws := s.TodoBoxSettings()
		ws.Owner = owner
		mutate(&ws)
		docID := models.SettingsDocID(owner, models.SettingsTodoBox)
		return s.docs.Set(ctx, models.CollectionSettings, docID, ws, true)
	})
}
