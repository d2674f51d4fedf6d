package cli

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akarpov/deskpad/internal/config"
	"github.com/akarpov/deskpad/internal/docstore"
	"github.com/akarpov/deskpad/internal/identity"
	"github.com/akarpov/deskpad/internal/logging"
	"github.com/akarpov/deskpad/internal/syncstore"
)

// fakeIdentity is an in-memory Identity backend for shell tests.
type fakeIdentity struct {
	users    map[string]string
	current  *identity.Session
	sessions chan *identity.Session
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		users:    make(map[string]string),
		sessions: make(chan *identity.Session, 4),
	}
}

func (f *fakeIdentity) Register(ctx context.Context, login, name, password string) error {
	if _, ok := f.users[login]; ok {
		return identity.ErrLoginTaken
	}
	f.users[login] = password
	return nil
}

func (f *fakeIdentity) SignIn(ctx context.Context, login, password string) (*identity.Session, error) {
	if pw, ok := f.users[login]; !ok || pw != password {
		return nil, identity.ErrInvalidCredentials
	}
	s := &identity.Session{UserID: "uid-" + login, Login: login, Name: login}
	f.current = s
	return s, nil
}

func (f *fakeIdentity) SignOut(ctx context.Context)        { f.current = nil }
func (f *fakeIdentity) Current() *identity.Session         { return f.current }
func (f *fakeIdentity) Sessions() <-chan *identity.Session { return f.sessions }

func newTestApp(t *testing.T, input string) (*App, *bytes.Buffer) {
	t.Helper()
	mem := docstore.NewInMemory()
	store := syncstore.New(mem, logging.NewNopLogger())
	t.Cleanup(func() {
		store.Close()
		mem.Close()
	})

	var out bytes.Buffer
	app := NewApp(&config.Config{}, newFakeIdentity(), store, nil)
	app.reader = bufio.NewReader(strings.NewReader(input))
	app.out = &out
	return app, &out
}

func signIn(t *testing.T, app *App) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, app.provider.Register(ctx, "alice", "Alice", "pw"))
	session, err := app.provider.SignIn(ctx, "alice", "pw")
	require.NoError(t, err)
	require.NoError(t, app.store.Open(ctx, session))
}

func TestAddTodoAndList(t *testing.T) {
	app, out := newTestApp(t, "")
	signIn(t, app)
	ctx := context.Background()

	app.addTodo(ctx, []string{"pay", "taxes"})
	require.Eventually(t, func() bool {
		return len(app.store.Todos()) == 1
	}, 3*time.Second, 5*time.Millisecond)

	app.listTodos()
	assert.Contains(t, out.String(), "pay taxes")
	assert.Contains(t, out.String(), "[ ]")
}

func TestToggleTodoByIndex(t *testing.T) {
	app, out := newTestApp(t, "")
	signIn(t, app)
	ctx := context.Background()

	app.addTodo(ctx, []string{"walk"})
	require.Eventually(t, func() bool {
		return len(app.store.Todos()) == 1
	}, 3*time.Second, 5*time.Millisecond)

	app.toggleTodo(ctx, []string{"1"})
	require.Eventually(t, func() bool {
		todos := app.store.Todos()
		return len(todos) == 1 && todos[0].Completed
	}, 3*time.Second, 5*time.Millisecond)

	app.toggleTodo(ctx, []string{"99"})
	assert.Contains(t, out.String(), "No todo #99")
}

func TestAddNoteFromPrompt(t *testing.T) {
	app, _ := newTestApp(t, "first line\nsecond line\n\n")
	signIn(t, app)
	ctx := context.Background()

	app.addNote(ctx)
	require.Eventually(t, func() bool {
		notes := app.store.Notes()
		return len(notes) == 1 && notes[0].Content == "first line\nsecond line"
	}, 3*time.Second, 5*time.Millisecond)
}

func TestListNotesShowsStatusMarkers(t *testing.T) {
	app, out := newTestApp(t, "")
	signIn(t, app)
	ctx := context.Background()

	id, err := app.store.AddNote(ctx)
	require.NoError(t, err)
	require.NoError(t, app.store.UpdateNoteContent(ctx, id, "minimize me"))
	require.NoError(t, app.store.UpdateNoteStatus(ctx, id, "minimized"))
	require.Eventually(t, func() bool {
		notes := app.store.Notes()
		return len(notes) == 1 && notes[0].Status == "minimized"
	}, 3*time.Second, 5*time.Millisecond)

	app.listNotes()
	assert.Contains(t, out.String(), "[_] minimize me")
}

func TestReorderTodos(t *testing.T) {
	app, _ := newTestApp(t, "3 1 2\n")
	signIn(t, app)
	ctx := context.Background()

	// Add one at a time so each item gets a distinct order.
	for i, text := range []string{"A", "B", "C"} {
		app.addTodo(ctx, []string{text})
		want := i + 1
		require.Eventually(t, func() bool {
			return len(app.store.Todos()) == want
		}, 3*time.Second, 5*time.Millisecond)
	}

	app.reorderTodos(ctx)
	require.Eventually(t, func() bool {
		todos := app.store.Todos()
		return len(todos) == 3 && todos[0].Text == "C" && todos[1].Text == "A" && todos[2].Text == "B"
	}, 3*time.Second, 5*time.Millisecond)
}

func TestSetTimeBoxEntryValidation(t *testing.T) {
	app, out := newTestApp(t, "")
	signIn(t, app)
	ctx := context.Background()

	app.setTimeBoxEntry(ctx, []string{"6", "1"})
	assert.Contains(t, out.String(), "Hour must be")

	app.setTimeBoxEntry(ctx, []string{"9", "5"})
	assert.Contains(t, out.String(), "Slot must be 1 or 2")
}

func TestRunBackupRequiresLogin(t *testing.T) {
	app, out := newTestApp(t, "")
	app.runBackup(context.Background())
	assert.Contains(t, out.String(), "Log in first")
}
