// Package syncstore maintains live in-memory mirrors of the remote
// collections (notes, files, todos, the current day's time-box document and
// the todo-box settings) and provides every mutation entry point. Caches
// are replaced wholesale on each delivered snapshot; local optimistic state
// (content drafts, drag geometry) lives outside the mirror and is discarded
// in favor of the next authoritative snapshot.
package syncstore

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/akarpov/deskpad/internal/dateutil"
	"github.com/akarpov/deskpad/internal/docstore"
	"github.com/akarpov/deskpad/internal/identity"
	"github.com/akarpov/deskpad/internal/logging"
	"github.com/akarpov/deskpad/internal/models"
)

// ErrNotSignedIn is returned by mutations attempted without an identity.
var ErrNotSignedIn = errors.New("not signed in")

const defaultDayCheckInterval = time.Minute

// rolloverGrace bounds how long a committed rollover batch may take to
// retrigger the todos subscription before the delay is logged. The stale
// list is never published either way.
const rolloverGrace = 5 * time.Second

// timeNow is a test seam.
var timeNow = time.Now

// Store owns the four mirrors and the subscriptions feeding them.
// UI layers read the mirrors and call mutation methods; they never write
// the caches directly.
type Store struct {
	log  logging.Logger
	docs docstore.Store

	dayCheckInterval time.Duration

	mu       sync.RWMutex
	session  *identity.Session
	dayKey   string
	notes    []models.Note
	files    []models.StoredFile
	rawTodos []models.Todo
	todos    []models.Todo
	timeBox  *models.TimeBoxData
	todoBox  *models.WidgetSettings
	drafts   map[string]Overlay[string]
	errMsg   string

	rolloverGen     int
	rolloverPending bool

	changed chan struct{}

	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	disposers   []func()
	wg          sync.WaitGroup

	timeBoxMu     sync.Mutex
	timeBoxSub    *docstore.DocumentSub
	timeBoxCancel context.CancelFunc
}

// New returns a closed store; Open starts the mirrors for one session.
func New(docs docstore.Store, log logging.Logger) *Store {
	return &Store{
		log:              log,
		docs:             docs,
		dayCheckInterval: defaultDayCheckInterval,
		drafts:           make(map[string]Overlay[string]),
		changed:          make(chan struct{}, 1),
	}
}

// SetDayCheckInterval overrides how often the local calendar date is
// polled. Must be called before Open.
func (s *Store) SetDayCheckInterval(d time.Duration) {
	if d > 0 {
		s.dayCheckInterval = d
	}
}

// Open subscribes to every collection for the given session. A nil session
// means signed out: mirrors are emptied and nothing is subscribed. Open
// tears down any previous session first.
func (s *Store) Open(ctx context.Context, session *identity.Session) error {
	s.Close()

	s.mu.Lock()
	s.session = session
	s.dayKey = dateutil.Today()
	s.notes = nil
	s.files = nil
	s.rawTodos = nil
	s.todos = nil
	s.timeBox = nil
	s.todoBox = nil
	s.drafts = make(map[string]Overlay[string])
	s.errMsg = ""
	s.mu.Unlock()
	s.notifyChanged()

	if session == nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)

	s.lifecycleMu.Lock()
	s.cancel = cancel
	s.lifecycleMu.Unlock()

	open := func() error {
		if err := s.openCollection(runCtx, models.CollectionNotes, "created_at", s.handleNotes); err != nil {
			return err
		}
		if err := s.openCollection(runCtx, models.CollectionFiles, "created_at", s.handleFiles); err != nil {
			return err
		}
		if err := s.openCollection(runCtx, models.CollectionTodos, "order", s.handleTodos); err != nil {
			return err
		}
		if err := s.openTimeBox(runCtx, s.currentDayKey()); err != nil {
			return err
		}
		if err := s.openSettings(runCtx); err != nil {
			return err
		}
		s.startDayWatcher(runCtx)
		return nil
	}

	if err := open(); err != nil {
		s.Close()
		return err
	}
	return nil
}

// Close tears down all subscriptions and watchers. The mirrors keep their
// last contents; Open replaces them.
func (s *Store) Close() {
	s.lifecycleMu.Lock()
	cancel := s.cancel
	disposers := s.disposers
	s.cancel = nil
	s.disposers = nil
	s.lifecycleMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()

	s.timeBoxMu.Lock()
	if s.timeBoxSub != nil {
		s.timeBoxSub.Close()
		s.timeBoxSub = nil
	}
	if s.timeBoxCancel != nil {
		s.timeBoxCancel()
		s.timeBoxCancel = nil
	}
	s.timeBoxMu.Unlock()

	for _, d := range disposers {
		d()
	}
	s.wg.Wait()
}

func (s *Store) addDisposer(d func()) {
	s.lifecycleMu.Lock()
	s.disposers = append(s.disposers, d)
	s.lifecycleMu.Unlock()
}

// openCollection subscribes server-ordered and falls back to an unordered
// subscription with a client-side sort when the required index is missing.
// The fallback is invisible to consumers: handlers receive the same order
// either way.
func (s *Store) openCollection(ctx context.Context, collection, orderBy string, handle func(ctx context.Context, docs []docstore.Document, serverSorted bool)) error {
	q := docstore.Query{Collection: collection, Owner: s.ownerID(), OrderBy: orderBy}

	serverSorted := true
	sub, err := s.docs.SubscribeCollection(ctx, q)
	if err != nil && docstore.Classify(err) == docstore.KindMissingIndex {
		s.log.Warn(ctx, "ordered subscription unavailable, sorting client-side",
			"collection", collection, "order_by", orderBy)
		q.OrderBy = ""
		serverSorted = false
		sub, err = s.docs.SubscribeCollection(ctx, q)
	}
	if err != nil {
		return err
	}
	s.addDisposer(sub.Close)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case docs := <-sub.Snapshots():
				handle(ctx, docs, serverSorted)
			case err := <-sub.Errs():
				s.reportError(ctx, "collection subscription", err)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (s *Store) handleNotes(ctx context.Context, docs []docstore.Document, serverSorted bool) {
	notes := make([]models.Note, 0, len(docs))
	for _, d := range docs {
		var n models.Note
		if err := json.Unmarshal(d.Data, &n); err != nil {
			s.log.Warn(ctx, "skipping undecodable note", "id", d.ID, "error", err)
			continue
		}
		n.ID = d.ID
		notes = append(notes, n)
	}
	if !serverSorted {
		sort.SliceStable(notes, func(i, j int) bool {
			if !notes[i].CreatedAt.Equal(notes[j].CreatedAt) {
				return notes[i].CreatedAt.Before(notes[j].CreatedAt)
			}
			return notes[i].ID < notes[j].ID
		})
	}

	s.mu.Lock()
	// Every delivered snapshot resolves pending drafts back to Synced.
	drafts := make(map[string]Overlay[string], len(s.drafts))
	for _, n := range notes {
		if _, ok := s.drafts[n.ID]; ok {
			drafts[n.ID] = NewOverlay(n.Content)
		}
	}
	s.drafts = drafts
	s.notes = notes
	s.mu.Unlock()
	s.notifyChanged()
}

func (s *Store) handleFiles(ctx context.Context, docs []docstore.Document, serverSorted bool) {
	files := make([]models.StoredFile, 0, len(docs))
	for _, d := range docs {
		var f models.StoredFile
		if err := json.Unmarshal(d.Data, &f); err != nil {
			s.log.Warn(ctx, "skipping undecodable file", "id", d.ID, "error", err)
			continue
		}
		f.ID = d.ID
		files = append(files, f)
	}
	if !serverSorted {
		sort.SliceStable(files, func(i, j int) bool {
			if !files[i].CreatedAt.Equal(files[j].CreatedAt) {
				return files[i].CreatedAt.Before(files[j].CreatedAt)
			}
			return files[i].ID < files[j].ID
		})
	}

	s.mu.Lock()
	s.files = files
	s.mu.Unlock()
	s.notifyChanged()
}

func (s *Store) handleTodos(ctx context.Context, docs []docstore.Document, serverSorted bool) {
	todos := make([]models.Todo, 0, len(docs))
	for _, d := range docs {
		var td models.Todo
		if err := json.Unmarshal(d.Data, &td); err != nil {
			s.log.Warn(ctx, "skipping undecodable todo", "id", d.ID, "error", err)
			continue
		}
		td.ID = d.ID
		todos = append(todos, td)
	}
	if !serverSorted {
		sort.SliceStable(todos, func(i, j int) bool {
			if todos[i].Order != todos[j].Order {
				return todos[i].Order < todos[j].Order
			}
			return todos[i].ID < todos[j].ID
		})
	}
	s.processTodos(ctx, todos)
}

// processTodos runs the rollover protocol on a normalized-or-not snapshot.
// If any item needs rolling over, the batch is committed and NO list is
// published this cycle: the write retriggers the subscription with
// lastDate already normalized, and that snapshot produces the list.
func (s *Store) processTodos(ctx context.Context, todos []models.Todo) {
	s.mu.Lock()
	s.rawTodos = todos
	today := s.dayKey
	s.mu.Unlock()

	ops := rolloverOps(todos, today)
	if len(ops) > 0 {
		s.beginRolloverWait(ctx)
		if err := s.docs.Batch(ctx, ops); err != nil {
			s.endRolloverWait()
			s.reportError(ctx, "rolling over todos", err)
		}
		return
	}

	s.endRolloverWait()
	visible := visibleTodos(todos, today)
	s.mu.Lock()
	s.todos = visible
	s.mu.Unlock()
	s.notifyChanged()
}

func (s *Store) beginRolloverWait(ctx context.Context) {
	s.mu.Lock()
	s.rolloverGen++
	gen := s.rolloverGen
	s.rolloverPending = true
	s.mu.Unlock()

	time.AfterFunc(rolloverGrace, func() {
		s.mu.RLock()
		delayed := s.rolloverPending && s.rolloverGen == gen
		s.mu.RUnlock()
		if delayed {
			s.log.Warn(ctx, "rollover batch committed but no snapshot retrigger yet",
				"grace", rolloverGrace.String())
		}
	})
}

func (s *Store) endRolloverWait() {
	s.mu.Lock()
	s.rolloverPending = false
	s.mu.Unlock()
}

// openTimeBox subscribes to the planner document of one day, replacing any
// previous day's subscription.
func (s *Store) openTimeBox(ctx context.Context, dayKey string) error {
	owner := s.ownerID()
	docID := models.TimeBoxDocID(owner, dayKey)

	sub, err := s.docs.SubscribeDocument(ctx, models.CollectionTimeBox, docID)
	if err != nil {
		return err
	}

	subCtx, subCancel := context.WithCancel(ctx)

	s.timeBoxMu.Lock()
	if s.timeBoxSub != nil {
		s.timeBoxSub.Close()
	}
	if s.timeBoxCancel != nil {
		s.timeBoxCancel()
	}
	s.timeBoxSub = sub
	s.timeBoxCancel = subCancel
	s.timeBoxMu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case snap := <-sub.Snapshots():
				s.handleTimeBox(ctx, owner, dayKey, snap)
			case err := <-sub.Errs():
				s.reportError(ctx, "time-box subscription", err)
			case <-subCtx.Done():
				return
			}
		}
	}()
	return nil
}

func (s *Store) handleTimeBox(ctx context.Context, owner, dayKey string, snap docstore.DocSnapshot) {
	var tb *models.TimeBoxData
	if snap.Exists {
		tb = &models.TimeBoxData{}
		if err := json.Unmarshal(snap.Doc.Data, tb); err != nil {
			s.log.Warn(ctx, "skipping undecodable time-box document", "id", snap.Doc.ID, "error", err)
			return
		}
		tb.ID = snap.Doc.ID
		if tb.Entries == nil {
			tb.Entries = make(map[string]models.SlotPair)
		}
		if tb.Colors == nil {
			tb.Colors = make(map[string]string)
		}
	} else {
		// A new day has no stored document yet: synthesize an empty one.
		tb = models.NewTimeBoxData(owner, dayKey)
		tb.ID = snap.Doc.ID
	}

	s.mu.Lock()
	if s.dayKey != dayKey {
		// Stale delivery from a closed subscription after a day swap.
		s.mu.Unlock()
		return
	}
	s.timeBox = tb
	s.mu.Unlock()
	s.notifyChanged()
}

func (s *Store) openSettings(ctx context.Context) error {
	owner := s.ownerID()
	docID := models.SettingsDocID(owner, models.SettingsTodoBox)

	sub, err := s.docs.SubscribeDocument(ctx, models.CollectionSettings, docID)
	if err != nil {
		return err
	}
	s.addDisposer(sub.Close)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case snap := <-sub.Snapshots():
				s.handleSettings(ctx, owner, snap)
			case err := <-sub.Errs():
				s.reportError(ctx, "settings subscription", err)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (s *Store) handleSettings(ctx context.Context, owner string, snap docstore.DocSnapshot) {
	ws := models.DefaultTodoBoxSettings(owner)
	if snap.Exists {
		if err := json.Unmarshal(snap.Doc.Data, &ws); err != nil {
			s.log.Warn(ctx, "skipping undecodable settings document", "id", snap.Doc.ID, "error", err)
			return
		}
		ws.ID = models.SettingsTodoBox
	}

	s.mu.Lock()
	s.todoBox = &ws
	s.mu.Unlock()
	s.notifyChanged()
}

// startDayWatcher swaps the planner subscription and re-evaluates the todo
// rollover when the local calendar date advances while the app is open.
func (s *Store) startDayWatcher(ctx context.Context) {
	w := dateutil.NewWatcher(s.dayCheckInterval)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		w.Run(ctx)
	}()
	go func() {
		defer s.wg.Done()
		for {
			select {
			case key := <-w.Days():
				s.onDayChange(ctx, key)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *Store) onDayChange(ctx context.Context, key string) {
	s.mu.Lock()
	if s.dayKey == key {
		s.mu.Unlock()
		return
	}
	s.dayKey = key
	raw := s.rawTodos
	s.mu.Unlock()

	s.log.Info(ctx, "day boundary crossed", "day", key)

	if err := s.openTimeBox(ctx, key); err != nil {
		s.reportError(ctx, "reopening time-box subscription", err)
	}
	s.processTodos(ctx, raw)
}

// --- read side ---

// Notes returns the mirrored notes with any pending content drafts
// overlaid. Callers must not mutate the result.
func (s *Store) Notes() []models.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.drafts) == 0 {
		return s.notes
	}
	notes := make([]models.Note, len(s.notes))
	copy(notes, s.notes)
	for i := range notes {
		if o, ok := s.drafts[notes[i].ID]; ok {
			notes[i].Content = o.Value()
		}
	}
	return notes
}

func (s *Store) Files() []models.StoredFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.files
}

// Todos returns the visible, sorted list (never the raw snapshot).
func (s *Store) Todos() []models.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.todos
}

// TimeBox returns the current day's planner document, synthesized empty if
// nothing is stored yet.
func (s *Store) TimeBox() *models.TimeBoxData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.timeBox != nil {
		return s.timeBox
	}
	return models.NewTimeBoxData(s.ownerIDLocked(), s.dayKey)
}

func (s *Store) TodoBoxSettings() models.WidgetSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.todoBox != nil {
		return *s.todoBox
	}
	return models.DefaultTodoBoxSettings(s.ownerIDLocked())
}

// DayKey returns the date key the store currently considers "today".
func (s *Store) DayKey() string {
	return s.currentDayKey()
}

// Err returns the process-wide error banner text, empty when healthy.
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// ClearError dismisses the error banner.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()
	s.notifyChanged()
}

// Changed delivers a wake-up whenever any mirror or the error state
// changes. Events are conflated; consumers re-read everything they render.
func (s *Store) Changed() <-chan struct{} {
	return s.changed
}

// BeginNoteEdit starts an uncommitted content draft for one note; the
// draft shadows the synced content until the next snapshot or commit.
func (s *Store) BeginNoteEdit(id, draft string) {
	s.mu.Lock()
	o, ok := s.drafts[id]
	if !ok {
		for _, n := range s.notes {
			if n.ID == id {
				o = NewOverlay(n.Content)
				break
			}
		}
	}
	s.drafts[id] = o.Begin(draft)
	s.mu.Unlock()
	s.notifyChanged()
}

// --- internals ---

func (s *Store) notifyChanged() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

func (s *Store) currentDayKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dayKey
}

func (s *Store) ownerID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ownerIDLocked()
}

func (s *Store) ownerIDLocked() string {
	if s.session == nil {
		return ""
	}
	return s.session.UserID
}

// reportError classifies a failed remote operation and surfaces one
// human-readable message process-wide. Subscriptions and mirrors keep the
// last good state; nothing is retried automatically.
func (s *Store) reportError(ctx context.Context, op string, err error) {
	var msg string
	switch docstore.Classify(err) {
	case docstore.KindPermissionDenied:
		msg = "You don't have permission to do that."
	case docstore.KindUnavailable:
		msg = "The service is unavailable right now. Please try again."
	default:
		msg = "Something went wrong. Please try again."
	}

	s.log.Error(ctx, "remote operation failed", "op", op, "error", err)

	s.mu.Lock()
	s.errMsg = msg
	s.mu.Unlock()
	s.notifyChanged()
}
