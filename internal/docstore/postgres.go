package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/akarpov/deskpad/internal/docstore/migrations"
	"github.com/akarpov/deskpad/internal/logging"
)

const notifyChannel = "deskpad_changes"

// requeryDebounce coalesces notification bursts (a batch commits one NOTIFY
// per touched row) into a single requery per subscription.
const requeryDebounce = 50 * time.Millisecond

// Postgres implements Store on a JSONB document table. Change streams come
// from a LISTEN connection fed by a row trigger, so writes from any session
// retrigger local subscriptions.
type Postgres struct {
	Pool *pgxpool.Pool

	dsn    string
	log    logging.Logger
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	colSubs map[*CollectionSub]*pgSubState
	docSubs map[*DocumentSub]*pgSubState
	closed  bool
}

// pgSubState is the requery loop of one subscription.
type pgSubState struct {
	collection string
	owner      string
	docID      string // empty for collection subscriptions
	dirty      chan struct{}
	stop       chan struct{}
}

func (st *pgSubState) markDirty() {
	select {
	case st.dirty <- struct{}{}:
	default:
	}
}

// NewPostgres connects, runs migrations and starts the notification
// listener.
func NewPostgres(ctx context.Context, dsn string, log logging.Logger) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", wrapPgError(err))
	}

	if err := runMigrations(ctx, dsn); err != nil {
		pool.Close()
		return nil, err
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	s := &Postgres{
		Pool:    pool,
		dsn:     dsn,
		log:     log,
		cancel:  cancel,
		done:    make(chan struct{}),
		colSubs: make(map[*CollectionSub]*pgSubState),
		docSubs: make(map[*DocumentSub]*pgSubState),
	}
	go s.listen(listenCtx)
	return s, nil
}

func runMigrations(ctx context.Context, dsn string) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	stdDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open stdlib connection: %w", err)
	}
	defer stdDB.Close()

	if err := goose.UpContext(ctx, stdDB, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, collection, id string) (Document, error) {
	var data []byte
	err := s.Pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection=$1 AND id=$2`,
		collection, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("failed to get document: %w", wrapPgError(err))
	}
	return Document{ID: id, Data: data}, nil
}

func (s *Postgres) List(ctx context.Context, q Query) ([]Document, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, data FROM documents WHERE collection=$1`)
	args := []any{q.Collection}
	if q.Owner != "" {
		sb.WriteString(` AND owner=$2`)
		args = append(args, q.Owner)
	}
	if q.OrderBy != "" {
		args = append(args, q.OrderBy)
		dir := "ASC"
		if q.Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, ` ORDER BY data->$%d %s, id ASC`, len(args), dir)
	} else {
		sb.WriteString(` ORDER BY id ASC`)
	}

	rows, err := s.Pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents: %w", wrapPgError(err))
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Data); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", wrapPgError(err))
	}
	return docs, nil
}

func (s *Postgres) Set(ctx context.Context, collection, id string, value any, merge bool) error {
	return s.Batch(ctx, []Op{{Kind: OpSet, Collection: collection, ID: id, Data: value, Merge: merge}})
}

func (s *Postgres) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return s.Batch(ctx, []Op{{Kind: OpUpdate, Collection: collection, ID: id, Fields: fields}})
}

func (s *Postgres) Delete(ctx context.Context, collection, id string) error {
	return s.Batch(ctx, []Op{{Kind: OpDelete, Collection: collection, ID: id}})
}

// Batch runs every op in one transaction. The row trigger emits the change
// notifications at commit, so subscribers see the batch as one change.
func (s *Postgres) Batch(ctx context.Context, ops []Op) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin batch: %w", wrapPgError(err))
	}
	defer tx.Rollback(ctx)

	for _, op := range ops {
		switch op.Kind {
		case OpSet:
			payload, err := json.Marshal(op.Data)
			if err != nil {
				return fmt.Errorf("encoding document: %w", err)
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)
				ON CONFLICT (collection, id) DO UPDATE SET
					data = CASE WHEN $4 THEN documents.data || excluded.data ELSE excluded.data END,
					updated_at = now()`,
				op.Collection, op.ID, payload, op.Merge)
			if err != nil {
				return fmt.Errorf("failed to upsert document: %w", wrapPgError(err))
			}
		case OpUpdate:
			payload, err := json.Marshal(op.Fields)
			if err != nil {
				return fmt.Errorf("encoding fields: %w", err)
			}
			res, err := tx.Exec(ctx, `
				UPDATE documents SET data = data || $3, updated_at = now()
				WHERE collection=$1 AND id=$2`,
				op.Collection, op.ID, payload)
			if err != nil {
				return fmt.Errorf("failed to update document: %w", wrapPgError(err))
			}
			if res.RowsAffected() == 0 {
				return fmt.Errorf("update %s/%s: %w", op.Collection, op.ID, ErrNotFound)
			}
		case OpDelete:
			_, err := tx.Exec(ctx,
				`DELETE FROM documents WHERE collection=$1 AND id=$2`,
				op.Collection, op.ID)
			if err != nil {
				return fmt.Errorf("failed to delete document: %w", wrapPgError(err))
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit batch: %w", wrapPgError(err))
	}
	return nil
}

func (s *Postgres) SubscribeCollection(ctx context.Context, q Query) (*CollectionSub, error) {
	// Validate the ordered query up front so an absent index surfaces as
	// ErrMissingIndex at subscribe time, not on the error channel.
	if q.OrderBy != "" {
		if _, err := s.List(ctx, q); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	st := &pgSubState{
		collection: q.Collection,
		owner:      q.Owner,
		dirty:      make(chan struct{}, 1),
		stop:       make(chan struct{}),
	}
	cs := &CollectionSub{}
	cs.inner = newSub[[]Document](func() {
		close(st.stop)
		s.mu.Lock()
		delete(s.colSubs, cs)
		s.mu.Unlock()
	})
	s.colSubs[cs] = st
	s.mu.Unlock()

	go s.requeryLoop(st, func(ctx context.Context) error {
		docs, err := s.List(ctx, q)
		if err != nil {
			cs.inner.fail(err)
			return err
		}
		cs.inner.publish(docs)
		return nil
	})
	st.markDirty()
	return cs, nil
}

func (s *Postgres) SubscribeDocument(ctx context.Context, collection, id string) (*DocumentSub, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	st := &pgSubState{
		collection: collection,
		docID:      id,
		dirty:      make(chan struct{}, 1),
		stop:       make(chan struct{}),
	}
	ds := &DocumentSub{}
	ds.inner = newSub[DocSnapshot](func() {
		close(st.stop)
		s.mu.Lock()
		delete(s.docSubs, ds)
		s.mu.Unlock()
	})
	s.docSubs[ds] = st
	s.mu.Unlock()

	go s.requeryLoop(st, func(ctx context.Context) error {
		doc, err := s.Get(ctx, collection, id)
		if errors.Is(err, ErrNotFound) {
			ds.inner.publish(DocSnapshot{Exists: false, Doc: Document{ID: id}})
			return nil
		}
		if err != nil {
			ds.inner.fail(err)
			return err
		}
		ds.inner.publish(DocSnapshot{Exists: true, Doc: doc})
		return nil
	})
	st.markDirty()
	return ds, nil
}

// requeryLoop reruns the subscription query whenever the listener marks the
// state dirty, debounced to absorb per-row notification bursts.
func (s *Postgres) requeryLoop(st *pgSubState, requery func(ctx context.Context) error) {
	for {
		select {
		case <-st.dirty:
		case <-st.stop:
			return
		}

		timer := time.NewTimer(requeryDebounce)
		select {
		case <-timer.C:
		case <-st.stop:
			timer.Stop()
			return
		}
		// Drain signals that arrived during the debounce window.
		select {
		case <-st.dirty:
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := requery(ctx); err != nil {
			s.log.Warn(ctx, "subscription requery failed", "collection", st.collection, "error", err)
		}
		cancel()
	}
}

// listen holds the dedicated notification connection, redialing on failure.
// After a reconnect every subscription is marked dirty: notifications may
// have been missed while the connection was down.
func (s *Postgres) listen(ctx context.Context) {
	defer close(s.done)
	for {
		if ctx.Err() != nil {
			return
		}
		if err := s.listenOnce(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn(ctx, "notification listener lost, reconnecting", "error", err)
			select {
			case <-time.After(3 * time.Second):
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *Postgres) listenOnce(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, s.dsn)
	if err != nil {
		return fmt.Errorf("failed to connect listener: %w", wrapPgError(err))
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return fmt.Errorf("failed to listen: %w", wrapPgError(err))
	}

	// Catch up on anything missed before the LISTEN took effect.
	s.markAllDirty()

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		s.dispatch(n.Payload)
	}
}

// dispatch routes one "collection:owner:id" payload to the matching
// subscriptions.
func (s *Postgres) dispatch(payload string) {
	parts := strings.SplitN(payload, ":", 3)
	if len(parts) != 3 {
		return
	}
	collection, owner, id := parts[0], parts[1], parts[2]

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.colSubs {
		if st.collection == collection && (st.owner == "" || st.owner == owner) {
			st.markDirty()
		}
	}
	for _, st := range s.docSubs {
		if st.collection == collection && st.docID == id {
			st.markDirty()
		}
	}
}

func (s *Postgres) markAllDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.colSubs {
		st.markDirty()
	}
	for _, st := range s.docSubs {
		st.markDirty()
	}
}

func (s *Postgres) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	colSubs := make([]*CollectionSub, 0, len(s.colSubs))
	for cs := range s.colSubs {
		colSubs = append(colSubs, cs)
	}
	docSubs := make([]*DocumentSub, 0, len(s.docSubs))
	for ds := range s.docSubs {
		docSubs = append(docSubs, ds)
	}
	s.mu.Unlock()

	for _, cs := range colSubs {
		cs.Close()
	}
	for _, ds := range docSubs {
		ds.Close()
	}
	s.cancel()
	<-s.done
	s.Pool.Close()
}
