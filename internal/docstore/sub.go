package docstore

import "sync"

// sub is the shared delivery machinery of both subscription kinds. States
// are conflated: if the consumer lags, intermediate snapshots are replaced
// by the latest one, never reordered. Errors are advisory; the last good
// snapshot stays delivered.
type sub[T any] struct {
	snaps chan T
	errs  chan error

	mu        sync.Mutex
	latest    T
	hasLatest bool

	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	onClose   func()
}

func newSub[T any](onClose func()) *sub[T] {
	s := &sub[T]{
		snaps:   make(chan T),
		errs:    make(chan error, 4),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		onClose: onClose,
	}
	go s.run()
	return s
}

// publish replaces the pending snapshot and wakes the delivery loop.
func (s *sub[T]) publish(v T) {
	s.mu.Lock()
	s.latest = v
	s.hasLatest = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// fail reports an asynchronous subscription error without tearing down.
func (s *sub[T]) fail(err error) {
	select {
	case s.errs <- err:
	default:
	}
}

func (s *sub[T]) run() {
	for {
		select {
		case <-s.wake:
		case <-s.done:
			return
		}

		s.mu.Lock()
		if !s.hasLatest {
			s.mu.Unlock()
			continue
		}
		v := s.latest
		s.hasLatest = false
		s.mu.Unlock()

		select {
		case s.snaps <- v:
		case <-s.done:
			return
		}
	}
}

func (s *sub[T]) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.onClose != nil {
			s.onClose()
		}
	})
}

// CollectionSub is a live subscription on a collection query. Every emitted
// snapshot is the complete matching document set.
type CollectionSub struct {
	inner *sub[[]Document]
}

func (s *CollectionSub) Snapshots() <-chan []Document { return s.inner.snaps }
func (s *CollectionSub) Errs() <-chan error           { return s.inner.errs }
func (s *CollectionSub) Close()                       { s.inner.close() }

// DocumentSub is a live subscription on one document.
type DocumentSub struct {
	inner *sub[DocSnapshot]
}

func (s *DocumentSub) Snapshots() <-chan DocSnapshot { return s.inner.snaps }
func (s *DocumentSub) Errs() <-chan error            { return s.inner.errs }
func (s *DocumentSub) Close()                        { s.inner.close() }
