package docstore

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors of the store contract, matched with errors.Is.
var (
	ErrNotFound         = errors.New("document not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnavailable      = errors.New("store unavailable")
	ErrMissingIndex     = errors.New("missing index for ordered query")
	ErrClosed           = errors.New("store closed")
)

// Kind classifies a store failure for error-handling policy decisions.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindPermissionDenied
	KindUnavailable
	KindMissingIndex
)

// Classify maps an error from any store operation onto the taxonomy.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrClosed):
		return KindUnavailable
	case errors.Is(err, ErrMissingIndex):
		return KindMissingIndex
	default:
		return KindUnknown
	}
}

// wrapPgError folds a Postgres error into the sentinel taxonomy so callers
// never need to know SQLSTATEs.
func wrapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "42501": // insufficient_privilege
		return fmt.Errorf("%w: %s", ErrPermissionDenied, pgErr.Message)
	case "42P01", "42883": // undefined_table, undefined_function
		return fmt.Errorf("%w: %s", ErrMissingIndex, pgErr.Message)
	case "08000", "08003", "08006", "57P01", "57P02", "57P03":
		return fmt.Errorf("%w: %s", ErrUnavailable, pgErr.Message)
	default:
		return err
	}
}
