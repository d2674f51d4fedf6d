package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// LocalProvider is the bundled identity backend: a users table in the same
// database, bcrypt password verification and HS256 session tokens.
type LocalProvider struct {
	*broadcaster
	pool      *pgxpool.Pool
	secretKey []byte
	tokenTTL  time.Duration
}

func NewLocalProvider(pool *pgxpool.Pool, secretKey []byte, tokenTTL time.Duration) *LocalProvider {
	return &LocalProvider{
		broadcaster: newBroadcaster(),
		pool:        pool,
		secretKey:   secretKey,
		tokenTTL:    tokenTTL,
	}
}

// Register creates a user. The password is stored as a bcrypt hash only.
func (p *LocalProvider) Register(ctx context.Context, login, name, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	_, err = p.pool.Exec(ctx,
		`INSERT INTO users (id, login, name, password_hash) VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), login, name, string(hash))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrLoginTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (p *LocalProvider) SignIn(ctx context.Context, login, password string) (*Session, error) {
	var id, name, hash string
	err := p.pool.QueryRow(ctx,
		`SELECT id, name, password_hash FROM users WHERE login=$1`,
		login).Scan(&id, &name, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := GenerateToken(id, p.secretKey, p.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	s := &Session{UserID: id, Login: login, Name: name, Token: token}
	p.set(s)
	return s, nil
}

func (p *LocalProvider) SignOut(ctx context.Context) {
	p.set(nil)
}
