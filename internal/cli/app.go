// Package cli is the interactive shell over the sync store: list and edit
// notes, todos, attachments and the day planner from a prompt.
package cli

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/akarpov/deskpad/internal/backup"
	"github.com/akarpov/deskpad/internal/config"
	"github.com/akarpov/deskpad/internal/identity"
	"github.com/akarpov/deskpad/internal/syncstore"
)

// Identity is what the shell needs from the identity backend: the session
// lifecycle plus account creation.
type Identity interface {
	identity.Provider
	Register(ctx context.Context, login, name, password string) error
}

type App struct {
	config   *config.Config
	provider Identity
	store    *syncstore.Store
	backup   *backup.Service

	reader *bufio.Reader
	out    io.Writer

	backupCancel context.CancelFunc
}

func NewApp(c *config.Config, provider Identity, store *syncstore.Store, backupSvc *backup.Service) *App {
	return &App{
		config:   c,
		provider: provider,
		store:    store,
		backup:   backupSvc,
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}
}

func (a *App) Run(ctx context.Context) {
	defer a.store.Close()
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.provider.Current() != nil
}
