package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/akarpov/deskpad/internal/backup"
	"github.com/akarpov/deskpad/internal/cli"
	"github.com/akarpov/deskpad/internal/config"
	"github.com/akarpov/deskpad/internal/docstore"
	"github.com/akarpov/deskpad/internal/identity"
	"github.com/akarpov/deskpad/internal/logging"
	"github.com/akarpov/deskpad/internal/syncstore"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	logger := logging.NewJSON(os.Stderr, slog.LevelInfo)

	docs, err := docstore.NewPostgres(ctx, cfg.DatabaseDSN, logger)
	if err != nil {
		log.Printf("%v", err)
		return
	}
	defer docs.Close()

	provider := identity.NewLocalProvider(docs.Pool, []byte(cfg.TokenSecret), cfg.TokenTTL)
	store := syncstore.New(docs, logger)
	store.SetDayCheckInterval(cfg.DayCheckInterval)
	backupSvc := backup.NewService(docs, cfg, logger)

	app := cli.NewApp(cfg, provider, store, backupSvc)
	app.Run(ctx)

}
