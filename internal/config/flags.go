package config

import (
	"flag"
	"os"
	"time"

	"github.com/akarpov/deskpad/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   Postgres DSN of the document store
//	-s string   token signing secret
//	-b string   S3 bucket for backup exports (empty disables backups)
//	-i int      day check interval in seconds
//
// Only the flags listed here are parsed; os.Args is pre-filtered with
// flagx.FilterArgs so flags owned by other components pass through.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-s", "-b", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "Postgres DSN of the document store")
	fs.StringVar(&cfg.TokenSecret, "s", cfg.TokenSecret, "token signing secret")
	fs.StringVar(&cfg.S3Bucket, "b", cfg.S3Bucket, "S3 bucket for backup exports")
	dayCheckInterval := fs.Int("i", int(cfg.DayCheckInterval.Seconds()), "day check interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.DayCheckInterval = time.Duration(*dayCheckInterval) * time.Second
}
