// Package migrations embeds the goose SQL migrations for the deskpad
// database (document table, change-notification trigger, users).
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
