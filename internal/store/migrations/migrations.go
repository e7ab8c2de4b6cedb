// Package migrations embeds the store's schema migrations.
package migrations

import "embed"

// FS holds the numbered up/down SQL files applied by golang-migrate.
//
//go:embed *.sql
var FS embed.FS
