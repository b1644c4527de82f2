package db

import "embed"

// MigrationFS embeds the token store schema from internal/db/migrations.
// Used by the migrate runner (cmd/migrate and cmd/client at startup).
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
