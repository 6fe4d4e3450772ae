// Package migrations embeds the goose schema migrations, one directory per
// SQL dialect.
package migrations

import "embed"

// Directories inside FS.
const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
