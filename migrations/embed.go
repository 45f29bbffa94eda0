// Package migrations embeds the scan snapshot schema into the binary so the
// agent can create its SQLite tables on a fresh endpoint with no files beside it.
package migrations

import (
	"embed"

	"github.com/nerrad567/dockscan/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
