// Package migrations embeds the goose SQL files for the fleet archive so the
// logbookctl and the integration tests apply the same schema.
package migrations

import "embed"

// FS holds every *.sql migration.
//
//go:embed *.sql
var FS embed.FS
