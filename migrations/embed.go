// Package migrations embeds the SQL migration files for the PostgreSQL
// store. They are applied with goose on Engine.Start.
package migrations

import "embed"

// FS holds the embedded migration files.
//
//go:embed *.sql
var FS embed.FS
