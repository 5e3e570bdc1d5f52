// Package migrations holds the PostgreSQL schema migrations.
package migrations

import "embed"

// FS contains every .sql migration, applied in name order
//
//go:embed *.sql
var FS embed.FS
