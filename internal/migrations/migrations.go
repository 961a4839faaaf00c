// Package migrations registers the bun/migrate migration set for the
// SCIM resource store.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
