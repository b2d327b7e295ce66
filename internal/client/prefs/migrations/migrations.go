// Package migrations embeds the schema migrations for the local preference
// database.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
