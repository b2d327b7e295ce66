// Package migrations embeds the account service schema migrations.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
