// Package migrations embeds the goose SQL migrations for the local clip
// database.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
