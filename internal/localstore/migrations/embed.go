// Package migrations embeds the SQL migrations for the on-device cache.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
