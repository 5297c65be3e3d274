// Package migrations embeds the SQL migrations for the hosted table service.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
