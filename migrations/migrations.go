// Package migrations embeds the SQL schema of the registration archive.
package migrations

import "embed"

// FS holds the golang-migrate files at its root.
//
//go:embed *.sql
var FS embed.FS
