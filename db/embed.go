// Package db provides the embedded schema migrations.
package db

import "embed"

// Migrations holds the versioned up/down migration files applied at
// startup.
//
//go:embed migrations/*.sql
var Migrations embed.FS
