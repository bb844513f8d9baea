// Package db provides embedded database schema, migration and seed files.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// Items is the default catalog as a JSON array of items.
//
//go:embed seed/items.json
var Items []byte
