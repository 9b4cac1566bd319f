// Package db provides the embedded PostgreSQL schema.
package db

import _ "embed"

// Schema contains the DDL statements for the catalog and cart slot tables.
//
//go:embed migrations/001_schema.sql
var Schema string
