// Package database manages the SQLite connection for Meridian Core.
//
// It wraps database/sql with lifecycle management (open, migrate, health
// check, close) and embeds schema migrations into the binary via the
// migrations package.
//
// SQLite is deliberate: Meridian Core is a single-process deployment and
// the engine's write load (rule CRUD plus one execution row per firing)
// fits comfortably in a WAL-mode single-writer model.
package database
