package ledger

import "embed"

// Migrations holds the PostgreSQL schema for the ledger, applied with
// database.NewEmbeddedMigrationRunner(Migrations, MigrationsDir, ...).
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations holding the SQL files.
const MigrationsDir = "migrations"
