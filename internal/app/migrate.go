package app

import (
	"context"
	"fmt"
	"slices"

	"github.com/AviRoy1988/receipe-api/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// MigrateCommands are the goose commands exposed by the CLI.
var MigrateCommands = []string{"up", "down", "status", "version"}

// Migrate runs a goose command ("up", "down", "status", "version") against
// the embedded migrations.
func Migrate(ctx context.Context, dsn, command string) error {
	if !slices.Contains(MigrateCommands, command) {
		return fmt.Errorf("goose: unsupported command %q", command)
	}
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return fmt.Errorf("goose open db: %w", err)
	}
	defer db.Close()

	if err := goose.RunContext(ctx, command, db, "."); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}
