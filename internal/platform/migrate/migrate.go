// Package migrate runs the embedded goose migrations against PostgreSQL.
package migrate

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const dir = "migrations"

// Commands lists the goose commands accepted by Run.
var Commands = []string{"up", "down", "status", "version", "redo", "reset"}

// Run executes a goose command using the pool's connection settings.
func Run(ctx context.Context, pool *pgxpool.Pool, command string, args ...string) error {
	if pool == nil {
		return errors.New("platform/migrate: pool is required")
	}
	if !supported(command) {
		return fmt.Errorf("platform/migrate: unsupported command %q", command)
	}
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("platform/migrate: dialect: %w", err)
	}
	if err := goose.RunContext(ctx, command, sqlDB, dir, args...); err != nil {
		return fmt.Errorf("platform/migrate: %s: %w", command, err)
	}
	return nil
}

func supported(command string) bool {
	for _, c := range Commands {
		if c == command {
			return true
		}
	}
	return false
}
