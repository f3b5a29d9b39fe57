package commands

import (
	"context"
	"fmt"
)

const (
	MigrateUp     = "up"
	MigrateDown   = "down"
	MigrateStatus = "status"
)

// Migrate runs action against every registered module schema.
func Migrate(ctx context.Context, action string) error {
	app, pool, err := NewApplicationWithDefaults()
	if err != nil {
		return err
	}
	defer pool.Close()

	migrations := app.Migrations()
	switch action {
	case MigrateUp:
		return migrations.Up(ctx)
	case MigrateDown:
		return migrations.Down(ctx)
	case MigrateStatus:
		return migrations.Status(ctx)
	default:
		return fmt.Errorf("unknown migration action %q", action)
	}
}
