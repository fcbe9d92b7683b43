package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/ordering/internal/storage/postgres"
)

const (
	defaultTimeout = 30 * time.Second
	envPostgresDSN = "ORDERING_POSTGRES_DSN"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	err := run(ctx, os.Args[1:], os.Stdout)
	cancel()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run разбирает аргументы и выполняет миграции; вывод пишется в stdout.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("migrate", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	direction := flags.String("direction", "up", "migration direction: up|down|status")
	steps := flags.Int("steps", 0, "number of migrations to apply/rollback (0=all for up, 1 for down)")
	dsn := flags.String("dsn", "", "PostgreSQL DSN (fallback: "+envPostgresDSN+")")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	action := strings.ToLower(strings.TrimSpace(*direction))
	switch action {
	case "up", "down", "status":
	default:
		return fmt.Errorf("unsupported direction: %s (use up|down|status)", *direction)
	}

	source := strings.TrimSpace(*dsn)
	if source == "" {
		source = strings.TrimSpace(os.Getenv(envPostgresDSN))
	}
	if source == "" {
		return errors.New(envPostgresDSN + " (or -dsn) is required")
	}

	store, err := postgres.Open(ctx, source)
	if err != nil {
		return fmt.Errorf("open postgres store: %w", err)
	}
	defer store.Close()

	migrator, err := postgres.NewMigrator(store)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	switch action {
	case "up":
		applied, err := migrator.Up(ctx, *steps)
		if err != nil {
			return fmt.Errorf("migrate up failed: %w", err)
		}
		printMigrations(stdout, "applied", applied)
		return printStatus(ctx, stdout, migrator, "migrate up ok")
	case "down":
		rolledBack, err := migrator.Down(ctx, *steps)
		if err != nil {
			return fmt.Errorf("migrate down failed: %w", err)
		}
		printMigrations(stdout, "rolled back", rolledBack)
		return printStatus(ctx, stdout, migrator, "migrate down ok")
	default:
		return printStatus(ctx, stdout, migrator, "migration status")
	}
}

func printMigrations(w io.Writer, action string, migrations []postgres.Migration) {
	for _, m := range migrations {
		_, _ = fmt.Fprintf(w, "%s %04d_%s\n", action, m.Version, m.Name)
	}
}

func printStatus(ctx context.Context, w io.Writer, migrator *postgres.Migrator, title string) error {
	status, err := migrator.Status(ctx)
	if err != nil {
		return fmt.Errorf("migration status failed: %w", err)
	}
	_, _ = fmt.Fprintf(w, "%s: version=%d applied=%d pending=%d\n", title, status.CurrentVersion, status.Applied, len(status.Pending))
	return nil
}
