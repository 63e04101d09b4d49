package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lucashmcosta/estoque/internal/storage/postgres"
)

const commandTimeout = 30 * time.Second

const usage = `usage: migrate [flags] <up|down|status>

Applies schema migrations for the document mirror.

flags:
  -dsn string   PostgreSQL DSN (fallback: ESTOQUE_POSTGRES_DSN)
  -steps int    number of migrations to apply/rollback (0=all for up, 1 for down)
`

func main() {
	var (
		dsn   string
		steps int
	)

	flag.Usage = func() { _, _ = fmt.Fprint(os.Stderr, usage) }
	flag.StringVar(&dsn, "dsn", "", "PostgreSQL DSN (fallback: ESTOQUE_POSTGRES_DSN)")
	flag.IntVar(&steps, "steps", 0, "number of migrations to apply/rollback")
	flag.Parse()

	command := strings.ToLower(strings.TrimSpace(flag.Arg(0)))
	if command == "" {
		command = "status"
	}

	if strings.TrimSpace(dsn) == "" {
		dsn = strings.TrimSpace(os.Getenv("ESTOQUE_POSTGRES_DSN"))
	}
	if dsn == "" {
		fail("ESTOQUE_POSTGRES_DSN (or -dsn) is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := run(ctx, command, dsn, steps); err != nil {
		fail("%v", err)
	}
}

func run(ctx context.Context, command, dsn string, steps int) error {
	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return fmt.Errorf("open postgres store: %w", err)
	}
	defer store.Close()

	switch command {
	case "up":
		if err := store.MigrateUp(ctx, steps); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
	case "down":
		if steps <= 0 {
			steps = 1
		}
		if err := store.MigrateDown(ctx, steps); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
	case "status":
	default:
		return fmt.Errorf("unsupported command: %s (use up|down|status)", command)
	}

	version, applied, err := store.MigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("migration status: %w", err)
	}
	fmt.Printf("%s ok: version=%d applied=%d\n", command, version, applied)
	return nil
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
