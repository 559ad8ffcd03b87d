package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// command is one migrate subcommand. Commands with a nil schema func only
// touch the migrations directory.
type command struct {
	args   string
	help   string
	files  func(dir string, args []string, log *zap.Logger) error
	schema func(m *migration.Migrator, args []string, log *zap.Logger) error
}

var commands = map[string]command{
	"up":   {help: "Apply all pending migrations", schema: func(m *migration.Migrator, _ []string, _ *zap.Logger) error { return m.Up() }},
	"down": {help: "Roll back all migrations", schema: func(m *migration.Migrator, _ []string, _ *zap.Logger) error { return m.Down() }},
	"steps": {args: "<n>", help: "Apply n migrations, negative rolls back", schema: func(m *migration.Migrator, args []string, _ *zap.Logger) error {
		n, err := intArg(args, "step count")
		if err != nil {
			return err
		}
		return m.Steps(n)
	}},
	"goto": {args: "<version>", help: "Migrate up or down to version", schema: func(m *migration.Migrator, args []string, _ *zap.Logger) error {
		v, err := intArg(args, "version")
		if err != nil {
			return err
		}
		if v < 0 {
			return fmt.Errorf("version must be positive, got %d", v)
		}
		return m.GoTo(uint(v))
	}},
	"force": {args: "<version>", help: "Record version without running it", schema: func(m *migration.Migrator, args []string, _ *zap.Logger) error {
		v, err := intArg(args, "version")
		if err != nil {
			return err
		}
		return m.Force(v)
	}},
	"version": {help: "Show the applied schema version", schema: showVersion},
	"status":  {help: "Alias for version", schema: showVersion},
	"create": {args: "<name> [description]", help: "Write a new up/down migration pair", files: func(dir string, args []string, log *zap.Logger) error {
		if len(args) == 0 {
			return errors.New("migration name required")
		}
		desc := ""
		if len(args) > 1 {
			desc = args[1]
		}
		mf, err := migration.CreateMigration(dir, args[0], desc, time.Now())
		if err != nil {
			return err
		}
		log.Info("Migration created", zap.Uint("version", mf.Version), zap.String("up", mf.UpPath), zap.String("down", mf.DownPath))
		return nil
	}},
	"list": {help: "List migrations on disk", files: func(dir string, _ []string, _ *zap.Logger) error {
		found, err := migration.ListMigrations(dir)
		if err != nil {
			return err
		}
		for _, m := range found {
			if m.HasDown {
				fmt.Printf("  %s\n", m)
			} else {
				fmt.Printf("  %s (no down)\n", m)
			}
		}
		return nil
	}},
}

func main() {
	dir := flag.String("path", "", "migrations directory (default ./migrations)")
	level := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	name, args := flag.Arg(0), flag.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		usage()
		os.Exit(2)
	}

	log, err := logger.New(logger.Config{Level: *level, Format: "console", Output: "stdout", TimeFormat: time.DateTime})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	path, err := migrationsDir(*dir)
	if err != nil {
		log.Fatal("Cannot resolve migrations directory", zap.Error(err))
	}

	if cmd.files != nil {
		err = cmd.files(path, args, log)
	} else {
		err = withMigrator(path, log, func(m *migration.Migrator) error { return cmd.schema(m, args, log) })
	}
	if err != nil {
		log.Error("Migration command failed", zap.String("command", name), zap.Error(err))
		os.Exit(1)
	}
}

func withMigrator(path string, log *zap.Logger, fn func(*migration.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", cfg.Database.Host, err)
	}

	m, err := migration.New(db, path, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Closing migrator", zap.Error(err))
		}
	}()
	return fn(m)
}

func showVersion(m *migration.Migrator, _ []string, log *zap.Logger) error {
	st, err := m.Status()
	if err != nil {
		return err
	}
	if !st.Applied {
		log.Info("No migrations applied")
		return nil
	}
	log.Info("Schema version", zap.Uint("version", st.Version), zap.Bool("dirty", st.Dirty))
	return nil
}

func intArg(args []string, what string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%s required", what)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, args[0])
	}
	return n, nil
}

// migrationsDir defaults to ./migrations, then to the repo root relative to
// the binary in bin/<name>
func migrationsDir(flagValue string) (string, error) {
	if flagValue != "" {
		return filepath.Abs(flagValue)
	}
	if _, err := os.Stat("migrations"); err == nil {
		return filepath.Abs("migrations")
	}
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), "..", "migrations")
		if _, err := os.Stat(candidate); err == nil {
			return filepath.Abs(candidate)
		}
	}
	return filepath.Abs("migrations")
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintln(out, "Usage: migrate [flags] <command> [arguments]")
	fmt.Fprintln(out, "\nCommands:")
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		c := commands[n]
		fmt.Fprintf(out, "  %-28s %s\n", n+" "+c.args, c.help)
	}
	fmt.Fprintln(out, "\nFlags:")
	flag.PrintDefaults()
	fmt.Fprintln(out, "\nDatabase settings come from LEDGER_DATABASE_* or config.toml.")
}
