// Command quiz-pipeline-admin provides operational tooling for the quiz
// generation pipeline: migrations, manual enqueueing, run inspection, and
// cache maintenance.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/target/quiz-pipeline/config"
	"github.com/target/quiz-pipeline/internal/bootstrap"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const defaultCommandTimeout = 2 * time.Minute

func main() {
	os.Exit(dispatch(os.Args[1:])) //nolint:forbidigo // CLI exit status is the contract with shell scripts
}

func dispatch(args []string) int {
	logger := bootstrap.InitLogger()

	if len(args) == 0 {
		printUsage(os.Stderr)
		return 2
	}

	cmd, ok := commands()[args[0]]
	if !ok {
		writef(os.Stderr, "unknown command %q\n\n", args[0])
		printUsage(os.Stderr)
		return 2
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		return 1
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, args[1:]); runErr != nil {
		logger.Error("command failed", "command", cmd.name, "error", runErr)
		return 1
	}
	return 0
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrations,
		},
		"enqueue": {
			name:        "enqueue",
			description: "Enqueue a fresh generation request for a subject",
			run:         runEnqueue,
		},
		"status": {
			name:        "status",
			description: "Show the latest generation run and question count for a subject",
			run:         runStatus,
		},
		"reap": {
			name:        "reap",
			description: "Delete old completed generation runs once and exit",
			run:         runReap,
		},
		"clear-question-cache": {
			name:        "clear-question-cache",
			description: "Drop the cached question texts for a subject from Redis",
			run:         runClearQuestionCache,
		},
	}
}

func printUsage(w io.Writer) {
	writef(w, "Usage: quiz-pipeline-admin <command> [flags]\n\nAvailable commands:\n")

	all := commands()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		writef(w, "  %-24s %s\n", name, all[name].description)
	}
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	timeout := fs.Duration("timeout", 5*time.Minute, "migration timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	cmdCtx.Logger.Info("running database migrations")

	if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
		return fmt.Errorf("run migrations: %w", migrateErr)
	}

	cmdCtx.Logger.Info("migrations completed successfully")
	return nil
}

func parseSubjectFlag(name string, args []string) (int64, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	subjectID := fs.Int64("subject", 0, "subject id (required)")
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	if *subjectID <= 0 {
		return 0, errors.New("-subject is required and must be positive")
	}
	return *subjectID, nil
}

// writef ignores write errors: there is no useful recovery when stdout or
// stderr is gone.
func writef(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
