// Command tui edits one change order field in the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/JonMunkholm/changeorders/internal/config"
	"github.com/JonMunkholm/changeorders/internal/fieldstore"
	"github.com/JonMunkholm/changeorders/internal/host"
	"github.com/JonMunkholm/changeorders/internal/logging"
	"github.com/JonMunkholm/changeorders/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		store    config.StoreConfig
		fieldID  string
		logFile  string
		logLevel string
	)

	flagSet := pflag.NewFlagSet("changeorders-tui", pflag.ContinueOnError)
	flagSet.StringVar(&store.Driver, "store", "sqlite", "field store: sqlite, postgres or memory")
	flagSet.StringVar(&store.Path, "path", "data/fields.db", "sqlite database file")
	flagSet.StringVar(&store.URL, "dsn", os.Getenv("DATABASE_URL"), "postgres connection string")
	flagSet.StringVar(&fieldID, "field", "", "id of the field to edit (required)")
	flagSet.StringVar(&logFile, "log-file", "changeorders-tui.log", "write logs to this file")
	flagSet.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if fieldID == "" {
		printHelp(flagSet)
		return errors.New("--field is required")
	}

	// Logs go to a file so they do not tear the screen.
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	logger := logging.New(f, logLevel, "text")
	slog.SetDefault(logger)

	store.MaxConns, store.MinConns = 2, 1
	store.MaxConnLifetime, store.MaxConnIdleTime = time.Hour, 30*time.Minute

	ctx := context.Background()
	fields, err := fieldstore.Open(ctx, store)
	if err != nil {
		return fmt.Errorf("open field store: %w", err)
	}
	defer fields.Close()

	mgr := host.NewManager(fields, config.SessionConfig{MaxSessions: 1})
	sess, err := mgr.Open(ctx, fieldID, tui.NewSurface())
	if err != nil {
		return err
	}
	defer mgr.CloseAll()

	model, err := tui.New(ctx, sess)
	if err != nil {
		return err
	}

	logger.Info("editing field", "field_id", fieldID, "store", store.Driver)
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `changeorders-tui edits the change orders stored in one field.

Usage:
  changeorders-tui --field <id> [flags]

Examples:
  # Edit a field in the local sqlite store
  changeorders-tui --field job-1042

  # Edit a field in postgres
  changeorders-tui --store postgres --dsn postgres://localhost/app --field job-1042

Keys:
  up/down move, left/right change status, enter edit amount,
  a add, x delete, r reload, q quit

Flags:
`)
	flagSet.PrintDefaults()
}
