package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/taskmgr/internal/config"
	"github.com/roach88/taskmgr/internal/csvfile"
	"github.com/roach88/taskmgr/internal/manager"
	"github.com/roach88/taskmgr/internal/store"
	"github.com/roach88/taskmgr/internal/task"
)

// DefaultConfigPath is read when --config is not given. A missing file
// means defaults.
const DefaultConfigPath = "taskmgr.yaml"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose      bool
	Format       string // "json" | "text"
	ConfigPath   string
	File         string
	DB           string
	HistoryLimit int
	Tolerant     bool

	// Resolved by the root PersistentPreRunE.
	config *config.Config
	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the taskmgr CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "taskmgr",
		Short: "taskmgr - tasks, epics and subtasks",
		Long: `A task tracker with epics whose status rolls up from their subtasks.

Items are kept in a CSV file by default, or in SQLite with --db. Every
change is saved as a full snapshot.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				f := &OutputFormatter{Format: "text", Writer: cmd.ErrOrStderr()}
				msg := fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
				return fail(f, ErrCodeArgument, ExitCommandError, msg)
			}
			return opts.resolve(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", DefaultConfigPath, "configuration file")
	cmd.PersistentFlags().StringVar(&opts.File, "file", "", "CSV file to use (selects the csv backend)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "SQLite database to use (selects the sqlite backend)")
	cmd.PersistentFlags().IntVar(&opts.HistoryLimit, "history-limit", 0, "most recent items remembered (0 = unlimited)")
	cmd.PersistentFlags().BoolVar(&opts.Tolerant, "tolerant", false, "skip unreadable CSV rows on load")

	// Add subcommands
	for _, kind := range task.Kinds {
		cmd.AddCommand(NewItemCommand(opts, kind))
	}
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewDemoCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewSnapshotsCommand(opts))
	cmd.AddCommand(NewInitCommand(opts))

	return cmd
}

// resolve loads the configuration file, applies flag overrides and builds
// the logger.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	f := &OutputFormatter{Format: o.Format, Writer: cmd.ErrOrStderr()}

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return fail(f, ErrCodeConfig, ExitCommandError, err.Error())
	}

	flags := cmd.Flags()
	if flags.Changed("file") && flags.Changed("db") {
		return fail(f, ErrCodeArgument, ExitCommandError, "--file and --db are mutually exclusive")
	}
	if flags.Changed("file") {
		cfg.Storage.Backend = config.BackendCSV
		cfg.Storage.Path = o.File
	}
	if flags.Changed("db") {
		cfg.Storage.Backend = config.BackendSQLite
		cfg.Storage.Path = o.DB
	}
	if flags.Changed("history-limit") {
		cfg.History.Limit = o.HistoryLimit
	}
	if flags.Changed("tolerant") {
		cfg.Load.Tolerant = o.Tolerant
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fail(f, ErrCodeConfig, ExitCommandError, err.Error())
	}

	o.config = cfg
	o.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	o.logger.Debug("configuration resolved",
		"backend", cfg.Storage.Backend,
		"path", cfg.Storage.Path,
		"history_limit", cfg.History.Limit,
	)
	return nil
}

// settings returns the resolved configuration, or the defaults when a
// command runs without the root command.
func (o *RootOptions) settings() (*config.Config, *slog.Logger) {
	if o.config == nil {
		return config.Default(), slog.Default()
	}
	return o.config, o.logger
}

// openStore opens the configured backend and restores the store from it.
// The returned func closes the backend.
func (o *RootOptions) openStore(ctx context.Context) (*manager.Persistent, func() error, error) {
	cfg, logger := o.settings()

	var backend manager.Backend
	closeBackend := func() error { return nil }

	switch cfg.Storage.Backend {
	case config.BackendCSV:
		backend = csvfile.New(cfg.Storage.Path,
			csvfile.WithTolerant(cfg.Load.Tolerant),
			csvfile.WithLogger(logger),
		)
	case config.BackendSQLite:
		st, err := store.Open(cfg.Storage.Path,
			store.WithRetain(cfg.Storage.Retain),
			store.WithLogger(logger),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("open database %s: %w", cfg.Storage.Path, err)
		}
		backend, closeBackend = st, st.Close
	default:
		backend = manager.NewMemoryBackend()
	}

	p, err := manager.Open(ctx, backend,
		manager.WithHistoryLimit(cfg.History.Limit),
		manager.WithLogger(logger),
	)
	if err != nil {
		closeBackend()
		return nil, nil, err
	}
	return p, closeBackend, nil
}

// formatter builds the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// withStore opens the store, runs fn and closes the backend.
func (o *RootOptions) withStore(cmd *cobra.Command, fn func(ctx context.Context, p *manager.Persistent, f *OutputFormatter) error) error {
	f := o.formatter(cmd)
	p, closeStore, err := o.openStore(cmd.Context())
	if err != nil {
		return fail(f, ErrCodeStorage, ExitCommandError, err.Error())
	}
	defer closeStore()
	return fn(cmd.Context(), p, f)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
