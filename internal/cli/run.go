package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/txledger/internal/config"
	"github.com/roach88/txledger/internal/csvio"
	"github.com/roach88/txledger/internal/engine"
	"github.com/roach88/txledger/internal/ledger"
	"github.com/roach88/txledger/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Sink     string
	Database string
	DSN      string
	Output   string

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <input.csv>",
		Short: "Apply a transaction CSV and write final account state",
		Long: `Process every instruction of the input CSV through the ledger pipeline
and write one row per client account to the selected sink.

Use "-" as the input to read from stdin. Settings come from defaults, the
--config file, LEDGER_* environment variables and flags, in increasing
order of precedence.

Example:
  txledger run transactions.csv > accounts.csv
  txledger run --sink json --output accounts.json transactions.csv
  txledger run --sink sqlite --db ./ledger.db transactions.csv`,
		Args:          usageArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedger(cmd, opts, args[0])
		},
	}

	addSinkFlags(cmd, opts)

	return cmd
}

func addSinkFlags(cmd *cobra.Command, opts *RunOptions) {
	cmd.Flags().StringVar(&opts.Sink, "sink", "", "output sink (csv|json|sqlite|postgres)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (sqlite sink)")
	cmd.Flags().StringVar(&opts.DSN, "dsn", "", "PostgreSQL connection string (postgres sink)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file for csv/json sinks (default stdout)")
}

func runLedger(cmd *cobra.Command, opts *RunOptions, input string) error {
	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg, opts.Verbose)
	slog.SetDefault(logger)

	src, closeInput, err := openInput(cmd, input)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open input", err)
	}
	defer closeInput()

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	sink, closeSink, err := openSink(ctx, cmd, cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open sink", err)
	}
	defer func() {
		if closeErr := closeSink(); closeErr != nil {
			logger.Error("error closing sink", "sink", cfg.Sink, "error", closeErr)
		}
	}()

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = engine.UUIDv7Generator{}
	}
	p := engine.NewPipeline(
		engine.WithLogger(logger),
		engine.WithRunIDGenerator(runIDs),
	)

	logger.Debug("pipeline starting", "input", input, "sink", cfg.Sink)
	result, err := p.Run(ctx, csvio.NewReader(src), sink)
	if err != nil {
		if engine.KindOf(err) != "" {
			return err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return WrapExitError(ExitFailure, "run interrupted", err)
		}
		return WrapExitError(ExitFailure, "run failed", err)
	}

	if ignored := result.Stats.TotalIgnored(); ignored > 0 {
		logger.Info("instructions ignored", "run_id", result.RunID, "count", ignored)
	}

	// Stdout already carries the account state for the csv/json sinks.
	if writesStdout(cfg) {
		return nil
	}
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	return f.Success(RunSummary{
		RunID:    result.RunID,
		Sink:     cfg.Sink,
		Accounts: len(result.Accounts),
		Decoded:  result.Stats.Decoded,
		Ignored:  result.Stats.TotalIgnored(),
	})
}

// RunSummary reports a run whose account state went to a file or database.
type RunSummary struct {
	RunID    string `json:"run_id"`
	Sink     string `json:"sink"`
	Accounts int    `json:"accounts"`
	Decoded  int    `json:"decoded"`
	Ignored  int    `json:"ignored"`
}

func (s RunSummary) String() string {
	return fmt.Sprintf("run %s: %d account(s) written to %s (%d decoded, %d ignored)",
		s.RunID, s.Accounts, s.Sink, s.Decoded, s.Ignored)
}

func writesStdout(cfg config.Config) bool {
	return (cfg.Sink == config.SinkCSV || cfg.Sink == config.SinkJSON) && cfg.Output == ""
}

// resolveConfig layers explicitly set flags over config.Load and validates
// the result.
func resolveConfig(cmd *cobra.Command, opts *RunOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("sink") {
		cfg.Sink = opts.Sink
	}
	if flags.Changed("db") {
		cfg.SQLitePath = opts.Database
	}
	if flags.Changed("dsn") {
		cfg.PostgresDSN = config.NormalizeDSN(opts.DSN)
	}
	if flags.Changed("output") {
		cfg.Output = opts.Output
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newLogger builds the run logger. --verbose forces debug level.
func newLogger(w io.Writer, cfg config.Config, verbose bool) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// openInput opens the input file, or stdin for "-".
func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

// openSink returns the sink selected by cfg and a function releasing it.
//
// File outputs are created only when the pipeline emits, so a failed run
// leaves no partial file behind.
func openSink(ctx context.Context, cmd *cobra.Command, cfg config.Config) (engine.Sink, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Sink {
	case config.SinkSQLite:
		st, err := store.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil

	case config.SinkPostgres:
		st, err := store.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil

	case config.SinkJSON:
		return fileSink(cmd, cfg.Output, func(w io.Writer) engine.Sink { return csvio.NewJSONWriter(w) }), noop, nil

	default:
		return fileSink(cmd, cfg.Output, func(w io.Writer) engine.Sink { return csvio.NewCSVWriter(w) }), noop, nil
	}
}

// fileSink writes through newWriter to path, or to the command's stdout
// when path is empty.
func fileSink(cmd *cobra.Command, path string, newWriter func(io.Writer) engine.Sink) engine.Sink {
	if path == "" {
		return newWriter(cmd.OutOrStdout())
	}
	return engine.SinkFunc(func(ctx context.Context, runID string, accounts []ledger.Account) error {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		if err := newWriter(f).Emit(ctx, runID, accounts); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	})
}
