package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-scrape-stock/config"
	"github.com/aluiziolira/go-scrape-stock/directory"
	"github.com/aluiziolira/go-scrape-stock/ledger"
	"github.com/aluiziolira/go-scrape-stock/sheet"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries state shared by every subcommand once flags are parsed.
type app struct {
	configPath string
	verbose    bool
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "stocktracker",
		Short:         "stocktracker records storefront listings and reports unavailable products.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", os.Getenv("STOCKTRACKER_CONFIG"), "YAML configuration file")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	flags.String("backend", "", "Storage backend: csv, sqlite or postgres")
	flags.String("dsn", "", "Database DSN for sql backends")
	flags.Duration("timeout", 0, "Storefront request timeout")
	flags.Int("max-retries", 0, "Retry attempts for transient fetch failures")
	flags.String("filter", "", "Unavailable filter: not-in-stock or out-of-stock")

	root.AddCommand(newRunCmd(a), newQueryCmd(a), newBrandsCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Storage.Backend, _ = flags.GetString("backend")
	}
	if flags.Changed("dsn") {
		cfg.Storage.DSN, _ = flags.GetString("dsn")
	}
	if flags.Changed("timeout") {
		cfg.Timeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("max-retries") {
		cfg.MaxRetries, _ = flags.GetInt("max-retries")
	}
	if flags.Changed("filter") {
		cfg.OutOfStockFilter, _ = flags.GetString("filter")
	}
	if a.verbose {
		cfg.Verbose = true
	}

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg
	return nil
}

// stores bundles the opened workbook with the directory and ledger built on it.
type stores struct {
	workbook  *sheet.Workbook
	directory *directory.Directory
	ledger    *ledger.Store
	filter    ledger.StatusFilter
}

func (a *app) openStores(ctx context.Context) (*stores, error) {
	filter, err := ledger.ParseFilter(a.cfg.OutOfStockFilter)
	if err != nil {
		return nil, err
	}

	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	wb, err := sheet.Open(openCtx, a.cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", a.cfg.Storage.Backend, err)
	}
	dir, err := directory.Load(openCtx, wb.Registry, a.cfg.FallbackURLTemplate, a.cfg.SuggestCacheSize)
	if err != nil {
		wb.Close()
		return nil, fmt.Errorf("load brand directory: %w", err)
	}
	return &stores{
		workbook:  wb,
		directory: dir,
		ledger:    ledger.NewStore(wb.Ledger),
		filter:    filter,
	}, nil
}

func (s *stores) Close() {
	if err := s.workbook.Close(); err != nil {
		slog.Error("close storage", slog.Any("error", err))
	}
}

// newLogger writes to stderr so tables on stdout stay clean.
func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
