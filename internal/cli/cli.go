package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"keysync/internal/cache"
	"keysync/internal/config"
	"keysync/internal/metrics"
	"keysync/internal/plugin/htmlattr"
	"keysync/internal/reconcile"
	"keysync/internal/runner"
	"keysync/internal/status"
	"keysync/internal/watch"
)

// Exit codes.
const (
	exitOK            = 0
	exitFailure       = 1
	exitInvalidConfig = 2
)

// ErrIncomplete is returned by `status --strict` when a catalog lacks translations.
var ErrIncomplete = errors.New("translations are incomplete")

type globalFlags struct {
	configPath string
	root       string
	verbose    bool
}

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var g globalFlags
	rootCmd := &cobra.Command{
		Use:           "keysync",
		Short:         "Extract i18n keys from JavaScript and TypeScript sources",
		Long:          "Scans source files for translation calls and keeps per-locale catalogs in sync with the keys in use.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file (default keysync.yaml under --root)")
	rootCmd.PersistentFlags().StringVar(&g.root, "root", ".", "Project root that globs and output paths are relative to")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(extractCmd(&g))
	rootCmd.AddCommand(statusCmd(&g))

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, config.ErrInvalidConfig):
		return exitInvalidConfig
	default:
		return exitFailure
	}
}

type extractFlags struct {
	dryRun      bool
	ci          bool
	watch       bool
	syncPrimary bool
	syncAll     bool
	metricsFile string
	debounce    time.Duration
}

func extractCmd(g *globalFlags) *cobra.Command {
	var f extractFlags
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract keys and update every locale catalog",
		Long: `Walks the configured input files, collects translation keys and reconciles them
with the catalog of every locale and namespace. Existing translations are kept,
unused keys are removed unless preserved, and plural forms follow each locale's rules.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd.OutOrStdout(), g, f)
		},
	}

	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Report changes without writing catalogs")
	cmd.Flags().BoolVar(&f.ci, "ci", false, "Fail when any catalog would change; implies --dry-run")
	cmd.Flags().BoolVarP(&f.watch, "watch", "w", false, "Re-run when sources change")
	cmd.Flags().BoolVar(&f.syncPrimary, "sync-primary", false, "Overwrite primary values with source defaults")
	cmd.Flags().BoolVar(&f.syncAll, "sync-all", false, "Recompute every value from defaults")
	cmd.Flags().StringVar(&f.metricsFile, "metrics-file", "", "Write run metrics in Prometheus textfile format")
	cmd.Flags().DurationVar(&f.debounce, "debounce", watch.DefaultDebounce, "Quiet period before a watch re-run")
	cmd.MarkFlagsMutuallyExclusive("ci", "watch")

	return cmd
}

func statusCmd(g *globalFlags) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show translation progress per locale and namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.OutOrStdout(), g, strict)
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when any catalog is incomplete or has placeholder mismatches")
	return cmd
}

// setupContext creates a cancellable context with signal handling.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Warn().Msg("Received shutdown signal, cancelling...")
		cancel()
	}()

	return ctx, cancel
}

// loadConfig reads the config and sets the global log level from it.
func loadConfig(g *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(g.root, g.configPath)
	if err != nil {
		return nil, err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	if g.verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	return cfg, nil
}

// runExtract handles the `extract` command.
func runExtract(out io.Writer, g *globalFlags, f extractFlags) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}

	opts := runner.Options{
		Root:                    g.root,
		DryRun:                  f.dryRun,
		CI:                      f.ci,
		SyncPrimaryWithDefaults: f.syncPrimary,
		SyncAll:                 f.syncAll,
	}
	if f.metricsFile != "" {
		opts.Metrics = metrics.New()
	}
	if f.watch {
		c, err := cache.New(cache.DefaultSize)
		if err != nil {
			return fmt.Errorf("create extraction cache: %w", err)
		}
		opts.Cache = c
	}

	r, err := runner.New(cfg, opts, log.Logger)
	if err != nil {
		return fmt.Errorf("create runner: %w", err)
	}

	if !f.watch {
		rep, err := r.Run(ctx)
		report(out, rep, f.dryRun || f.ci)
		writeMetrics(opts.Metrics, f.metricsFile)
		return err
	}

	var extra []string
	if slices.Contains(cfg.Plugins, htmlattr.Name) {
		extra = cfg.HTML.Input
	}
	w, err := watch.New(g.root, r, extra, f.debounce, log.Logger)
	if err != nil {
		return err
	}
	return w.Watch(ctx, func(rep *runner.Report, err error) {
		report(out, rep, f.dryRun)
		writeMetrics(opts.Metrics, f.metricsFile)
		if err != nil {
			log.Warn().Err(err).Msg("Run finished with errors")
		}
	})
}

// report prints the changed catalogs. Dry runs include the merge patch of each one.
func report(out io.Writer, rep *runner.Report, dryRun bool) {
	if rep == nil {
		return
	}
	changed := rep.Changed()
	slices.SortFunc(changed, func(a, b *reconcile.Result) int { return strings.Compare(a.Path, b.Path) })
	for _, res := range changed {
		if !dryRun {
			fmt.Fprintf(out, "updated %s (+%d -%d)\n", res.Path, res.Added, res.Removed)
			continue
		}
		fmt.Fprintf(out, "would update %s (+%d -%d)\n", res.Path, res.Added, res.Removed)
		if patch, ok := rep.Patches[res.Path]; ok {
			fmt.Fprintf(out, "  %s\n", patch)
		}
	}
}

func writeMetrics(rec *metrics.Recorder, path string) {
	if path == "" {
		return
	}
	if err := rec.WriteTextfile(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to write metrics")
	}
}

// runStatus handles the `status` command.
func runStatus(out io.Writer, g *globalFlags, strict bool) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}

	rep, err := status.New(cfg, g.root, nil, log.Logger).Check(ctx)
	if err != nil {
		return err
	}
	if err := status.Render(out, rep, g.verbose); err != nil {
		return fmt.Errorf("render status: %w", err)
	}
	if strict && !rep.Complete() {
		return ErrIncomplete
	}
	return nil
}
