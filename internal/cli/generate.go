package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/mark3labs/autoroute/internal/emitter/goemitter"
	"github.com/mark3labs/autoroute/internal/logger"
	"github.com/mark3labs/autoroute/internal/route"
)

// watchDebounce collapses the burst of events an editor save produces.
const watchDebounce = 250 * time.Millisecond

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate contracts, adapters and route infos for a package",
		Long: "Generate the response contracts, request adapters, docs and route infos of every " +
			"annotated handler in a package into a single file. Options can be provided via flags, " +
			"config files, or defaults.",
		Example: strings.TrimSpace(`  autoroute generate --dir ./api
  autoroute generate --trace --dry-run
  //go:generate autoroute generate`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	addPackageFlags(flags)
	flags.Bool("dry-run", false, "Preview the planned file without writing it")
	flags.Bool("force", false, "Overwrite an output file that was not generated by autoroute")
	flags.Bool("watch", false, "Regenerate whenever a Go file in the package changes")

	return cmd
}

func runGenerate(ctx context.Context, cfg *Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := cfg.newLogger()
	if !cfg.Watch {
		return generateOnce(ctx, cfg, log)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watch(ctx, cfg, log, func() {
		if err := generateOnce(ctx, cfg, log); err != nil {
			log.Error("generate failed", "err", err)
		}
	})
}

func generateOnce(ctx context.Context, cfg *Config, log *logger.Logger) error {
	opts, err := cfg.loadOptions(log)
	if err != nil {
		return newUsageError(err.Error())
	}
	log.Debug("loading package", "dir", cfg.Dir)
	pkg, err := route.Load(ctx, cfg.Dir, opts...)
	if err != nil {
		return wrapLoadError(err)
	}

	log.Debug("emitting", "package", pkg.Name, "handlers", len(pkg.Handlers))
	res, err := goemitter.Emit(ctx, pkg, goemitter.Options{
		Output:  cfg.Output,
		Force:   cfg.Force,
		DryRun:  cfg.DryRun,
		Verbose: cfg.Verbose,
		Logger:  log.Logger,
	})
	if err != nil {
		return wrapOutputError(err, pkg.Dir)
	}

	switch {
	case cfg.DryRun:
		printPlan(pkg.Dir, res.Planned)
	case res.Unchanged:
		log.Info("up to date", "file", filepath.Join(pkg.Dir, cfg.Output))
	default:
		log.Info("generated", "file", filepath.Join(pkg.Dir, cfg.Output),
			"size", humanize.Bytes(uint64(len(res.Source))), "handlers", len(res.Handlers))
	}
	return nil
}

func printPlan(outDir string, planned []goemitter.PlannedFile) {
	fmt.Fprintf(os.Stdout, "Planned writes to %s (%d files):\n", outDir, len(planned))
	for _, p := range planned {
		fmt.Fprintf(os.Stdout, "- %s (%s)\n", p.RelPath, humanize.Bytes(uint64(p.Size)))
	}
}

// watch runs fn once and then again after every settled change to a Go
// source of the package, until ctx is done.
func watch(ctx context.Context, cfg *Config, log *logger.Logger, fn func()) error {
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return newUsageError(fmt.Sprintf("resolve --dir: %v", err))
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return newUsageError(fmt.Sprintf("watch %s: %v", dir, err))
	}

	fn()
	log.Info("watching for changes", "dir", dir)

	timer := time.NewTimer(watchDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case <-ctx.Done():
			log.Debug("watch stopped")
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(ev, cfg.Output) {
				continue
			}
			log.Debug("change detected", "file", filepath.Base(ev.Name), "op", ev.Op.String())
			timer.Reset(watchDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "err", err)
		case <-timer.C:
			fn()
		}
	}
}

// relevant reports whether ev touches a source the loader reads. Writes to
// the generated file itself are ignored so a run does not retrigger itself.
func relevant(ev fsnotify.Event, output string) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(ev.Name)
	if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
		return false
	}
	return name != output
}

func wrapOutputError(err error, outDir string) error {
	if errors.Is(err, goemitter.ErrNotGenerated) {
		return newUsageError(fmt.Sprintf("output error for %s: %v\nHint: choose a different --output or use --force.", outDir, err))
	}
	// Provide clearer guidance for common FS failures.
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") || strings.Contains(lower, "output directory") {
		return newUsageError(fmt.Sprintf("output error for %s: %v\nHint: choose a different output location or use --force when appropriate.", outDir, err))
	}
	return err
}
