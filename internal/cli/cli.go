package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"bdsp-batch-editor/internal/catalog"
	"bdsp-batch-editor/internal/config"
	"bdsp-batch-editor/internal/filewalker"
	"bdsp-batch-editor/internal/locator"
	"bdsp-batch-editor/internal/roundtrip"
	"bdsp-batch-editor/internal/transform"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	debug   bool
	profile string
}

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var g globalFlags
	rootCmd := &cobra.Command{
		Use:          "bdspedit",
		Short:        "Batch editor for Pokemon BDSP masterdatas containers",
		Long:         "Extracts the data objects of a BDSP masterdatas container to JSON, rescales trainer Pokemon levels, and rebuilds the container.",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&g.profile, "profile", "", "Settings profile (default: "+config.ProfileFile+" if present)")

	rootCmd.AddCommand(listCmd(&g))
	rootCmd.AddCommand(extractCmd(&g))
	rootCmd.AddCommand(repackCmd(&g))
	rootCmd.AddCommand(resetCmd(&g))
	rootCmd.AddCommand(statsCmd(&g))
	rootCmd.AddCommand(previewCmd(&g))
	rootCmd.AddCommand(applyCmd(&g))
	rootCmd.AddCommand(detectCmd(&g))
	rootCmd.AddCommand(exportCmd(&g))
	rootCmd.AddCommand(watchCmd(&g))
	rootCmd.AddCommand(containerCmd(&g))

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// setupContext creates a cancellable context with signal handling.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			log.Warn().Msg("Received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// loadConfig reads settings and applies the log level.
func loadConfig(g *globalFlags) (*config.Config, error) {
	var cfg *config.Config
	if g.profile == "" {
		cfg = config.Load()
	} else {
		var err error
		if cfg, err = config.LoadProfile(g.profile); err != nil {
			return nil, fmt.Errorf("load profile: %w", err)
		}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if g.debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	return cfg, nil
}

// bounds returns the level bounds from cfg, overridden by the --min and
// --max flags that were given.
func bounds(cfg *config.Config, lf levelFlags) transform.Bounds {
	b := transform.Bounds{Min: int64(cfg.MinLevel), Max: int64(cfg.MaxLevel)}
	if lf.minSet {
		b.Min = lf.minLevel
	}
	if lf.maxSet {
		b.Max = lf.maxLevel
	}
	return b
}

// resolveFamily picks the family named by flag, or the one src looks like,
// or masterdatas.
func resolveFamily(flag, src string) (catalog.Family, error) {
	if flag != "" {
		f, ok := catalog.Lookup(flag)
		if !ok {
			return catalog.Family{}, fmt.Errorf("unknown family %q", flag)
		}
		return f, nil
	}
	if f, ok := filewalker.FileType(src); ok {
		return f, nil
	}
	return catalog.Masterdatas, nil
}

// interestOptions selects the object types to extract: explicit types win
// over the family's defaults.
func interestOptions(cfg *config.Config, f catalog.Family, types []string) []roundtrip.Option {
	if len(types) == 0 {
		types = f.Interest
	}
	return []roundtrip.Option{
		roundtrip.WithInterestTypes(types...),
		roundtrip.WithTempRoot(cfg.WorkDir),
	}
}

func newLocator(cfg *config.Config) (*locator.Locator, error) {
	return locator.New(cfg.LRUSize, cfg.WorkerCount)
}
