package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/oliverbestmann/strata/layout"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	goroutines  int
	entities    int
	lookups     int
	profileMode string
	verbose     bool
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:          "strata-bench",
		Short:        "Stress the first bind of entity types and time component lookups",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&opts.goroutines, "goroutines", runtime.GOMAXPROCS(0), "number of goroutines creating entities concurrently")
	flags.IntVar(&opts.entities, "entities", 10_000, "number of entities created per goroutine")
	flags.IntVar(&opts.lookups, "lookups", 10_000_000, "number of component lookups to time")
	flags.StringVar(&opts.profileMode, "profile", "", "write a profile: cpu or mem")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	return cmd
}

func run(cmd *cobra.Command, opts options) error {
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

	switch opts.profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	default:
		return fmt.Errorf("unknown profile mode %q", opts.profileMode)
	}

	registry := layout.NewRegistry()
	types := declare(registry)
	registry.Finalize()

	stats, err := stressFirstBind(registry, types, opts.goroutines, opts.entities)
	if err != nil {
		return fmt.Errorf("first bind stress test: %w", err)
	}

	slog.Info(
		"First bind stress test passed",
		slog.Int("goroutines", opts.goroutines),
		slog.Int("entities", stats.Entities),
		slog.Duration("duration", stats.Duration),
	)

	if opts.lookups <= 0 {
		return nil
	}

	for _, result := range timeLookups(registry, types, opts.lookups) {
		slog.Info(
			"Lookup timing",
			slog.String("operation", result.Name),
			slog.Float64("nsPerOp", float64(result.Duration.Nanoseconds())/float64(opts.lookups)),
		)
	}

	return nil
}

type Timing struct {
	Name     string
	Duration time.Duration
}
