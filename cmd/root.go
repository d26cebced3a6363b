// Package cmd wires up the CLI flags and dispatches to the server core.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"aictl/config"
	"aictl/internal/core"
	"aictl/internal/decision"
	"aictl/internal/metrics"
	"aictl/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X aictl/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs the controller server.
func Execute(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("aictl", flag.ContinueOnError)

	var (
		configPath     string
		cadence        time.Duration
		readTimeout    time.Duration
		imageTimeout   time.Duration
		decisionBudget time.Duration
		noImages       bool
		concurrent     bool
		dumpDir        string
		seed           int64
		verbose        int
		dryRun         bool
		showVersion    bool
		showHelp       bool
	)

	// ── tuning ───────────────────────────────────────────────────
	fs.StringVarP(&configPath, "config", "c", "", "YAML config file")
	fs.DurationVar(&cadence, "cadence", config.DefaultSendCadence, "Command transmit interval")
	fs.DurationVar(&readTimeout, "read-timeout", config.DefaultReadTimeout, "State read poll timeout")
	fs.DurationVar(&imageTimeout, "image-timeout", config.DefaultImageTimeout, "Image fetch deadline")
	fs.DurationVar(&decisionBudget, "decision-budget", config.DefaultDecisionBudget, "Per-decision time budget")

	// ── behaviour ────────────────────────────────────────────────
	fs.BoolVar(&noImages, "no-images", false, "Never request screen dumps")
	fs.BoolVarP(&concurrent, "concurrent", "k", false, "Handle multiple game connections in parallel")
	fs.StringVarP(&dumpDir, "dump-frames", "d", "", "Write fetched frames as PNG into this directory")
	fs.Int64Var(&seed, "seed", 0, "RNG seed for the default decider (0 = time-based)")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVar(&dryRun, "dry-run", false, "Validate configuration and exit")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Printf("aictl %s\n", version)
		return nil
	}

	// .env is optional; anything it sets feeds the AICTL_* overlay.
	_ = godotenv.Load()

	// ── overlay: defaults → file → env → explicit flags ──────────
	cfg := config.Default()
	if configPath != "" {
		if err := config.LoadFile(configPath, cfg); err != nil {
			return err
		}
	}
	config.LoadFromEnv(cfg)

	if fs.Changed("cadence") {
		cfg.SendCadence = cadence
	}
	if fs.Changed("read-timeout") {
		cfg.ReadTimeout = readTimeout
	}
	if fs.Changed("image-timeout") {
		cfg.ImageTimeout = imageTimeout
	}
	if fs.Changed("decision-budget") {
		cfg.DecisionBudget = decisionBudget
	}
	if fs.Changed("no-images") {
		cfg.FetchImages = !noImages
	}
	if fs.Changed("concurrent") {
		cfg.Concurrent = concurrent
	}
	if fs.Changed("dump-frames") {
		cfg.DumpDir = dumpDir
	}
	if fs.Changed("seed") {
		cfg.Seed = seed
	}
	cfg.Verbose = verbose

	// ── positional argument: the listen port ─────────────────────
	if err := parsePort(cfg, fs.Args()); err != nil {
		printUsage(fs)
		return err
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}
	if dryRun {
		fmt.Println("configuration OK")
		return nil
	}

	// ── build components ─────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose + 1) // default normal; -v raises
	collector := metrics.New()

	mode := &core.ServeMode{
		Address:    util.FormatAddr(cfg.Host, cfg.Port),
		Concurrent: cfg.Concurrent,
		Config:     cfg,
		Decider:    decision.NewRandom(cfg.Seed),
		Logger:     logger,
		Metrics:    collector,
	}

	err := mode.Run(ctx)
	logger.Debug("final counters:\n%s", collector.JSON())
	return err
}

// ── helpers ──────────────────────────────────────────────────────────

func parsePort(cfg *config.Config, remaining []string) error {
	switch len(remaining) {
	case 0:
		if cfg.Port != 0 {
			return nil // supplied by config file or environment
		}
		return fmt.Errorf("port number is required")
	case 1:
		port, err := strconv.Atoi(remaining[0])
		if err != nil {
			return fmt.Errorf("port %q is not an integer", remaining[0])
		}
		cfg.Port = port
		return nil
	default:
		return fmt.Errorf("too many arguments")
	}
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `aictl – AI game controller server v%s

Listens on a loopback TCP port for a game process, streams its state
frames, and answers with AI-chosen command frames.

Usage:
  aictl [options] <port>

The port must match the one the game's player configuration assigns to
its AI peer.

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  aictl 9000                           Serve on 127.0.0.1:9000
  aictl -v --cadence 250ms 9000        Faster command cadence, verbose
  aictl --dump-frames ./frames 9000    Keep every fetched screen dump
  aictl -c aictl.yaml --dry-run        Validate configuration only
`)
}
