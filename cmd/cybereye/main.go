package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Mrutyunjaya98Gouda/CyberEye/internal/aggregate"
	"github.com/Mrutyunjaya98Gouda/CyberEye/internal/archive"
	"github.com/Mrutyunjaya98Gouda/CyberEye/internal/candidates"
	"github.com/Mrutyunjaya98Gouda/CyberEye/internal/config"
	"github.com/Mrutyunjaya98Gouda/CyberEye/internal/detect"
	"github.com/Mrutyunjaya98Gouda/CyberEye/internal/engine"
	"github.com/Mrutyunjaya98Gouda/CyberEye/internal/guard"
	"github.com/Mrutyunjaya98Gouda/CyberEye/internal/output"
	"github.com/Mrutyunjaya98Gouda/CyberEye/internal/probe"
	"github.com/Mrutyunjaya98Gouda/CyberEye/internal/score"
	"github.com/Mrutyunjaya98Gouda/CyberEye/internal/server"
	"github.com/Mrutyunjaya98Gouda/CyberEye/internal/store"
)

// Set via ldflags at build time.
var version = "dev"

func main() {
	output.Version = version

	rootCmd := &cobra.Command{
		Use:   "cybereye",
		Short: "Discover and risk-rank the subdomain attack surface",
		Long:  "Subdomain reconnaissance pipeline: wordlist and CT-log candidate generation, DNS resolution, HTTP probing, cloud/takeover/anomaly detection, and deterministic risk scoring.",
	}
	rootCmd.AddCommand(scanCommand(), serveCommand())

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("cybereye {{.Version}}\n")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func scanCommand() *cobra.Command {
	var (
		jsonOutput  bool
		timeout     time.Duration
		concurrency int
		noColor     bool
		silent      bool
		verbose     bool
		configPath  string
		noStore     bool

		noCT        bool
		noWordlist  bool
		noProbe     bool
		noFingerpr  bool
		noTakeovers bool
	)

	cmd := &cobra.Command{
		Use:   "scan <domain>",
		Short: "Run a full scan against one target domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain := strings.ToLower(strings.TrimSpace(args[0]))
			if domain == "" {
				return fmt.Errorf("domain is required")
			}

			// Respect NO_COLOR env var.
			if _, ok := os.LookupEnv("NO_COLOR"); ok {
				noColor = true
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("timeout") {
				cfg.ProbeTimeout = timeout
			}
			if cmd.Flags().Changed("concurrency") {
				cfg.Workers = concurrency
			}

			opts := engine.DefaultOptions()
			opts.CTLookup = !noCT
			opts.WordlistBruteforce = !noWordlist
			opts.HTTPProbe = !noProbe
			opts.TechFingerprint = !noFingerpr
			opts.TakeoverCheck = !noTakeovers

			req := engine.ScanRequest{
				ScanID:       uuid.NewString(),
				TargetDomain: domain,
				Options:      opts,
			}

			var st engine.Store = nopStore{}
			if !noStore {
				db, err := store.Open(cfg.DatabasePath)
				if err != nil {
					return fmt.Errorf("open database: %w", err)
				}
				defer db.Close()
				if err := db.CreateScan(cmd.Context(), req); err != nil {
					return fmt.Errorf("create scan: %w", err)
				}
				st = db
			}

			// Set up context with signal handling for clean Ctrl+C.
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt)
			go func() {
				<-sigCh
				fmt.Fprintln(os.Stderr, "\nInterrupted, cleaning up...")
				cancel()
			}()

			// Progress output.
			showProgress := !jsonOutput && !silent
			progress := output.NewProgress(os.Stderr, verbose, !showProgress)

			if showProgress {
				output.WriteHeader(os.Stderr, noColor)
			}

			stages := buildStages(cfg, st, progress)
			result, err := engine.Run(ctx, req, engine.Config{Workers: cfg.Workers}, stages, progress)
			if err != nil {
				return err
			}

			if showProgress {
				progress.Complete()
			}

			if jsonOutput {
				return output.WriteJSON(os.Stdout, result)
			}

			output.WriteTable(os.Stdout, result, noColor)
			output.WriteSummary(os.Stdout, result, noColor)

			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output structured JSON to stdout")
	cmd.Flags().DurationVar(&timeout, "timeout", probe.DefaultTimeout, "Per-probe timeout")
	cmd.Flags().IntVar(&concurrency, "concurrency", 10, "Max concurrent candidate workers")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable terminal colors")
	cmd.Flags().BoolVar(&silent, "silent", false, "Results only, no progress")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose per-stage progress")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to YAML config file")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "Skip persisting results to the database")
	cmd.Flags().BoolVar(&noCT, "no-ct", false, "Skip certificate transparency lookup")
	cmd.Flags().BoolVar(&noWordlist, "no-wordlist", false, "Skip wordlist and permutation candidates")
	cmd.Flags().BoolVar(&noProbe, "no-probe", false, "Skip HTTP/HTTPS probing")
	cmd.Flags().BoolVar(&noFingerpr, "no-fingerprint", false, "Skip technology fingerprinting")
	cmd.Flags().BoolVar(&noTakeovers, "no-takeover", false, "Skip subdomain takeover checks")

	return cmd
}

func serveCommand() *cobra.Command {
	var (
		configPath string
		listenAddr string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scan API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				cfg.ListenAddr = listenAddr
			}

			db, err := store.Open(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

			// API scans run without terminal progress. Stages are built
			// per scan so the per-host limiter state is never shared
			// across concurrent scans.
			progress := output.NewProgress(os.Stderr, false, true)
			run := func(ctx context.Context, req engine.ScanRequest) (*engine.ScanResult, error) {
				stages := buildStages(cfg, db, progress)
				return engine.Run(ctx, req, engine.Config{Workers: cfg.Workers}, stages, progress)
			}

			srv := server.New(db, run, logger)
			logger.Info("listening", "addr", cfg.ListenAddr)
			return srv.Router().Run(cfg.ListenAddr)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to YAML config file")
	cmd.Flags().StringVar(&listenAddr, "listen", ":8080", "Listen address")

	return cmd
}

// buildStages wires concrete stage implementations from the config.
func buildStages(cfg config.Config, st engine.Store, progress engine.ProgressReporter) engine.Stages {
	userAgent := fmt.Sprintf("cybereye/%s (+https://github.com/Mrutyunjaya98Gouda/CyberEye)", version)

	return engine.Stages{
		Validator: guard.Guard{},
		Generator: &candidates.Generator{
			CT:       &candidates.CTClient{UserAgent: userAgent},
			Progress: progress,
		},
		Resolver: &probe.Resolver{DoHURL: cfg.ResolverURL},
		Prober:   probe.NewProber(userAgent, cfg.ProbeTimeout, cfg.BodyLimit, probe.NewHostLimiter(cfg.HostInterval)),
		Detector: detect.Detector{},
		Scorer:   score.Scorer{},
		Archiver: archive.NewClient(userAgent),
		Aggregator: &aggregate.Batcher{
			Store:     st,
			BatchSize: cfg.BatchSize,
			Progress:  progress,
		},
		Store: st,
	}
}

// nopStore satisfies the store contract for --no-store runs.
type nopStore struct{}

func (nopStore) MarkRunning(context.Context, string) error                          { return nil }
func (nopStore) MarkCompleted(context.Context, string, engine.ScanSummary) error    { return nil }
func (nopStore) MarkFailed(context.Context, string, string) error                   { return nil }
func (nopStore) InsertRecords(context.Context, string, []engine.SubdomainRecord) error { return nil }
func (nopStore) Stopped(context.Context, string) (bool, error)                      { return false, nil }
