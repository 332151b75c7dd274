package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/back1ply/pagefetch/internal/sink"
	"github.com/back1ply/pagefetch/pkg/config"
	"github.com/back1ply/pagefetch/pkg/connector/rest"
	"github.com/back1ply/pagefetch/pkg/logger"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Environment overrides use the PAGEFETCH_ prefix, e.g.
	// PAGEFETCH_OUTPUT=out.ndjson or PAGEFETCH_TIMEOUT=10m.
	v := viper.New()
	v.SetEnvPrefix("pagefetch")
	v.AutomaticEnv()
	v.SetDefault("timeout", 30*time.Minute)
	v.SetDefault("log_level", "info")

	root := &cobra.Command{
		Use:   "pagefetch",
		Short: "pagefetch - paginated API fetcher with retries",
		Long: `pagefetch pulls every page of a paginated HTTP or GraphQL API into a
single row set, retrying transient failures with exponential backoff,
and writes the rows out as NDJSON or CSV.`,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pagefetch v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "validate <config.yaml>",
		Short: "Validate a job configuration without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(args[0])
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Printf("%s: OK\n", args[0])
			return nil
		},
	})

	var configFile, outputFile, logLevel string
	var timeout time.Duration

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a fetch job",
		Long: `Run a fetch job described by a YAML configuration file.

Example:
  pagefetch run --config connector.yaml --output out.ndjson`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("output") && v.IsSet("output") {
				outputFile = v.GetString("output")
			}
			if !cmd.Flags().Changed("timeout") && v.IsSet("timeout") {
				timeout = v.GetDuration("timeout")
			}
			if !cmd.Flags().Changed("log-level") && v.IsSet("log_level") {
				logLevel = v.GetString("log_level")
			}
			return runJob(configFile, outputFile, logLevel, timeout)
		},
	}

	runCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to job configuration YAML file (required)")
	_ = runCmd.MarkFlagRequired("config")
	runCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output path, overrides output.path from the config ('-' for stdout)")
	runCmd.Flags().DurationVar(&timeout, "timeout", v.GetDuration("timeout"), "Overall job timeout")
	runCmd.Flags().StringVar(&logLevel, "log-level", v.GetString("log_level"), "Log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newSessionID returns a random identifier tagging all log entries of
// one fetch job run.
func newSessionID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// runJob loads the configuration, fetches every page and writes the rows.
func runJob(configFile, outputFile, logLevel string, timeout time.Duration) error {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return err
	}
	if outputFile != "" {
		cfg.Output.Path = outputFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       logLevel,
		Encoding:    "json",
		OutputPaths: []string{"stderr"},
	}); err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionID, err := newSessionID()
	if err != nil {
		return err
	}
	ctx = logger.NewContext(ctx, sessionID, cfg.Name)
	log := logger.WithContext(ctx).With(zap.String("component", "pagefetch-cli"))

	source, engine, err := rest.Build(cfg, log)
	if err != nil {
		return err
	}

	log.Info("starting fetch",
		zap.String("config", configFile),
		zap.String("base_url", cfg.Request.BaseURL),
		zap.String("strategy", cfg.Pagination.Strategy))

	startTime := time.Now()

	result, err := engine.FetchAll(ctx, source.Producer())
	if err != nil {
		return err
	}

	duration := time.Since(startTime)
	log.Info("fetch completed",
		zap.Duration("duration", duration),
		zap.Int("pages", result.Pages),
		zap.Int("rows", len(result.Rows)))

	writer, err := sink.New(cfg.Output)
	if err != nil {
		return err
	}
	if err := writer.Write(result); err != nil {
		_ = writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	log.Info("rows written", zap.String("path", cfg.Output.Path))
	return nil
}
