package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/pathos-os/pathos/internal/config"
	"github.com/pathos-os/pathos/pkg/pathos"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var (
	configPath string
	jsonOutput bool

	// cfg is populated by the root PersistentPreRunE before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:               "pathos",
	Short:             "Pathos - career roadmap planner",
	Long:              "Generate a week-by-week career roadmap and track your progress through it.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file path (overrides PATHOS_CONFIG_PATH)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output in JSON format")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(roadmapCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads configuration and installs the default logger.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	slog.SetDefault(newLogger(cmd.ErrOrStderr(), cfg.Log))
	return nil
}

// newLogger builds the process logger. Logs go to w so they never mix
// with command output on stdout.
func newLogger(w io.Writer, lc config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(lc.Level)}
	if strings.EqualFold(lc.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newClient opens the Pathos client described by the loaded config.
func newClient() (*pathos.Client, error) {
	return pathos.New(pathos.Config{
		APIURL:          cfg.Client.APIURL,
		LocalPath:       config.ExpandHome(cfg.Client.DBPath),
		Timeout:         time.Duration(cfg.Client.Timeout),
		GenerateTimeout: time.Duration(cfg.Client.GenerateTimeout),
		SyncTimeout:     time.Duration(cfg.Sync.Timeout),
		Logger:          slog.Default().With("component", "client"),
	})
}

// withClient opens a client, runs fn and closes the client.
func withClient(fn func(c *pathos.Client) error) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			slog.Error("client close error", "error", err)
		}
	}()
	return fn(c)
}

// errNotSignedIn is returned when a command needs a session and there is none.
var errNotSignedIn = errors.New("not signed in, run `pathos login`")

// errSessionExpired is returned when the backend rejects the stored token.
var errSessionExpired = errors.New("session expired, run `pathos login`")

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// startWorker launches a background worker goroutine that respects context cancellation.
// Workers are tracked via WaitGroup for graceful shutdown.
func startWorker(ctx context.Context, wg *sync.WaitGroup, name string, fn func(ctx context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("worker started", "worker", name)
		fn(ctx)
		slog.Info("worker stopped", "worker", name)
	}()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	RunE: func(cmd *cobra.Command, args []string) error {
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]string{"version": Version})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pathos %s\n", Version)
		return nil
	},
}
