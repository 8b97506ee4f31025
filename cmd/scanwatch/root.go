package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	noColor   bool
	assumeYes bool
	flags     overrides
	cfg       *Config
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Monitor scans on a JS leak scanning backend",
	Long: `scanwatch submits scans to a JS leak scanning backend and follows them
stage by stage: discovered scripts, extracted endpoints, detected leaks with
their risk scores, and the pipeline log.

The scan being watched is remembered per profile, so running scanwatch again
picks it up where it left off. Without a subcommand scanwatch behaves like
"scanwatch watch".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			color.NoColor = true
		}

		cfg = defaultConfig()
		if cfgFile != "" {
			if err := loadConfig(cfgFile, cfg); err != nil {
				return err
			}
		}
		return flags.apply(cfg)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd.Context(), "")
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file path (YAML)")
	pf.StringVar(&flags.apiURL, "api-url", "", "backend base URL (or SCANWATCH_API_URL env)")
	pf.StringVar(&flags.profile, "profile", "", "state profile (or SCANWATCH_PROFILE env)")
	pf.StringVar(&flags.stateDB, "state-db", "", "state database path (or SCANWATCH_STATE_DB env)")
	pf.StringVar(&flags.githubToken, "github-token", "", "GitHub token for lookups (or SCANWATCH_GITHUB_TOKEN / GITHUB_TOKEN env)")
	pf.StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (or SCANWATCH_METRICS_ADDR env)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error, silent")
	pf.StringVar(&flags.interval, "interval", "", "poll interval, e.g. 3s (or SCANWATCH_POLL_INTERVAL env)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "verbose output")
	pf.BoolVar(&noColor, "no-color", false, "disable colour output")
	pf.BoolVarP(&assumeYes, "yes", "y", false, "answer yes to confirmations")

	rootCmd.Version = appVersion
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
	}()

	return rootCmd.ExecuteContext(ctx)
}

var (
	stdinOnce sync.Once
	stdinCh   chan string
)

// stdinLines returns the lines typed on stdin. The reader starts on first use
// and the channel is closed at EOF.
func stdinLines() <-chan string {
	stdinOnce.Do(func() {
		stdinCh = make(chan string)
		go func() {
			defer close(stdinCh)
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				stdinCh <- scanner.Text()
			}
		}()
	})
	return stdinCh
}

func isYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// withApp builds the shared components, runs fn and tears them down.
func withApp(ctx context.Context, fn func(a *app) error) error {
	a, err := newApp(ctx, cfg, os.Stdout, &stdinConfirmer{assume: assumeYes})
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}
