// Package main is the entry point for reckctl, a command-line client built
// directly on the public recker.Client facade.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/forattini-dev/recker/client"
	"github.com/forattini-dev/recker/internal/auth"
	"github.com/forattini-dev/recker/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// Used to allow mocking in tests.
	osExit = os.Exit
)

// Persistent flags shared by every subcommand.
var (
	envFile        string
	configFile     string
	baseURL        string
	headerFlags    []string
	requestTimeout time.Duration
	maxAttempts    int
	bearerToken    string
	basicUser      string
	basicPass      string
	logLevel       string
	logFormat      string
	throwOnHTTPErr bool
)

var rootCmd = &cobra.Command{
	Use:   "reckctl",
	Short: "Command-line client for recker",
	Long:  `reckctl drives a recker.Client from the shell: get/post/batch requests and an interactive chat REPL over Server-Sent Events.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading RECKER_* environment variables")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config profile overlaying the environment defaults")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "base URL prepended to relative paths")
	rootCmd.PersistentFlags().StringArrayVar(&headerFlags, "header", nil, "extra request header as Name:Value, repeatable")
	rootCmd.PersistentFlags().DurationVar(&requestTimeout, "timeout", 0, "whole-request timeout (0 keeps the config default)")
	rootCmd.PersistentFlags().IntVar(&maxAttempts, "retry-max-attempts", 0, "retry attempt cap (0 keeps the config default)")
	rootCmd.PersistentFlags().StringVar(&bearerToken, "bearer-token", "", "attach a Bearer Authorization header")
	rootCmd.PersistentFlags().StringVar(&basicUser, "basic-user", "", "HTTP Basic auth username")
	rootCmd.PersistentFlags().StringVar(&basicPass, "basic-pass", "", "HTTP Basic auth password")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug/info/warn/error (empty keeps the config default)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "json/console (empty keeps the config default)")
	rootCmd.PersistentFlags().BoolVar(&throwOnHTTPErr, "throw-on-http-error", true, "return an error for non-2xx responses")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(chatCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		osExit(1)
	}
}

// loadDotenv loads envFile into the process environment when present,
// mirroring the teacher's optional best-effort .env loading.
func loadDotenv() {
	if envFile == "" {
		return
	}
	if _, err := os.Stat(envFile); err != nil {
		return
	}
	if err := godotenv.Load(envFile); err != nil {
		fmt.Fprintf(os.Stderr, "warning: error loading %s: %v\n", envFile, err)
	}
}

// buildClient assembles a recker.Client from RECKER_* environment
// variables (optionally overlaid by --config), then folds in the
// persistent CLI flags.
func buildClient() (*client.Client, error) {
	loadDotenv()

	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
	} else {
		cfg, err = config.New()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if requestTimeout > 0 {
		cfg.Timeout.Request = requestTimeout
	}
	if maxAttempts > 0 {
		cfg.Retry.MaxAttempts = maxAttempts
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	cfg.ThrowOnHTTPError = throwOnHTTPErr

	for _, h := range headerFlags {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return nil, fmt.Errorf("invalid --header %q, want Name:Value", h)
		}
		cfg.Headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}

	var opts []client.Option
	if provider := authProviderFromFlags(); provider != nil {
		opts = append(opts, client.WithAuth(provider))
	}

	return client.New(cfg, opts...)
}

func authProviderFromFlags() auth.Provider {
	switch {
	case bearerToken != "":
		return auth.NewBearer(bearerToken)
	case basicUser != "":
		return auth.NewBasic(basicUser, basicPass)
	default:
		return nil
	}
}
