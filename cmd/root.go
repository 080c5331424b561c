package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datalens-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/datalens-cli/internal/config"
)

var (
	cfgFile string
	debug   bool
	// Retry/HTTP flags (override config if set)
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int

	// Loaded configuration
	cfg    *cfgpkg.Global
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "datalens",
	Short: "DataLens: summarize a dataset and ask questions about it",
	Long: `DataLens loads a CSV, Excel or JSON dataset, prints a statistical summary,
and lets you chat with a language model about the data or render suggested charts.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(setupLogger, loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.datalens/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max attempts on 429/5xx (overrides config)")
}

func setupLogger() {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: summaries work without config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = flagRetryMaxAttempts
	}
}

// newChatClient builds the configured provider's chat client. It fails with
// the validation error when the LLM features are not configured.
func newChatClient(c *cfgpkg.Global) (*ai.ChatClient, error) {
	if c == nil {
		return nil, fmt.Errorf("no configuration loaded")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	provider := c.DefaultProvider
	if provider == "" {
		provider = ai.ProviderGroq
	}
	rt, err := ai.NewRuntime(provider, ai.RuntimeConfig{
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Host:        c.OllamaHost,
		HTTPTimeout: c.HTTPTimeout(),
		RetryMax:    c.RetryMaxAttempts,
		BaseDelay:   time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}
	model := c.DefaultModel
	if model == "" {
		model = ai.DefaultModel
	}
	getLogger().Debug("chat client ready", "provider", provider, "model", model)
	return ai.NewChatClient(rt, model, c.Temperature, c.MaxTokens), nil
}

// getLogger returns the CLI logger, falling back to a warn-level stderr
// handler when commands run without Execute (tests).
func getLogger() *slog.Logger {
	if logger == nil {
		setupLogger()
	}
	return logger
}
