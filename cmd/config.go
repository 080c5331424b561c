package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datalens-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/datalens-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set DataLens configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			_, _ = fmt.Fprintln(out, "No config loaded")
			return nil
		}
		_, _ = fmt.Fprintf(out, "api_key: %s\n", mask(cfg.APIKey))
		_, _ = fmt.Fprintf(out, "default_provider: %s\n", cfg.DefaultProvider)
		_, _ = fmt.Fprintf(out, "default_model: %s\n", cfg.DefaultModel)
		if cfg.BaseURL != "" {
			_, _ = fmt.Fprintf(out, "base_url: %s\n", cfg.BaseURL)
		}
		if cfg.OllamaHost != "" {
			_, _ = fmt.Fprintf(out, "ollama_host: %s\n", cfg.OllamaHost)
		}
		_, _ = fmt.Fprintf(out, "max_tokens: %d\n", cfg.MaxTokens)
		_, _ = fmt.Fprintf(out, "temperature: %.3f\n", cfg.Temperature)
		_, _ = fmt.Fprintf(out, "http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
		_, _ = fmt.Fprintf(out, "retry_max_attempts: %d\n", cfg.RetryMaxAttempts)
		_, _ = fmt.Fprintf(out, "retry_base_delay_ms: %d\n", cfg.RetryBaseDelayMs)
		_, _ = fmt.Fprintf(out, "retry_max_delay_ms: %d\n", cfg.RetryMaxDelayMs)
		_, _ = fmt.Fprintf(out, "server_addr: %s\n", cfg.ServerAddr)
		_, _ = fmt.Fprintf(out, "max_upload_mb: %d\n", cfg.MaxUploadMB)
		_, _ = fmt.Fprintf(out, "session_secret: %s\n", mask(cfg.SessionSecret))
		_, _ = fmt.Fprintf(out, "session_idle_minutes: %d\n", cfg.SessionIdleMinutes)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := setConfigValue(cfg, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "api_key":
		c.APIKey = val
	case "default_model":
		c.DefaultModel = val
	case "default_provider":
		p := strings.ToLower(strings.TrimSpace(val))
		if p == "local" {
			p = ai.ProviderOllama
		}
		for _, known := range ai.Providers() {
			if p == known {
				c.DefaultProvider = p
				return nil
			}
		}
		return fmt.Errorf("invalid default_provider: %s (use %s)", val, strings.Join(ai.Providers(), ", "))
	case "base_url":
		c.BaseURL = val
	case "ollama_host":
		c.OllamaHost = val
	case "server_addr":
		c.ServerAddr = val
	case "session_secret":
		c.SessionSecret = val
	case "temperature":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 || f > 2 {
			return fmt.Errorf("invalid float for temperature: %v", val)
		}
		c.Temperature = f
	case "max_tokens", "http_timeout_sec", "retry_max_attempts", "retry_base_delay_ms",
		"retry_max_delay_ms", "max_upload_mb", "session_idle_minutes":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		*intField(c, key) = i
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func intField(c *cfgpkg.Global, key string) *int {
	switch key {
	case "max_tokens":
		return &c.MaxTokens
	case "http_timeout_sec":
		return &c.HTTPTimeoutSec
	case "retry_max_attempts":
		return &c.RetryMaxAttempts
	case "retry_base_delay_ms":
		return &c.RetryBaseDelayMs
	case "retry_max_delay_ms":
		return &c.RetryMaxDelayMs
	case "max_upload_mb":
		return &c.MaxUploadMB
	default:
		return &c.SessionIdleMinutes
	}
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
