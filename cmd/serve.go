package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datalens-cli/internal/chat"
	cfgpkg "github.com/KaramelBytes/datalens-cli/internal/config"
	"github.com/KaramelBytes/datalens-cli/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web UI and HTTP API",
	Example: `  datalens serve
  datalens serve --addr 127.0.0.1:8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}
		log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		c := cfg
		if c == nil {
			c = &cfgpkg.Global{}
		}
		opts := server.Options{
			Addr:           c.ServerAddr,
			MaxUploadBytes: c.MaxUploadBytes(),
			SessionSecret:  c.SessionSecret,
			SessionIdle:    c.SessionIdle(),
		}
		if serveAddr != "" {
			opts.Addr = serveAddr
		}
		if opts.Addr == "" {
			opts.Addr = ":5000"
		}

		var completer chat.Completer
		if client, err := newChatClient(cfg); err != nil {
			log.Warn("chat disabled", "err", err)
		} else {
			completer = client
		}
		opts.Completer = completer

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.New(opts, log).Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :5000)")
}
