// voiceloop - push-to-talk voice assistant.
// Records an utterance, transcribes it, asks a chat model for a reply and
// speaks the reply back, either from the terminal or a web control API.
//
//	voiceloop                 terminal UI
//	voiceloop web --addr :80  web control API
//	voiceloop history -n 10   recent turns from the sqlite store
package main

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-voiceloop/internal/config"
	"github.com/teslashibe/go-voiceloop/internal/log"
	"github.com/teslashibe/go-voiceloop/internal/tui"
	"github.com/teslashibe/go-voiceloop/pkg/assistant"
	"github.com/teslashibe/go-voiceloop/pkg/history"

	_ "github.com/teslashibe/go-voiceloop/pkg/codec/opus"
)

var (
	envFile string
	logFile string
	debug   bool
)

func main() {
	root := &cobra.Command{
		Use:           "voiceloop",
		Short:         "Push-to-talk voice assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runTUI,
	}
	root.PersistentFlags().StringVar(&envFile, "env", "", "env file to load (default .env when present)")
	root.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file (the tui discards logs otherwise)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(webCmd(), historyCmd())

	if err := root.Execute(); err != nil {
		stdlog.Fatalf("❌ %v", err)
	}
}

func webCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve the HTTP control API and status feed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, closeLog, err := setup(os.Stdout)
			if err != nil {
				return err
			}
			defer closeLog()
			if addr == "" {
				addr = ":" + cfg.WebPort
			}
			return withApp(cmd.Context(), cfg, logger, func(ctx context.Context, app *assistant.App) error {
				if err := app.Session().Initialize(ctx); err != nil {
					logger.Warn("initialization failed, reset and initialize through the API", "error", err)
				}
				return app.Serve(ctx, addr)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :WEB_PORT)")
	return cmd
}

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recent turns from the sqlite history store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, closeLog, err := setup(io.Discard)
			if err != nil {
				return err
			}
			defer closeLog()
			if cfg.HistoryBackend != config.HistorySQLite {
				return fmt.Errorf("history backend %q cannot be read, set HISTORY_BACKEND=sqlite", cfg.HistoryBackend)
			}
			store, err := history.OpenSQLite(cfg.HistoryPath)
			if err != nil {
				return err
			}
			defer store.Close()

			recs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range recs {
				fmt.Fprintf(out, "%s  %6.0fms\n  you: %s\n  ai:  %s\n",
					r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.ProcessingTimeMs, r.UserInput, r.AIResponse)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of turns")
	return cmd
}

func runTUI(cmd *cobra.Command, _ []string) error {
	cfg, logger, closeLog, err := setup(io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()
	return withApp(cmd.Context(), cfg, logger, func(ctx context.Context, app *assistant.App) error {
		p := tea.NewProgram(tui.New(ctx, app.Session()), tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && ctx.Err() == nil {
			return fmt.Errorf("terminal ui: %w", err)
		}
		return nil
	})
}

// setup loads configuration and initializes logging. Logs go to
// --log-file when set, otherwise to fallback.
func setup(fallback io.Writer) (config.Config, *slog.Logger, func(), error) {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("configuration: %w", err)
	}
	if debug {
		cfg.LogLevel = "debug"
	}

	out, closeLog := fallback, func() {}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return cfg, nil, nil, fmt.Errorf("log file: %w", err)
		}
		out, closeLog = f, func() { f.Close() }
	}
	log.InitWriter(cfg.LogLevel, out)
	return cfg, log.L(), closeLog, nil
}

func withApp(parent context.Context, cfg config.Config, logger *slog.Logger, run func(context.Context, *assistant.App) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := assistant.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	if err := app.Init(ctx); err != nil {
		return fmt.Errorf("initialization: %w", err)
	}
	defer func() {
		if err := app.Shutdown(); err != nil {
			logger.Warn("shutdown", "error", err)
		}
	}()
	return run(ctx, app)
}
