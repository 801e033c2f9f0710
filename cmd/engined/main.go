// engined - serves the transcription and synthesis engines over
// WebSocket for assistants running with ENGINE_MODE=remote.
package main

import (
	"context"
	"flag"
	stdlog "log"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-voiceloop/internal/config"
	"github.com/teslashibe/go-voiceloop/internal/log"
	"github.com/teslashibe/go-voiceloop/pkg/assistant"
	"github.com/teslashibe/go-voiceloop/pkg/engine/host"
)

func main() {
	envFile := flag.String("env", "", "Env file to load (default .env when present)")
	addr := flag.String("addr", "", "Listen address (default :ENGINE_PORT)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		stdlog.Fatalf("❌ Configuration error: %v", err)
	}
	if *debug {
		cfg.LogLevel = "debug"
	}
	log.Init(cfg.LogLevel)
	logger := log.L()

	transcriber, voice, err := assistant.Backends(cfg, logger)
	if err != nil {
		stdlog.Fatalf("❌ Engine backends: %v", err)
	}

	sttHost := host.NewTranscription(transcriber, host.WithLogger(logger))
	ttsHost := host.NewSynthesis(voice, host.WithLogger(logger))
	defer sttHost.Close()
	defer ttsHost.Close()

	app := fiber.New(fiber.Config{
		AppName:               "voiceloop-engined",
		DisableStartupMessage: true,
	})
	host.NewServer(logger, sttHost, ttsHost).RegisterRoutes(app)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	go func() {
		<-ctx.Done()
		app.Shutdown()
	}()

	listen := *addr
	if listen == "" {
		listen = ":" + cfg.EnginePort
	}
	logger.Info("engine server listening", "addr", listen, "stt", cfg.STTBackend, "tts", cfg.TTSBackend)
	if err := app.Listen(listen); err != nil {
		stdlog.Fatalf("❌ Server error: %v", err)
	}
}
