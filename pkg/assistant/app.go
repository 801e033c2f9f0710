// Package assistant assembles a voice session from configuration: the
// microphone, the engine pool (in-process or remote), the completion
// client, the speaker and the history sink.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/teslashibe/go-voiceloop/internal/config"
	"github.com/teslashibe/go-voiceloop/pkg/audioio"
	"github.com/teslashibe/go-voiceloop/pkg/capture"
	"github.com/teslashibe/go-voiceloop/pkg/capture/vosk"
	"github.com/teslashibe/go-voiceloop/pkg/completion"
	"github.com/teslashibe/go-voiceloop/pkg/engine"
	"github.com/teslashibe/go-voiceloop/pkg/engine/host"
	"github.com/teslashibe/go-voiceloop/pkg/history"
	"github.com/teslashibe/go-voiceloop/pkg/inference"
	"github.com/teslashibe/go-voiceloop/pkg/playback"
	"github.com/teslashibe/go-voiceloop/pkg/session"
	"github.com/teslashibe/go-voiceloop/pkg/stt"
	"github.com/teslashibe/go-voiceloop/pkg/tts"
	"github.com/teslashibe/go-voiceloop/pkg/web"
)

// App owns every component of one assistant process.
type App struct {
	cfg    config.Config
	logger *slog.Logger

	session *session.Orchestrator
	reader  history.Reader

	// cancel stops in-process engine hosts.
	cancel context.CancelFunc
}

// New validates cfg. Call Init to build the components.
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &App{cfg: cfg, logger: logger}, nil
}

// Session returns the orchestrator. It is nil before Init.
func (a *App) Session() *session.Orchestrator {
	return a.session
}

// History returns the readable history store, or nil when the configured
// backend cannot be read back.
func (a *App) History() history.Reader {
	return a.reader
}

// Init builds the components. It does not touch devices or engines;
// that happens in the session's Initialize.
func (a *App) Init(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	sink, reader, err := a.initHistory()
	if err != nil {
		cancel()
		return fmt.Errorf("history: %w", err)
	}
	a.reader = reader

	pool, err := a.initEngines(ctx)
	if err != nil {
		sink.Close()
		cancel()
		return fmt.Errorf("engines: %w", err)
	}

	chat, err := a.initCompletion()
	if err != nil {
		pool.Close()
		sink.Close()
		cancel()
		return fmt.Errorf("completion: %w", err)
	}

	audioCfg := a.audioConfig()
	speaker, err := audioio.NewSink(audioCfg, a.logger)
	if err != nil {
		pool.Close()
		sink.Close()
		cancel()
		return fmt.Errorf("speaker: %w", err)
	}

	orch, err := session.New(session.Deps{
		Capture:    a.initCapture(audioCfg),
		Engines:    pool,
		Completion: chat,
		Playback:   playback.New(speaker, playback.WithLogger(a.logger)),
		History:    sink,
	}, session.Config{Logger: a.logger})
	if err != nil {
		speaker.Close()
		pool.Close()
		sink.Close()
		cancel()
		return err
	}
	a.session = orch

	a.logger.Info("assistant ready",
		"engines", a.cfg.EngineMode,
		"stt", a.cfg.STTBackend,
		"tts", a.cfg.TTSBackend,
		"history", a.cfg.HistoryBackend,
		"completion_configured", chat.Configured(),
	)
	return nil
}

// Serve runs the web control API until ctx is done.
func (a *App) Serve(ctx context.Context, addr string) error {
	if a.session == nil {
		return errors.New("assistant: not initialized")
	}
	srv := web.NewServer(a.session, a.reader, addr, a.logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return srv.Shutdown()
	}
}

// Shutdown abandons any turn and releases every component.
func (a *App) Shutdown() error {
	var err error
	if a.session != nil {
		err = a.session.Close()
	}
	if a.cancel != nil {
		a.cancel()
	}
	return err
}

func (a *App) audioConfig() audioio.Config {
	cfg := audioio.DefaultConfig()
	cfg.Backend = audioio.Backend(a.cfg.AudioBackend)
	cfg.Device = a.cfg.AudioDevice
	return cfg
}

func (a *App) initCapture(audioCfg audioio.Config) *capture.Controller {
	opts := []capture.Option{
		capture.WithAudioConfig(audioCfg),
		capture.WithLogger(a.logger),
	}
	if a.cfg.VoskModelPath != "" {
		rec, err := vosk.New(a.cfg.VoskModelPath, audioCfg.SampleRate)
		if err != nil {
			a.logger.Warn("on-device recognition disabled", "error", err)
		} else {
			opts = append(opts, capture.WithRecognizer(rec))
		}
	}
	return capture.New(opts...)
}

func (a *App) initEngines(ctx context.Context) (*engine.Pool, error) {
	poolOpts := []engine.Option{
		engine.WithTimeout(a.cfg.EngineTimeout),
		engine.WithLogger(a.logger),
	}

	if a.cfg.EngineMode == config.EngineRemote {
		base := strings.TrimSuffix(a.cfg.EngineURL, "/") + "/ws/engine/"
		sttT, err := engine.DialWebSocket(ctx, base+string(engine.TranscriptionEngine))
		if err != nil {
			return nil, err
		}
		ttsT, err := engine.DialWebSocket(ctx, base+string(engine.SynthesisEngine))
		if err != nil {
			sttT.Close()
			return nil, err
		}
		return engine.NewPool(sttT, ttsT, poolOpts...), nil
	}

	transcriber, voice, err := Backends(a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	return host.Local(ctx, transcriber, voice, []host.Option{host.WithLogger(a.logger)}, poolOpts...), nil
}

// Backends builds the transcription and synthesis backends named by cfg.
// The engine server uses it too.
func Backends(cfg config.Config, logger *slog.Logger) (stt.Transcriber, tts.Provider, error) {
	var transcriber stt.Transcriber
	switch cfg.STTBackend {
	case config.STTWhisper:
		w, err := stt.NewWhisper(
			stt.WithAPIKey(cfg.OpenAIKey),
			stt.WithBaseURL(cfg.OpenAIBaseURL),
			stt.WithLogger(logger),
		)
		if err != nil {
			return nil, nil, err
		}
		transcriber = w
	default:
		transcriber = stt.NewMock(stt.WithLogger(logger))
	}

	formant := tts.NewFormant(tts.WithLogger(logger))
	if cfg.TTSBackend != config.TTSOpenAI {
		return transcriber, formant, nil
	}
	remote, err := tts.NewOpenAI(
		tts.WithAPIKey(cfg.OpenAIKey),
		tts.WithBaseURL(cfg.OpenAIBaseURL),
		tts.WithLogger(logger),
	)
	if err != nil {
		transcriber.Close()
		return nil, nil, err
	}
	voice, err := tts.NewChainWithLogger(logger, remote, formant)
	if err != nil {
		transcriber.Close()
		return nil, nil, err
	}
	return transcriber, voice, nil
}

// initCompletion returns an unconfigured client when no key is set; the
// session then answers with a fixed notice instead of failing.
func (a *App) initCompletion() (*completion.Client, error) {
	ccfg := completion.DefaultConfig()
	ccfg.Model = a.cfg.CompletionModel
	ccfg.Logger = a.logger

	if !a.cfg.CompletionConfigured() {
		a.logger.Warn("OPENAI_API_KEY not set, replies will explain how to configure it")
		return completion.New(nil, ccfg), nil
	}

	primary, err := inference.NewClient(
		inference.WithAPIKey(a.cfg.OpenAIKey),
		inference.WithBaseURL(a.cfg.OpenAIBaseURL),
		inference.WithModel(a.cfg.CompletionModel),
		inference.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	if a.cfg.CompletionFallbackURL == "" {
		return completion.New(primary, ccfg), nil
	}

	model := a.cfg.CompletionFallbackModel
	if model == "" {
		model = a.cfg.CompletionModel
	}
	fallback, err := inference.NewClient(
		inference.WithBaseURL(a.cfg.CompletionFallbackURL),
		inference.WithModel(model),
		inference.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	chain, err := inference.NewChainWithLogger(a.logger, primary, fallback)
	if err != nil {
		return nil, err
	}
	return completion.New(chain, ccfg), nil
}

func (a *App) initHistory() (history.Sink, history.Reader, error) {
	switch a.cfg.HistoryBackend {
	case config.HistorySQLite:
		store, err := history.OpenSQLite(a.cfg.HistoryPath)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case config.HistorySupabase:
		store, err := history.NewSupabase(history.SupabaseConfig{
			URL: a.cfg.SupabaseURL,
			Key: a.cfg.SupabaseKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	default:
		return history.Nop{}, nil, nil
	}
}
