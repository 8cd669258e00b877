package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"aris/internal/capture"
	"aris/internal/clock"
	"aris/internal/config"
	"aris/internal/domain"
	"aris/internal/effects"
	"aris/internal/ffmpeg"
	"aris/internal/memory"
	"aris/internal/ports"
	"aris/internal/providers/deepgram"
	"aris/internal/providers/gemini"
	"aris/internal/providers/openai"
	"aris/internal/proxy"
	"aris/internal/rules"
	"aris/internal/speech"
	"aris/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Config       config.Config
	Listener     *usecase.WakeWordListener
	Orchestrator *usecase.Orchestrator
	Effects      *effects.Lifecycle
	Capture      *capture.Bridge
	Frames       *capture.FrameBuffer
	// Camera is nil unless frames come from a local ffmpeg capture.
	Camera *capture.FFMPEGCamera
	Memory *memory.Service

	closers []func() error
}

// Overrides replace adapters that touch the outside world. Zero fields use the
// configured implementation.
type Overrides struct {
	Clock  ports.Clock
	Source ports.RecognitionSource
	Chat   ports.ChatModel
	Store  memory.Store
}

// Build loads configuration and wires all backend dependencies.
func Build(ctx context.Context, eventSink ports.EventSink) (*Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return Assemble(ctx, cfg, eventSink, Overrides{})
}

// Assemble wires the runtime graph for cfg.
func Assemble(ctx context.Context, cfg config.Config, eventSink ports.EventSink, overrides Overrides) (*Services, error) {
	services := &Services{Config: cfg}

	clk := overrides.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	rulesEngine, err := rules.NewEngine(cfg.Voice.RulesPath, cfg.Voice.RulesIterationLimit, cfg.Voice.WakePhrase, cfg.Voice.WakeAliases)
	if err != nil {
		return nil, err
	}

	store := overrides.Store
	if store == nil {
		store, err = openStore(ctx, cfg.Store)
		if err != nil {
			return nil, err
		}
	}
	services.Memory = memory.NewService(store, clk, memory.Config{
		MemoryLimit:  cfg.Store.MemoryLimit,
		ContextLimit: cfg.Store.ContextLimit,
	})
	services.closers = append(services.closers, services.Memory.Close)

	chat := overrides.Chat
	if chat == nil {
		var closeChat func() error
		chat, closeChat, err = newChatModel(ctx, cfg.AI)
		if err != nil {
			services.Close()
			return nil, err
		}
		if closeChat != nil {
			services.closers = append(services.closers, closeChat)
		}
	}

	services.Frames = capture.NewFrameBuffer(clk, cfg.Camera.MaxFrameAge)
	services.Capture = capture.NewBridge()
	services.Capture.Install(services.Frames.Latest)
	if cfg.Camera.Source == "ffmpeg" {
		services.Camera = capture.NewFFMPEGCamera(cfg.Camera.Command, ffmpeg.CameraConfig{
			InputFormat: cfg.Camera.InputFormat,
			Device:      cfg.Camera.Device,
			FPS:         cfg.Camera.FPS,
			Quality:     cfg.Camera.Quality,
		}, services.Frames)
		services.closers = append(services.closers, services.Camera.Stop)
	}

	services.Effects = effects.NewLifecycle(clk, eventSink.EffectsChanged)
	services.closers = append(services.closers, func() error {
		services.Effects.Close()
		return nil
	})

	services.Orchestrator = usecase.NewOrchestrator(
		chat,
		services.Memory,
		services.Capture,
		services.Effects,
		eventSink,
		clk,
		usecase.OrchestratorConfig{Timeout: cfg.AI.Timeout},
	)

	source := overrides.Source
	if source == nil {
		source = speech.NewSource(
			ffmpeg.NewMicCapture(cfg.Audio.RecorderCommand),
			deepgram.NewProvider(deepgram.Config{
				APIKey:      cfg.Deepgram.APIKey,
				APIBaseURL:  cfg.Deepgram.APIBaseURL,
				Model:       cfg.Deepgram.Model,
				Language:    cfg.Deepgram.Language,
				SmartFormat: cfg.Deepgram.SmartFormat,
				Endpointing: cfg.Deepgram.Endpointing,
			}),
			speech.Config{
				Audio: ports.AudioConfig{
					SampleRate:  cfg.Audio.SampleRate,
					Channels:    cfg.Audio.Channels,
					InputFormat: cfg.Audio.InputFormat,
					InputDevice: cfg.Audio.InputDevice,
				},
				Streaming: ports.StreamingConfig{
					SampleRate: cfg.Audio.SampleRate,
					Channels:   cfg.Audio.Channels,
					Encoding:   "linear16",
				},
				ChunkSize:    cfg.Audio.ChunkSize,
				FlushTimeout: cfg.Audio.StreamingGrace,
			},
		)
	}

	orchestrator := services.Orchestrator
	commands := newCommandRunner()
	services.Listener = usecase.NewWakeWordListener(
		source,
		rulesEngine,
		clk,
		eventSink,
		usecase.ListenerCallbacks{
			OnWakeWordDetected: eventSink.WakeWordDetected,
			OnCommand: func(command string) {
				eventSink.CommandCaptured(command)
				commands.Go(func(ctx context.Context) {
					orchestrator.HandleVoiceCommand(ctx, command)
				})
			},
		},
		usecase.ListenerConfig{
			WakePhrase:      cfg.Voice.WakePhrase,
			RestartBurst:    cfg.Voice.RestartBurst,
			RestartInterval: cfg.Voice.RestartInterval,
		},
	)
	// The listener closes first so no new command starts, then in-flight
	// commands are cancelled and drained before memory and effects close.
	services.closers = append([]func() error{services.Listener.Close, commands.Close}, services.closers...)

	slog.Info("runtime assembled",
		"ai", cfg.AI.Provider,
		"store", cfg.Store.Driver,
		"camera", cfg.Camera.Source,
		"wake_phrase", cfg.Voice.WakePhrase,
		"rules", rulesEngine.Len(),
	)
	return services, nil
}

// Start brings up optional background capture and, when configured, voice.
// Failures are reported to the sink and do not stop the app.
func (s *Services) Start(ctx context.Context, eventSink ports.EventSink) {
	if s.Camera != nil {
		if err := s.Camera.Start(ctx); err != nil {
			slog.Error("camera start failed", "error", err)
			eventSink.SessionError(domain.ErrorCodeCapture, err.Error())
		}
	}
	if s.Config.Voice.AutoStart {
		if err := s.Listener.Enable(); err != nil {
			slog.Warn("voice not started", "error", err)
		}
	}
}

// Close releases everything in reverse dependency order.
func (s *Services) Close() error {
	var errs []error
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func openStore(ctx context.Context, cfg config.StoreConfig) (memory.Store, error) {
	switch cfg.Driver {
	case "redis":
		store, err := memory.OpenRedis(ctx, memory.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		return store, nil
	case "memory":
		return memory.NewMemStore(), nil
	default:
		store, err := memory.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	}
}

// newChatModel picks the configured AI provider. A provider without an API key
// still yields a model whose calls fail, so the UI gets an apology and an ai
// error instead of a startup failure.
func newChatModel(ctx context.Context, cfg config.AIConfig) (ports.ChatModel, func() error, error) {
	switch cfg.Provider {
	case "gemini":
		model, err := gemini.NewChatModel(ctx, gemini.Config{APIKey: cfg.GeminiKey, Model: cfg.GeminiModel})
		if errors.Is(err, gemini.ErrNotConfigured) {
			slog.Warn("gemini is not configured")
			return unconfiguredChat{err: err}, nil, nil
		}
		if err != nil {
			return nil, nil, err
		}
		return model, model.Close, nil
	default:
		httpClient, err := proxy.NewSocksClient(cfg.SOCKSProxy, cfg.Timeout)
		if err != nil {
			return nil, nil, fmt.Errorf("socks proxy: %w", err)
		}
		model, err := openai.NewChatModel(openai.Config{
			APIKey:     cfg.OpenAIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.OpenAIModel,
			HTTPClient: httpClient,
			MaxRetries: 2,
		})
		if errors.Is(err, openai.ErrNotConfigured) {
			slog.Warn("openai is not configured")
			return unconfiguredChat{err: err}, nil, nil
		}
		if err != nil {
			return nil, nil, err
		}
		return model, nil, nil
	}
}

// commandRunner runs voice commands in the background under a context that
// Close cancels. Close waits for running commands.
type commandRunner struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func newCommandRunner() *commandRunner {
	ctx, cancel := context.WithCancel(context.Background())
	return &commandRunner{ctx: ctx, cancel: cancel}
}

// Go starts fn unless the runner is closed.
func (r *commandRunner) Go(fn func(ctx context.Context)) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		slog.Debug("voice command dropped during shutdown")
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		fn(r.ctx)
	}()
}

func (r *commandRunner) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
	return nil
}

type unconfiguredChat struct {
	err error
}

func (c unconfiguredChat) Chat(context.Context, string, *domain.Image) (string, error) {
	return "", c.err
}
