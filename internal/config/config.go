package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config stores runtime configuration for the assistant.
type Config struct {
	Deepgram DeepgramConfig
	Audio    AudioConfig
	Voice    VoiceConfig
	AI       AIConfig
	Camera   CameraConfig
	Store    StoreConfig
	Log      LogConfig
}

type DeepgramConfig struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
	Endpointing int
}

type AudioConfig struct {
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
	ChunkSize       int
	StreamingGrace  time.Duration
}

type VoiceConfig struct {
	WakePhrase string
	// WakeAliases are mis-hearings rewritten onto WakePhrase before matching.
	WakeAliases         []string
	RulesPath           string
	RulesIterationLimit int
	RestartBurst        int
	RestartInterval     time.Duration
	AutoStart           bool
}

type AIConfig struct {
	Provider      string
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	GeminiKey     string
	GeminiModel   string
	Timeout       time.Duration
	SOCKSProxy    string
}

type CameraConfig struct {
	// Source is "webview" (frames published by the UI) or "ffmpeg".
	Source      string
	Command     string
	InputFormat string
	Device      string
	FPS         int
	Quality     int
	MaxFrameAge time.Duration
}

type StoreConfig struct {
	// Driver is "sqlite", "redis" or "memory".
	Driver        string
	Path          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	MemoryLimit   int
	ContextLimit  int
}

type LogConfig struct {
	Level string
	File  string
}

// Load resolves configuration from environment variables and sensible defaults.
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	configDir := filepath.Join(home, ".config", "aris")
	rulesPath := firstNonEmpty(os.Getenv("ARIS_RULES_FILE"), filepath.Join(configDir, "substitutions.rules"))

	cfg := Config{
		Deepgram: DeepgramConfig{
			APIKey:      strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
			APIBaseURL:  envOrDefault("DEEPGRAM_API_BASE", "https://api.deepgram.com/v1"),
			Model:       envOrDefault("DEEPGRAM_MODEL", "nova-2"),
			Language:    strings.TrimSpace(os.Getenv("DEEPGRAM_LANGUAGE")),
			SmartFormat: envOrDefaultBool("DEEPGRAM_SMART_FORMAT", true),
			Endpointing: envOrDefaultInt("DEEPGRAM_ENDPOINTING_MS", 300),
		},
		Audio: AudioConfig{
			RecorderCommand: envOrDefault("ARIS_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:     envOrDefault("ARIS_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice: firstNonEmpty(
				os.Getenv("ARIS_AUDIO_INPUT_DEVICE"),
				os.Getenv("DEEPGRAM_PULSE_SOURCE"),
				"default",
			),
			SampleRate:     envOrDefaultInt("ARIS_SAMPLE_RATE", 16000),
			Channels:       envOrDefaultInt("ARIS_CHANNELS", 1),
			ChunkSize:      envOrDefaultInt("ARIS_AUDIO_CHUNK_SIZE", 4096),
			StreamingGrace: time.Duration(firstNonNegativeInt("ARIS_STREAMING_GRACE_MS", "DEEPGRAM_STREAMING_GRACE_MS", 1000)) * time.Millisecond,
		},
		Voice: VoiceConfig{
			WakePhrase:          envOrDefault("ARIS_WAKE_PHRASE", "hey aris"),
			WakeAliases:         envList("ARIS_WAKE_ALIASES", []string{"hey iris", "hey harris", "hey ares"}),
			RulesPath:           rulesPath,
			RulesIterationLimit: envOrDefaultInt("ARIS_RULE_ITERATION_LIMIT", 30),
			RestartBurst:        envOrDefaultInt("ARIS_RESTART_BURST", 3),
			RestartInterval:     envOrDefaultDuration("ARIS_RESTART_INTERVAL", time.Second),
			AutoStart:           envOrDefaultBool("ARIS_VOICE_AUTOSTART", true),
		},
		AI: AIConfig{
			Provider:      strings.ToLower(envOrDefault("ARIS_AI_PROVIDER", "openai")),
			OpenAIKey:     strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			OpenAIBaseURL: strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
			OpenAIModel:   envOrDefault("OPENAI_MODEL", "gpt-4o"),
			GeminiKey:     strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
			GeminiModel:   envOrDefault("GEMINI_MODEL_NAME", "gemini-1.5-flash"),
			Timeout:       envOrDefaultDuration("ARIS_AI_TIMEOUT", 60*time.Second),
			SOCKSProxy:    strings.TrimSpace(os.Getenv("ARIS_SOCKS_PROXY")),
		},
		Camera: CameraConfig{
			Source:      strings.ToLower(envOrDefault("ARIS_CAMERA_SOURCE", "webview")),
			Command:     envOrDefault("ARIS_CAMERA_COMMAND", envOrDefault("ARIS_FFMPEG_COMMAND", "ffmpeg")),
			InputFormat: envOrDefault("ARIS_CAMERA_INPUT_FORMAT", "v4l2"),
			Device:      envOrDefault("ARIS_CAMERA_DEVICE", "/dev/video0"),
			FPS:         envOrDefaultInt("ARIS_CAMERA_FPS", 2),
			Quality:     envOrDefaultInt("ARIS_CAMERA_QUALITY", 5),
			MaxFrameAge: envOrDefaultDuration("ARIS_CAMERA_MAX_FRAME_AGE", 3*time.Second),
		},
		Store: StoreConfig{
			Driver:        strings.ToLower(envOrDefault("ARIS_STORE_DRIVER", "sqlite")),
			Path:          envOrDefault("ARIS_STORE_PATH", filepath.Join(configDir, "aris.sqlite")),
			RedisAddr:     envOrDefault("ARIS_REDIS_ADDR", "127.0.0.1:6379"),
			RedisPassword: os.Getenv("ARIS_REDIS_PASSWORD"),
			RedisDB:       envOrDefaultInt("ARIS_REDIS_DB", 0),
			MemoryLimit:   envOrDefaultInt("ARIS_MEMORY_LIMIT", 50),
			ContextLimit:  envOrDefaultInt("ARIS_CONTEXT_LIMIT", 10),
		},
		Log: LogConfig{
			Level: envOrDefault("ARIS_LOG_LEVEL", "info"),
			File:  strings.TrimSpace(os.Getenv("ARIS_LOG_FILE")),
		},
	}

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Audio.ChunkSize < 256 {
		cfg.Audio.ChunkSize = 4096
	}
	if cfg.Deepgram.Endpointing < 0 {
		cfg.Deepgram.Endpointing = 0
	}
	if cfg.Voice.RulesIterationLimit <= 0 {
		cfg.Voice.RulesIterationLimit = 30
	}
	if cfg.Voice.RestartBurst <= 0 {
		cfg.Voice.RestartBurst = 3
	}
	if cfg.AI.Provider != "openai" && cfg.AI.Provider != "gemini" {
		cfg.AI.Provider = "openai"
	}
	if cfg.Camera.Source != "webview" && cfg.Camera.Source != "ffmpeg" {
		cfg.Camera.Source = "webview"
	}
	if cfg.Camera.FPS <= 0 {
		cfg.Camera.FPS = 2
	}
	switch cfg.Store.Driver {
	case "sqlite", "redis", "memory":
	default:
		cfg.Store.Driver = "sqlite"
	}
	if cfg.Store.MemoryLimit <= 0 {
		cfg.Store.MemoryLimit = 50
	}
	if cfg.Store.ContextLimit <= 0 {
		cfg.Store.ContextLimit = 10
	}

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// envOrDefaultDuration accepts Go durations ("1.5s") or bare milliseconds.
func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	if ms, err := strconv.Atoi(value); err == nil {
		if ms <= 0 {
			return fallback
		}
		return time.Duration(ms) * time.Millisecond
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// envList splits a comma separated value. An unset variable yields fallback;
// an explicitly empty one yields nil.
func envList(key string, fallback []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func firstNonNegativeInt(primary string, secondary string, fallback int) int {
	for _, key := range []string{primary, secondary} {
		value := strings.TrimSpace(os.Getenv(key))
		if value == "" {
			continue
		}
		parsed, err := strconv.Atoi(value)
		if err == nil && parsed >= 0 {
			return parsed
		}
	}
	return fallback
}
