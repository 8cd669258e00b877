package config

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("ARIS_RULES_FILE", "")
	t.Setenv("ARIS_STORE_PATH", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Voice.WakePhrase != "hey aris" {
		t.Fatalf("unexpected wake phrase %q", cfg.Voice.WakePhrase)
	}
	if cfg.Voice.RulesPath != filepath.Join(home, ".config", "aris", "substitutions.rules") {
		t.Fatalf("unexpected rules path %q", cfg.Voice.RulesPath)
	}
	if cfg.Store.Path != filepath.Join(home, ".config", "aris", "aris.sqlite") || cfg.Store.Driver != "sqlite" {
		t.Fatalf("unexpected store config: %+v", cfg.Store)
	}
	if cfg.Store.MemoryLimit != 50 || cfg.Store.ContextLimit != 10 {
		t.Fatalf("unexpected memory limits: %+v", cfg.Store)
	}
	if cfg.AI.Provider != "openai" || cfg.AI.OpenAIModel != "gpt-4o" || cfg.AI.Timeout != 60*time.Second {
		t.Fatalf("unexpected ai config: %+v", cfg.AI)
	}
	if cfg.Camera.Source != "webview" || cfg.Camera.MaxFrameAge != 3*time.Second {
		t.Fatalf("unexpected camera config: %+v", cfg.Camera)
	}
	if cfg.Voice.RestartBurst != 3 || cfg.Voice.RestartInterval != time.Second || !cfg.Voice.AutoStart {
		t.Fatalf("unexpected voice config: %+v", cfg.Voice)
	}
}

func TestLoadRespectsOverrides(t *testing.T) {
	home := t.TempDir()
	rules := filepath.Join(home, "my.rules")

	t.Setenv("HOME", home)
	t.Setenv("DEEPGRAM_API_KEY", "test-key")
	t.Setenv("DEEPGRAM_API_BASE", "https://example.com/v1")
	t.Setenv("DEEPGRAM_MODEL", "nova-3")
	t.Setenv("DEEPGRAM_LANGUAGE", "en")
	t.Setenv("DEEPGRAM_SMART_FORMAT", "false")
	t.Setenv("DEEPGRAM_ENDPOINTING_MS", "500")
	t.Setenv("ARIS_FFMPEG_COMMAND", "my-ffmpeg")
	t.Setenv("ARIS_AUDIO_INPUT_FORMAT", "alsa")
	t.Setenv("ARIS_AUDIO_INPUT_DEVICE", "mic0")
	t.Setenv("ARIS_SAMPLE_RATE", "22050")
	t.Setenv("ARIS_CHANNELS", "2")
	t.Setenv("ARIS_AUDIO_CHUNK_SIZE", "512")
	t.Setenv("ARIS_STREAMING_GRACE_MS", "25")
	t.Setenv("ARIS_WAKE_PHRASE", "hello computer")
	t.Setenv("ARIS_WAKE_ALIASES", "hello commuter, , yellow computer")
	t.Setenv("ARIS_RULES_FILE", rules)
	t.Setenv("ARIS_RULE_ITERATION_LIMIT", "42")
	t.Setenv("ARIS_RESTART_BURST", "5")
	t.Setenv("ARIS_RESTART_INTERVAL", "2500ms")
	t.Setenv("ARIS_VOICE_AUTOSTART", "off")
	t.Setenv("ARIS_AI_PROVIDER", "Gemini")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("ARIS_AI_TIMEOUT", "1500")
	t.Setenv("ARIS_SOCKS_PROXY", "127.0.0.1:1080")
	t.Setenv("ARIS_CAMERA_SOURCE", "ffmpeg")
	t.Setenv("ARIS_CAMERA_DEVICE", "/dev/video2")
	t.Setenv("ARIS_CAMERA_FPS", "5")
	t.Setenv("ARIS_STORE_DRIVER", "redis")
	t.Setenv("ARIS_REDIS_ADDR", "redis:6379")
	t.Setenv("ARIS_REDIS_DB", "3")
	t.Setenv("ARIS_LOG_LEVEL", "debug")
	t.Setenv("ARIS_LOG_FILE", "/tmp/aris.log")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Deepgram.APIKey != "test-key" || cfg.Deepgram.APIBaseURL != "https://example.com/v1" {
		t.Fatalf("unexpected deepgram config: %+v", cfg.Deepgram)
	}
	if cfg.Deepgram.Model != "nova-3" || cfg.Deepgram.Language != "en" || cfg.Deepgram.SmartFormat || cfg.Deepgram.Endpointing != 500 {
		t.Fatalf("unexpected deepgram model/language/smart format: %+v", cfg.Deepgram)
	}
	if cfg.Audio.RecorderCommand != "my-ffmpeg" || cfg.Audio.InputFormat != "alsa" || cfg.Audio.InputDevice != "mic0" {
		t.Fatalf("unexpected audio config: %+v", cfg.Audio)
	}
	if cfg.Audio.SampleRate != 22050 || cfg.Audio.Channels != 2 || cfg.Audio.ChunkSize != 512 || cfg.Audio.StreamingGrace != 25*time.Millisecond {
		t.Fatalf("unexpected audio tuning: %+v", cfg.Audio)
	}
	if cfg.Voice.WakePhrase != "hello computer" || !reflect.DeepEqual(cfg.Voice.WakeAliases, []string{"hello commuter", "yellow computer"}) {
		t.Fatalf("unexpected wake config: %+v", cfg.Voice)
	}
	if cfg.Voice.RulesPath != rules || cfg.Voice.RulesIterationLimit != 42 {
		t.Fatalf("unexpected rules config: %+v", cfg.Voice)
	}
	if cfg.Voice.RestartBurst != 5 || cfg.Voice.RestartInterval != 2500*time.Millisecond || cfg.Voice.AutoStart {
		t.Fatalf("unexpected restart config: %+v", cfg.Voice)
	}
	if cfg.AI.Provider != "gemini" || cfg.AI.GeminiKey != "g-key" || cfg.AI.Timeout != 1500*time.Millisecond || cfg.AI.SOCKSProxy != "127.0.0.1:1080" {
		t.Fatalf("unexpected ai config: %+v", cfg.AI)
	}
	if cfg.Camera.Source != "ffmpeg" || cfg.Camera.Device != "/dev/video2" || cfg.Camera.FPS != 5 || cfg.Camera.Command != "my-ffmpeg" {
		t.Fatalf("unexpected camera config: %+v", cfg.Camera)
	}
	if cfg.Store.Driver != "redis" || cfg.Store.RedisAddr != "redis:6379" || cfg.Store.RedisDB != 3 {
		t.Fatalf("unexpected store config: %+v", cfg.Store)
	}
	if cfg.Log.Level != "debug" || cfg.Log.File != "/tmp/aris.log" {
		t.Fatalf("unexpected log config: %+v", cfg.Log)
	}
}

func TestLoadInvalidValuesFallback(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ARIS_SAMPLE_RATE", "bad")
	t.Setenv("ARIS_CHANNELS", "-1")
	t.Setenv("ARIS_RULE_ITERATION_LIMIT", "0")
	t.Setenv("ARIS_AUDIO_CHUNK_SIZE", "5")
	t.Setenv("ARIS_STREAMING_GRACE_MS", "bad")
	t.Setenv("DEEPGRAM_SMART_FORMAT", "not-bool")
	t.Setenv("ARIS_RESTART_INTERVAL", "soon")
	t.Setenv("ARIS_AI_PROVIDER", "claude")
	t.Setenv("ARIS_CAMERA_SOURCE", "usb")
	t.Setenv("ARIS_STORE_DRIVER", "postgres")
	t.Setenv("ARIS_MEMORY_LIMIT", "-4")
	t.Setenv("ARIS_WAKE_ALIASES", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Audio.SampleRate != 16000 || cfg.Audio.Channels != 1 {
		t.Fatalf("expected default sample/channels, got %+v", cfg.Audio)
	}
	if cfg.Voice.RulesIterationLimit != 30 {
		t.Fatalf("expected default iteration limit, got %d", cfg.Voice.RulesIterationLimit)
	}
	if cfg.Audio.ChunkSize != 4096 {
		t.Fatalf("expected chunk size fallback, got %d", cfg.Audio.ChunkSize)
	}
	if cfg.Audio.StreamingGrace != time.Second {
		t.Fatalf("expected default grace, got %s", cfg.Audio.StreamingGrace)
	}
	if !cfg.Deepgram.SmartFormat {
		t.Fatalf("expected default smart format true")
	}
	if cfg.Voice.RestartInterval != time.Second {
		t.Fatalf("expected default restart interval, got %s", cfg.Voice.RestartInterval)
	}
	if cfg.AI.Provider != "openai" || cfg.Camera.Source != "webview" || cfg.Store.Driver != "sqlite" {
		t.Fatalf("expected enum fallbacks, got %q %q %q", cfg.AI.Provider, cfg.Camera.Source, cfg.Store.Driver)
	}
	if cfg.Store.MemoryLimit != 50 {
		t.Fatalf("expected default memory limit, got %d", cfg.Store.MemoryLimit)
	}
	if cfg.Voice.WakeAliases != nil {
		t.Fatalf("explicitly empty aliases should disable them, got %v", cfg.Voice.WakeAliases)
	}
}
