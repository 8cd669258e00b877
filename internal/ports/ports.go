package ports

import (
	"context"
	"io"
	"time"

	"aris/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// StreamingConfig describes provider-agnostic streaming settings.
type StreamingConfig struct {
	SampleRate     int
	Channels       int
	Encoding       string
	InterimResults bool
}

// StreamingSession is an active provider websocket session.
type StreamingSession interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Events() <-chan domain.TranscriptEvent
	Wait() error
	Close() error
}

// TranscriptionProvider starts streaming transcription sessions.
type TranscriptionProvider interface {
	StartStreaming(ctx context.Context, cfg StreamingConfig) (StreamingSession, error)
}

// RecognitionHandler receives the lifecycle and output of a recognition source.
type RecognitionHandler interface {
	OnStart()
	OnEnd()
	OnTranscript(event domain.TranscriptEvent)
	OnError(err *domain.RecognitionError)
}

// RecognitionSource is a continuous speech recognizer. Start and Stop are idempotent.
type RecognitionSource interface {
	Start(handler RecognitionHandler) error
	Stop() error
}

// RulesEngine transforms transcripts using deterministic rules.
type RulesEngine interface {
	Apply(text string) (string, error)
}

// ChatModel is the remote multimodal AI. image may be nil.
type ChatModel interface {
	Chat(ctx context.Context, prompt string, image *domain.Image) (string, error)
}

// ContextProvider builds the per-request user context preamble.
type ContextProvider interface {
	ContextPreamble(ctx context.Context) (string, error)
}

// FrameCapturer returns the current camera frame, or nil when none is available.
type FrameCapturer interface {
	Capture() *domain.Image
}

// EffectApplier receives directives parsed from AI responses.
type EffectApplier interface {
	Add(kind domain.EffectKind, duration time.Duration)
	Clear()
}

// Timer is a cancellable scheduled callback.
type Timer interface {
	Stop() bool
}

// Clock abstracts time so timer-driven behavior can be tested deterministically.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	ListenerStateChanged(state domain.ListenerState)
	WakeWordDetected()
	PartialTranscript(text string)
	CommandCaptured(command string)
	MessagesChanged(messages []domain.Message)
	BusyChanged(busy bool)
	EffectsChanged(effects []domain.ActiveEffect)
	SessionError(code domain.ErrorCode, detail string)
}
