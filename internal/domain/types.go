package domain

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ListenerState models the wake-word listening lifecycle.
type ListenerState string

const (
	ListenerStateDisabled        ListenerState = "disabled"
	ListenerStateIdle            ListenerState = "idle"
	ListenerStateAwaitingCommand ListenerState = "awaiting_command"
)

// ErrorCode identifies non-fatal and fatal backend errors.
type ErrorCode string

const (
	ErrorCodeStartup          ErrorCode = "startup"
	ErrorCodeVoiceUnavailable ErrorCode = "voice_unavailable"
	ErrorCodeRecognition      ErrorCode = "recognition"
	ErrorCodeAI               ErrorCode = "ai"
	ErrorCodeCapture          ErrorCode = "capture"
	ErrorCodeProfile          ErrorCode = "profile"
	ErrorCodeMemory           ErrorCode = "memory"
)

// TranscriptEvent represents incremental recognition output.
type TranscriptEvent struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"isFinal"`
}

// RecognitionErrorKind names a recognition failure.
type RecognitionErrorKind string

const (
	RecognitionErrorNoSpeech     RecognitionErrorKind = "no-speech"
	RecognitionErrorAborted      RecognitionErrorKind = "aborted"
	RecognitionErrorAudioCapture RecognitionErrorKind = "audio-capture"
	RecognitionErrorNetwork      RecognitionErrorKind = "network"
	RecognitionErrorNotAllowed   RecognitionErrorKind = "not-allowed"
	RecognitionErrorUnavailable  RecognitionErrorKind = "unavailable"
)

// Transient reports whether the kind is expected during normal listening.
func (k RecognitionErrorKind) Transient() bool {
	return k == RecognitionErrorNoSpeech || k == RecognitionErrorAborted
}

// RecognitionError is a recognition failure tagged with its kind.
type RecognitionError struct {
	Kind RecognitionErrorKind
	Err  error
}

func (e *RecognitionError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *RecognitionError) Unwrap() error {
	return e.Err
}

// RecognitionErrorKindOf extracts the kind from err, or "" when err is not a RecognitionError.
func RecognitionErrorKindOf(err error) RecognitionErrorKind {
	var recErr *RecognitionError
	if errors.As(err, &recErr) {
		return recErr.Kind
	}
	return ""
}

// EffectKind is a visual overlay the renderer knows how to draw.
type EffectKind string

const (
	EffectGlasses    EffectKind = "glasses"
	EffectSunglasses EffectKind = "sunglasses"
	EffectHearts     EffectKind = "hearts"
	EffectSparkles   EffectKind = "sparkles"
	EffectFire       EffectKind = "fire"
	EffectSnow       EffectKind = "snow"
	EffectConfetti   EffectKind = "confetti"
	EffectRainbow    EffectKind = "rainbow"
	EffectVignette   EffectKind = "vignette"
	EffectBlur       EffectKind = "blur"
	EffectPixelate   EffectKind = "pixelate"
	EffectRetro      EffectKind = "retro"
	EffectNeon       EffectKind = "neon"
	EffectParty      EffectKind = "party"

	// EffectNone clears every active effect; it is never rendered.
	EffectNone EffectKind = "none"
)

var effectKinds = []EffectKind{
	EffectGlasses, EffectSunglasses, EffectHearts, EffectSparkles, EffectFire,
	EffectSnow, EffectConfetti, EffectRainbow, EffectVignette, EffectBlur,
	EffectPixelate, EffectRetro, EffectNeon, EffectParty, EffectNone,
}

// EffectKinds returns the closed set of effect kinds, EffectNone last.
func EffectKinds() []EffectKind {
	return append([]EffectKind(nil), effectKinds...)
}

// ParseEffectKind resolves a case-insensitive effect name.
func ParseEffectKind(name string) (EffectKind, bool) {
	candidate := EffectKind(strings.ToLower(strings.TrimSpace(name)))
	for _, kind := range effectKinds {
		if kind == candidate {
			return kind, true
		}
	}
	return "", false
}

// Directive is one effect instruction extracted from an AI response.
type Directive struct {
	Kind     EffectKind    `json:"kind"`
	Duration time.Duration `json:"duration,omitempty"`
}

// ActiveEffect is an overlay currently shown by the renderer.
type ActiveEffect struct {
	Kind      EffectKind `json:"kind"`
	StartedAt time.Time  `json:"startedAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Image is an encoded camera frame.
type Image struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"-"`
}

// DataURL renders the image as a base64 data URL.
func (img Image) DataURL() string {
	mime := img.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// ParseDataURL decodes a base64 data URL produced by a browser canvas.
func ParseDataURL(raw string) (*Image, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "data:") {
		return nil, errors.New("image is not a data URL")
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(raw, "data:"), ",")
	if !ok {
		return nil, errors.New("data URL has no payload")
	}
	mime, encoding, _ := strings.Cut(header, ";")
	if encoding != "base64" {
		return nil, fmt.Errorf("unsupported data URL encoding %q", encoding)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid data URL payload: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("data URL payload is empty")
	}
	if mime == "" {
		mime = "image/jpeg"
	}
	return &Image{MIMEType: mime, Data: data}, nil
}

// Message is one entry of the conversation history.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Image     *Image    `json:"-"`
	ImageURL  string    `json:"imageUrl,omitempty"`
}

// FaceProfile describes the primary user.
type FaceProfile struct {
	Name        string    `json:"name" validate:"required,max=80"`
	Description string    `json:"description" validate:"max=1000"`
	Image       *Image    `json:"-"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// MemoryItem is a free-text note remembered across sessions.
type MemoryItem struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Status summarizes the current runtime status.
type Status struct {
	Listener   ListenerState `json:"listener"`
	Enabled    bool          `json:"enabled"`
	Listening  bool          `json:"listening"`
	Transcript string        `json:"transcript,omitempty"`
	Busy       bool          `json:"busy"`
	Message    string        `json:"message,omitempty"`
}
