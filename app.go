package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"aris/internal/bootstrap"
	"aris/internal/capture"
	"aris/internal/domain"
	"aris/internal/memory"
	"aris/internal/usecase"
)

const (
	eventListener = "aris:listener"
	eventWake     = "aris:wake"
	eventPartial  = "aris:partial"
	eventCommand  = "aris:command"
	eventMessages = "aris:messages"
	eventBusy     = "aris:busy"
	eventEffects  = "aris:effects"
	eventError    = "aris:error"
)

// App is the Wails application root. It is also the backend's event sink.
type App struct {
	ctx context.Context

	services *bootstrap.Services
	bootErr  error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(ctx, a)
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.services = services
	a.ListenerStateChanged(domain.ListenerStateDisabled)
	services.Start(ctx, a)
}

func (a *App) shutdown(context.Context) {
	if a.services == nil {
		return
	}
	if err := a.services.Close(); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}

// EnableVoice starts wake-word listening.
func (a *App) EnableVoice() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.services.Listener.Enable(); err != nil {
		return a.GetStatus(), err
	}
	return a.GetStatus(), nil
}

// DisableVoice stops wake-word listening.
func (a *App) DisableVoice() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.services.Listener.Disable(); err != nil {
		a.SessionError(domain.ErrorCodeRecognition, err.Error())
		return a.GetStatus(), err
	}
	return a.GetStatus(), nil
}

// GetStatus returns the current listener and conversation status.
func (a *App) GetStatus() domain.Status {
	if a.services == nil {
		if a.bootErr != nil {
			return domain.Status{Listener: domain.ListenerStateDisabled, Message: a.bootErr.Error()}
		}
		return domain.Status{Listener: domain.ListenerStateDisabled}
	}
	status := a.services.Listener.Status()
	status.Busy = a.services.Orchestrator.Busy()
	status.Message = listenerStateMessage(status.Listener)
	return status
}

// SendMessage submits typed text with an optional image data URL.
func (a *App) SendMessage(text string, imageDataURL string) (domain.Message, error) {
	if err := a.requireReady(); err != nil {
		return domain.Message{}, err
	}
	image, err := optionalImage(imageDataURL)
	if err != nil {
		return domain.Message{}, err
	}
	return a.services.Orchestrator.Submit(a.context(), text, image)
}

// QuickAction sends one of the fixed quick prompts.
func (a *App) QuickAction(action string, imageDataURL string) (domain.Message, error) {
	if err := a.requireReady(); err != nil {
		return domain.Message{}, err
	}
	image, err := optionalImage(imageDataURL)
	if err != nil {
		return domain.Message{}, err
	}
	return a.services.Orchestrator.QuickAction(a.context(), usecase.QuickAction(action), image)
}

// PublishFrame stores the webview's latest camera frame.
func (a *App) PublishFrame(dataURL string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	image, err := domain.ParseDataURL(dataURL)
	if err != nil {
		return err
	}
	a.services.Frames.Publish(image)
	return nil
}

// CaptureFrame returns the current frame as a data URL.
func (a *App) CaptureFrame() (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	image := a.services.Capture.Capture()
	if image == nil {
		return "", capture.ErrNoFrame
	}
	return image.DataURL(), nil
}

func (a *App) GetMessages() []domain.Message {
	if a.services == nil {
		return []domain.Message{}
	}
	return a.services.Orchestrator.Messages()
}

func (a *App) DismissMessage(id string) bool {
	if a.services == nil {
		return false
	}
	return a.services.Orchestrator.Dismiss(id)
}

func (a *App) ClearMessages() {
	if a.services == nil {
		return
	}
	a.services.Orchestrator.ClearMessages()
}

func (a *App) GetActiveEffects() []domain.ActiveEffect {
	if a.services == nil {
		return []domain.ActiveEffect{}
	}
	return a.services.Effects.Active()
}

// RemoveEffect dismisses one effect by name.
func (a *App) RemoveEffect(name string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	kind, ok := domain.ParseEffectKind(name)
	if !ok || kind == domain.EffectNone {
		return fmt.Errorf("unknown effect %q", name)
	}
	a.services.Effects.Remove(kind)
	return nil
}

func (a *App) ClearEffects() {
	if a.services == nil {
		return
	}
	a.services.Effects.Clear()
}

// GetProfile returns the saved profile, or nil when none exists.
func (a *App) GetProfile() (*domain.FaceProfile, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	profile, err := a.services.Memory.Profile(a.context())
	if errors.Is(err, memory.ErrNoProfile) {
		return nil, nil
	}
	if err != nil {
		a.SessionError(domain.ErrorCodeProfile, err.Error())
		return nil, err
	}
	return &profile, nil
}

// SaveProfile stores the user's profile. imageDataURL may be empty.
func (a *App) SaveProfile(name string, description string, imageDataURL string) (domain.FaceProfile, error) {
	if err := a.requireReady(); err != nil {
		return domain.FaceProfile{}, err
	}
	image, err := optionalImage(imageDataURL)
	if err != nil {
		return domain.FaceProfile{}, err
	}
	return a.saveProfile(name, description, image)
}

// CaptureFace saves the profile with the current camera frame as its photo.
func (a *App) CaptureFace(name string, description string) (domain.FaceProfile, error) {
	if err := a.requireReady(); err != nil {
		return domain.FaceProfile{}, err
	}
	image := a.services.Capture.Capture()
	if image == nil {
		a.SessionError(domain.ErrorCodeCapture, capture.ErrNoFrame.Error())
		return domain.FaceProfile{}, capture.ErrNoFrame
	}
	return a.saveProfile(name, description, image)
}

func (a *App) ClearProfile() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.services.Memory.ClearProfile(a.context()); err != nil {
		a.SessionError(domain.ErrorCodeProfile, err.Error())
		return err
	}
	return nil
}

func (a *App) GetMemories() ([]domain.MemoryItem, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	memories, err := a.services.Memory.Memories(a.context())
	if err != nil {
		a.SessionError(domain.ErrorCodeMemory, err.Error())
		return nil, err
	}
	return memories, nil
}

func (a *App) AddMemory(content string) (domain.MemoryItem, error) {
	if err := a.requireReady(); err != nil {
		return domain.MemoryItem{}, err
	}
	item, err := a.services.Memory.AddMemory(a.context(), content)
	if err != nil && !errors.Is(err, memory.ErrEmptyMemory) {
		a.SessionError(domain.ErrorCodeMemory, err.Error())
	}
	return item, err
}

func (a *App) ClearMemories() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.services.Memory.ClearMemories(a.context()); err != nil {
		a.SessionError(domain.ErrorCodeMemory, err.Error())
		return err
	}
	return nil
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}
	if a.services == nil {
		return map[string]string{}
	}

	cfg := a.services.Config
	model := cfg.AI.OpenAIModel
	if cfg.AI.Provider == "gemini" {
		model = cfg.AI.GeminiModel
	}
	return map[string]string{
		"wakePhrase":       cfg.Voice.WakePhrase,
		"speechProvider":   "Deepgram",
		"speechModel":      cfg.Deepgram.Model,
		"aiProvider":       cfg.AI.Provider,
		"aiModel":          model,
		"cameraSource":     cfg.Camera.Source,
		"store":            cfg.Store.Driver,
		"rulesFile":        cfg.Voice.RulesPath,
		"audioInput":       cfg.Audio.InputDevice,
		"audioInputFormat": cfg.Audio.InputFormat,
	}
}

func (a *App) saveProfile(name string, description string, image *domain.Image) (domain.FaceProfile, error) {
	profile, err := a.services.Memory.SaveProfile(a.context(), domain.FaceProfile{
		Name:        name,
		Description: description,
		Image:       image,
	})
	if err != nil {
		a.SessionError(domain.ErrorCodeProfile, err.Error())
		return domain.FaceProfile{}, err
	}
	return profile, nil
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.services == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

func optionalImage(dataURL string) (*domain.Image, error) {
	if strings.TrimSpace(dataURL) == "" {
		return nil, nil
	}
	return domain.ParseDataURL(dataURL)
}

func (a *App) context() context.Context {
	if a.ctx == nil {
		return context.Background()
	}
	return a.ctx
}

func (a *App) emit(name string, data ...interface{}) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, name, data...)
}

// ListenerStateChanged emits wake-word listener state updates.
func (a *App) ListenerStateChanged(state domain.ListenerState) {
	a.emit(eventListener, map[string]string{
		"state":   string(state),
		"message": listenerStateMessage(state),
	})
}

// WakeWordDetected tells the UI to show the listening indicator.
func (a *App) WakeWordDetected() {
	a.emit(eventWake)
}

// PartialTranscript emits live interim transcript text.
func (a *App) PartialTranscript(text string) {
	a.emit(eventPartial, map[string]string{"text": text})
}

// CommandCaptured emits the spoken command before it is sent.
func (a *App) CommandCaptured(command string) {
	a.emit(eventCommand, map[string]string{"text": command})
}

func (a *App) MessagesChanged(messages []domain.Message) {
	a.emit(eventMessages, messages)
}

func (a *App) BusyChanged(busy bool) {
	a.emit(eventBusy, map[string]bool{"busy": busy})
}

func (a *App) EffectsChanged(effects []domain.ActiveEffect) {
	a.emit(eventEffects, effects)
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	a.emit(eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func listenerStateMessage(state domain.ListenerState) string {
	switch state {
	case domain.ListenerStateDisabled:
		return "Voice off"
	case domain.ListenerStateIdle:
		return "Listening for wake word"
	case domain.ListenerStateAwaitingCommand:
		return "Listening..."
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeVoiceUnavailable:
		return "Voice recognition is not available"
	case domain.ErrorCodeRecognition:
		return "Speech recognition error"
	case domain.ErrorCodeAI:
		return "AI request failed"
	case domain.ErrorCodeCapture:
		return "Camera capture failed"
	case domain.ErrorCodeProfile:
		return "Profile update failed"
	case domain.ErrorCodeMemory:
		return "Memory update failed"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
