package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"aris/internal/domain"
	"aris/internal/ports"
)

var (
	// ErrSendInFlight rejects a second submission from the input control
	// while the first is outstanding.
	ErrSendInFlight = errors.New("a message is already being sent")
	ErrEmptyMessage = errors.New("message is empty")
	ErrUnknownQuick = errors.New("unknown quick action")
)

// ApologyMessage replaces the assistant reply when the model call fails.
const ApologyMessage = "Oops! I had trouble processing that. Please try again or check your connection."

// DefaultImagePrompt is sent when the user submits an image without text.
const DefaultImagePrompt = "What do you see?"

// QuickAction names a one-tap request that always carries a fresh frame.
type QuickAction string

const (
	QuickActionDescribe QuickAction = "describe"
	QuickActionEffects  QuickAction = "effects"
	QuickActionGame     QuickAction = "game"
)

var quickActionPrompts = map[QuickAction]string{
	QuickActionDescribe: DefaultImagePrompt,
	QuickActionEffects:  "Add a fun effect to my screen! Maybe glasses, hearts, sparkles, or something cool",
	QuickActionGame:     "Help me with this game - what should I do?",
}

// QuickActionPrompt returns the fixed prompt for action.
func QuickActionPrompt(action QuickAction) (string, bool) {
	prompt, ok := quickActionPrompts[QuickAction(strings.ToLower(string(action)))]
	return prompt, ok
}

// OrchestratorConfig controls the model round trip.
type OrchestratorConfig struct {
	// Timeout bounds one model call. Zero means no timeout beyond the caller's context.
	Timeout time.Duration
}

// Orchestrator runs conversation round trips: user message, prompt, model
// call, directive handling and assistant message.
type Orchestrator struct {
	chat      ports.ChatModel
	context   ports.ContextProvider
	capture   ports.FrameCapturer
	events    ports.EventSink
	clock     ports.Clock
	finalizer responseFinalizer
	cfg       OrchestratorConfig

	history   history
	inputBusy atomic.Bool
	inFlight  atomic.Int32
}

// NewOrchestrator wires the orchestrator. contextProvider and capture may be nil.
func NewOrchestrator(
	chat ports.ChatModel,
	contextProvider ports.ContextProvider,
	capture ports.FrameCapturer,
	effects ports.EffectApplier,
	events ports.EventSink,
	clock ports.Clock,
	cfg OrchestratorConfig,
) *Orchestrator {
	return &Orchestrator{
		chat:      chat,
		context:   contextProvider,
		capture:   capture,
		events:    events,
		clock:     clock,
		finalizer: newResponseFinalizer(effects),
		cfg:       cfg,
	}
}

// Send performs one round trip and returns the assistant message. Concurrent
// calls are allowed; each appends to the shared history independently. Model
// failures become an apology message and never surface as an error.
func (o *Orchestrator) Send(ctx context.Context, text string, image *domain.Image) domain.Message {
	o.beginRequest()
	defer o.endRequest()

	user := o.newMessage(domain.RoleUser, text)
	if image != nil {
		user.Image = image
		user.ImageURL = image.DataURL()
	}
	o.events.MessagesChanged(o.history.append(user))

	prompt := buildPrompt(o.preamble(ctx), text, image != nil)

	reply := ApologyMessage
	raw, err := o.callModel(ctx, prompt, image)
	switch {
	case err != nil:
		slog.Error("ai request failed", "error", err)
		o.events.SessionError(domain.ErrorCodeAI, err.Error())
	case strings.TrimSpace(raw) == "":
		slog.Error("ai returned an empty response")
		o.events.SessionError(domain.ErrorCodeAI, "empty response from AI")
	default:
		reply = o.finalizer.Finalize(raw)
	}

	assistant := o.newMessage(domain.RoleAssistant, reply)
	o.events.MessagesChanged(o.history.append(assistant))
	return assistant
}

// Submit is the input-control path. It rejects a second submission while one
// is outstanding. Without a pending image a frame is captured automatically.
func (o *Orchestrator) Submit(ctx context.Context, text string, pending *domain.Image) (domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" && pending == nil {
		return domain.Message{}, ErrEmptyMessage
	}
	if text == "" {
		text = DefaultImagePrompt
	}

	if !o.inputBusy.CompareAndSwap(false, true) {
		return domain.Message{}, ErrSendInFlight
	}
	defer o.inputBusy.Store(false)

	image := pending
	if image == nil {
		image = o.captureFrame()
	}
	return o.Send(ctx, text, image), nil
}

// QuickAction sends a fixed prompt with a freshly captured frame, falling back
// to pending when the camera has no frame.
func (o *Orchestrator) QuickAction(ctx context.Context, action QuickAction, pending *domain.Image) (domain.Message, error) {
	prompt, ok := QuickActionPrompt(action)
	if !ok {
		return domain.Message{}, fmt.Errorf("%w: %q", ErrUnknownQuick, action)
	}

	if !o.inputBusy.CompareAndSwap(false, true) {
		return domain.Message{}, ErrSendInFlight
	}
	defer o.inputBusy.Store(false)

	image := o.captureFrame()
	if image == nil {
		image = pending
	}
	return o.Send(ctx, prompt, image), nil
}

// HandleVoiceCommand sends a spoken command with the current frame. It is
// never blocked by an outstanding typed submission.
func (o *Orchestrator) HandleVoiceCommand(ctx context.Context, command string) {
	command = strings.TrimSpace(command)
	if command == "" {
		return
	}
	o.Send(ctx, command, o.captureFrame())
}

// Messages returns the conversation in order.
func (o *Orchestrator) Messages() []domain.Message {
	return o.history.snapshot()
}

// Dismiss removes one message. It reports whether the message existed.
func (o *Orchestrator) Dismiss(id string) bool {
	messages, ok := o.history.remove(id)
	if ok {
		o.events.MessagesChanged(messages)
	}
	return ok
}

// ClearMessages empties the conversation.
func (o *Orchestrator) ClearMessages() {
	if o.history.clear() {
		o.events.MessagesChanged([]domain.Message{})
	}
}

// Busy reports whether any round trip is outstanding.
func (o *Orchestrator) Busy() bool {
	return o.inFlight.Load() > 0
}

func (o *Orchestrator) beginRequest() {
	if o.inFlight.Add(1) == 1 {
		o.events.BusyChanged(true)
	}
}

func (o *Orchestrator) endRequest() {
	if o.inFlight.Add(-1) == 0 {
		o.events.BusyChanged(false)
	}
}

func (o *Orchestrator) newMessage(role domain.Role, text string) domain.Message {
	return domain.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: o.clock.Now(),
	}
}

// preamble is read at send time so it reflects the latest profile and memories.
func (o *Orchestrator) preamble(ctx context.Context) string {
	if o.context == nil {
		return ""
	}
	preamble, err := o.context.ContextPreamble(ctx)
	if err != nil {
		slog.Warn("failed to build user context", "error", err)
		return ""
	}
	return preamble
}

func (o *Orchestrator) captureFrame() *domain.Image {
	if o.capture == nil {
		return nil
	}
	return o.capture.Capture()
}

func (o *Orchestrator) callModel(ctx context.Context, prompt string, image *domain.Image) (raw string, err error) {
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ai call panicked: %v", r)
		}
	}()

	return o.chat.Chat(ctx, prompt, image)
}
