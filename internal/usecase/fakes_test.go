package usecase

import (
	"context"
	"errors"
	"sync"

	"aris/internal/domain"
	"aris/internal/ports"
)

type fakeSource struct {
	mu         sync.Mutex
	handlers   []ports.RecognitionHandler
	startErrs  []error
	startCalls int
	stopCalls  int
}

func (f *fakeSource) Start(handler ports.RecognitionHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	if len(f.startErrs) > 0 {
		err := f.startErrs[0]
		f.startErrs = f.startErrs[1:]
		if err != nil {
			return err
		}
	}
	f.handlers = append(f.handlers, handler)
	return nil
}

func (f *fakeSource) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	return nil
}

func (f *fakeSource) handler() ports.RecognitionHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.handlers) == 0 {
		return nil
	}
	return f.handlers[len(f.handlers)-1]
}

func (f *fakeSource) starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCalls
}

func (f *fakeSource) stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls
}

type fakeRules struct {
	replacements map[string]string
	err          error
}

func (f *fakeRules) Apply(text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if out, ok := f.replacements[text]; ok {
		return out, nil
	}
	return text, nil
}

type sessionErrorEvent struct {
	code   domain.ErrorCode
	detail string
}

type fakeEventSink struct {
	mu       sync.Mutex
	states   []domain.ListenerState
	wakes    int
	partials []string
	commands []string
	messages [][]domain.Message
	busy     []bool
	effects  [][]domain.ActiveEffect
	errors   []sessionErrorEvent
}

func (f *fakeEventSink) ListenerStateChanged(state domain.ListenerState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, state)
}

func (f *fakeEventSink) WakeWordDetected() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wakes++
}

func (f *fakeEventSink) PartialTranscript(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.partials = append(f.partials, text)
}

func (f *fakeEventSink) CommandCaptured(command string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, command)
}

func (f *fakeEventSink) MessagesChanged(messages []domain.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, messages)
}

func (f *fakeEventSink) BusyChanged(busy bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy = append(f.busy, busy)
}

func (f *fakeEventSink) EffectsChanged(effects []domain.ActiveEffect) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.effects = append(f.effects, effects)
}

func (f *fakeEventSink) SessionError(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, sessionErrorEvent{code: code, detail: detail})
}

func (f *fakeEventSink) snapshotStates() []domain.ListenerState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ListenerState(nil), f.states...)
}

func (f *fakeEventSink) snapshotPartials() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.partials...)
}

func (f *fakeEventSink) snapshotErrors() []sessionErrorEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sessionErrorEvent(nil), f.errors...)
}

func (f *fakeEventSink) snapshotBusy() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.busy...)
}

func (f *fakeEventSink) lastMessages() []domain.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return nil
	}
	return f.messages[len(f.messages)-1]
}

type chatCall struct {
	prompt string
	image  *domain.Image
}

type fakeChatModel struct {
	mu       sync.Mutex
	response string
	err      error
	panicMsg string
	calls    []chatCall
	// block, when set, holds Chat until it is closed.
	block chan struct{}
}

func (f *fakeChatModel) Chat(ctx context.Context, prompt string, image *domain.Image) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, chatCall{prompt: prompt, image: image})
	block := f.block
	response, err, panicMsg := f.response, f.err, f.panicMsg
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if panicMsg != "" {
		panic(panicMsg)
	}
	return response, err
}

func (f *fakeChatModel) snapshotCalls() []chatCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]chatCall(nil), f.calls...)
}

type fakeContext struct {
	preamble string
	err      error
}

func (f *fakeContext) ContextPreamble(context.Context) (string, error) {
	return f.preamble, f.err
}

type fakeCapturer struct {
	mu    sync.Mutex
	image *domain.Image
	calls int
}

func (f *fakeCapturer) Capture() *domain.Image {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.image
}

func (f *fakeCapturer) captures() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var errBoom = errors.New("boom")
