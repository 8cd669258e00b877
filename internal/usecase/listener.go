package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"aris/internal/domain"
	"aris/internal/ports"
)

// ErrVoiceUnavailable is returned by Enable once the recognition capability
// has been reported missing.
var ErrVoiceUnavailable = errors.New("voice recognition is unavailable")

// CaptureWindow is how long trailing speech after the wake phrase is collected.
const CaptureWindow = 2000 * time.Millisecond

// DefaultWakePhrase is used when no wake phrase is configured.
const DefaultWakePhrase = "hey aris"

// ListenerConfig controls wake-word detection and source restarts.
type ListenerConfig struct {
	WakePhrase string
	// RestartBurst and RestartInterval bound automatic restarts of the
	// recognition source: RestartBurst immediate restarts, then one per
	// RestartInterval.
	RestartBurst    int
	RestartInterval time.Duration
}

// ListenerCallbacks receive listener output. They run on the recognition
// goroutine (or the clock's timer goroutine) and must not call Enable or
// Disable synchronously.
type ListenerCallbacks struct {
	OnWakeWordDetected func()
	OnCommand          func(command string)
}

// WakeWordListener detects the wake phrase in a continuous transcript stream
// and captures the command that follows it.
type WakeWordListener struct {
	source    ports.RecognitionSource
	rules     ports.RulesEngine
	clock     ports.Clock
	events    ports.EventSink
	callbacks ListenerCallbacks
	wake      *regexp.Regexp
	limiter   *rate.Limiter

	// deliver serializes everything that reaches callbacks or the sink so
	// that nothing computed before Disable is delivered after it.
	deliver sync.Mutex

	// starting is held across the generation check and source.Start, and
	// by Disable around source.Stop, so a start racing Disable is always
	// followed by the Stop that undoes it.
	starting sync.Mutex

	mu          sync.Mutex
	state       domain.ListenerState
	generation  uint64
	candidate   string
	transcript  string
	listening   bool
	unavailable bool
	window      ports.Timer
	windowSeq   uint64
	restart     ports.Timer
}

// NewWakeWordListener builds a disabled listener. rules may be nil.
func NewWakeWordListener(
	source ports.RecognitionSource,
	rules ports.RulesEngine,
	clock ports.Clock,
	events ports.EventSink,
	callbacks ListenerCallbacks,
	cfg ListenerConfig,
) *WakeWordListener {
	if strings.TrimSpace(cfg.WakePhrase) == "" {
		cfg.WakePhrase = DefaultWakePhrase
	}
	if cfg.RestartBurst <= 0 {
		cfg.RestartBurst = 3
	}
	if cfg.RestartInterval <= 0 {
		cfg.RestartInterval = time.Second
	}

	return &WakeWordListener{
		source:    source,
		rules:     rules,
		clock:     clock,
		events:    events,
		callbacks: callbacks,
		wake:      wakePattern(cfg.WakePhrase),
		limiter:   rate.NewLimiter(rate.Every(cfg.RestartInterval), cfg.RestartBurst),
		state:     domain.ListenerStateDisabled,
	}
}

// wakePattern matches phrase as a case-insensitive substring. Any run of
// whitespace or punctuation stands in for a space, so formatted transcripts
// such as "Hey, Aris." still match.
func wakePattern(phrase string) *regexp.Regexp {
	words := strings.Fields(strings.ToLower(phrase))
	for i, word := range words {
		words[i] = regexp.QuoteMeta(word)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(words, `[\s\p{P}]+`))
}

// Enable starts listening. Enabling an enabled listener is a no-op.
func (l *WakeWordListener) Enable() error {
	l.deliver.Lock()
	l.mu.Lock()
	if l.unavailable {
		l.mu.Unlock()
		l.deliver.Unlock()
		return ErrVoiceUnavailable
	}
	if l.state != domain.ListenerStateDisabled {
		l.mu.Unlock()
		l.deliver.Unlock()
		return nil
	}
	l.generation++
	gen := l.generation
	l.state = domain.ListenerStateIdle
	l.candidate = ""
	l.transcript = ""
	l.mu.Unlock()

	l.events.ListenerStateChanged(domain.ListenerStateIdle)
	l.deliver.Unlock()

	slog.Info("voice listener enabled")
	return l.startSource(gen)
}

// Disable stops the recognition source and invalidates every pending timer.
// Once Disable returns no callback fires until the next Enable.
func (l *WakeWordListener) Disable() error {
	l.deliver.Lock()
	l.mu.Lock()
	if l.state == domain.ListenerStateDisabled {
		l.mu.Unlock()
		l.deliver.Unlock()
		return nil
	}
	l.generation++
	l.state = domain.ListenerStateDisabled
	l.resetLocked()
	l.mu.Unlock()

	l.events.ListenerStateChanged(domain.ListenerStateDisabled)
	l.deliver.Unlock()

	slog.Info("voice listener disabled")
	l.starting.Lock()
	defer l.starting.Unlock()
	if err := l.source.Stop(); err != nil {
		return fmt.Errorf("stop recognition: %w", err)
	}
	return nil
}

// Status returns a snapshot of the listener.
func (l *WakeWordListener) Status() domain.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return domain.Status{
		Listener:   l.state,
		Enabled:    l.state != domain.ListenerStateDisabled,
		Listening:  l.listening,
		Transcript: l.transcript,
	}
}

// State returns the current listener state.
func (l *WakeWordListener) State() domain.ListenerState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Close disables the listener.
func (l *WakeWordListener) Close() error {
	return l.Disable()
}

// listenerInput is one event fed to the state machine.
type listenerInput struct {
	transcript    string
	final         bool
	windowExpired bool
}

// transition is the observable result of one step.
type transition struct {
	from    domain.ListenerState
	to      domain.ListenerState
	wake    bool
	command string
}

// stepLocked is the listener's transition function. It mutates state and
// candidate only; timers and delivery are handled by the caller.
func (l *WakeWordListener) stepLocked(in listenerInput) transition {
	t := transition{from: l.state, to: l.state}

	if in.windowExpired {
		if l.state == domain.ListenerStateAwaitingCommand {
			t.command = l.candidate
			t.to = domain.ListenerStateIdle
			l.candidate = ""
		}
		l.state = t.to
		return t
	}

	loc := l.wake.FindStringIndex(in.transcript)
	switch l.state {
	case domain.ListenerStateIdle:
		if loc == nil {
			return t
		}
		// The triggering transcript is also the first command candidate.
		t.wake = true
		l.state = domain.ListenerStateAwaitingCommand
		l.candidate = ""
		fallthrough
	case domain.ListenerStateAwaitingCommand:
		if loc != nil {
			l.candidate = commandAfter(in.transcript[loc[1]:])
		} else {
			// Recognizers that finalize at the wake phrase deliver the
			// command as its own segment.
			l.candidate = commandAfter(in.transcript)
		}
		if in.final && l.candidate != "" {
			t.command = l.candidate
			l.candidate = ""
			l.state = domain.ListenerStateIdle
		}
	}

	t.to = l.state
	return t
}

func commandAfter(text string) string {
	return strings.TrimSpace(strings.TrimLeft(text, " \t\r\n,.!?;:-"))
}

func (l *WakeWordListener) handleTranscript(gen uint64, event domain.TranscriptEvent) {
	text := strings.TrimSpace(event.Text)
	if text == "" {
		return
	}
	normalized := text
	if l.rules != nil {
		applied, err := l.rules.Apply(text)
		if err != nil {
			slog.Warn("transcript rules failed", "error", err)
		} else {
			normalized = strings.TrimSpace(applied)
		}
	}

	l.deliver.Lock()
	defer l.deliver.Unlock()

	l.mu.Lock()
	if gen != l.generation || l.state == domain.ListenerStateDisabled {
		l.mu.Unlock()
		return
	}
	l.transcript = text
	t := l.stepLocked(listenerInput{transcript: normalized, final: event.IsFinal})
	if t.wake {
		l.startWindowLocked(gen)
	}
	if t.command != "" {
		l.stopWindowLocked()
	}
	l.mu.Unlock()

	if !event.IsFinal {
		l.events.PartialTranscript(text)
	}
	l.deliverTransition(t)
}

func (l *WakeWordListener) startWindowLocked(gen uint64) {
	l.stopWindowLocked()
	l.windowSeq++
	seq := l.windowSeq
	l.window = l.clock.AfterFunc(CaptureWindow, func() {
		l.handleWindowExpired(gen, seq)
	})
}

func (l *WakeWordListener) stopWindowLocked() {
	if l.window != nil {
		l.window.Stop()
		l.window = nil
	}
	// Invalidates a timer that already fired but has not taken the lock yet.
	l.windowSeq++
}

func (l *WakeWordListener) handleWindowExpired(gen uint64, seq uint64) {
	l.deliver.Lock()
	defer l.deliver.Unlock()

	l.mu.Lock()
	if gen != l.generation || seq != l.windowSeq || l.state != domain.ListenerStateAwaitingCommand {
		l.mu.Unlock()
		return
	}
	l.window = nil
	t := l.stepLocked(listenerInput{windowExpired: true})
	l.mu.Unlock()

	if t.command == "" {
		slog.Debug("capture window closed without a command")
	}
	l.deliverTransition(t)
}

// deliverTransition must be called with deliver held and mu released.
func (l *WakeWordListener) deliverTransition(t transition) {
	prev := t.from
	if t.wake {
		slog.Debug("wake phrase detected")
		if l.callbacks.OnWakeWordDetected != nil {
			l.callbacks.OnWakeWordDetected()
		}
		l.events.ListenerStateChanged(domain.ListenerStateAwaitingCommand)
		prev = domain.ListenerStateAwaitingCommand
	}
	if t.to != prev {
		l.events.ListenerStateChanged(t.to)
	}
	if t.command != "" {
		slog.Info("voice command captured", "command", t.command)
		if l.callbacks.OnCommand != nil {
			l.callbacks.OnCommand(t.command)
		}
	}
}

func (l *WakeWordListener) resetLocked() {
	if l.window != nil {
		l.window.Stop()
		l.window = nil
	}
	l.windowSeq++
	if l.restart != nil {
		l.restart.Stop()
		l.restart = nil
	}
	l.candidate = ""
	l.listening = false
}

func (l *WakeWordListener) startSource(gen uint64) error {
	l.starting.Lock()
	l.mu.Lock()
	current := gen == l.generation && l.state != domain.ListenerStateDisabled
	l.mu.Unlock()
	if !current {
		l.starting.Unlock()
		return nil
	}
	err := l.source.Start(sourceHandler{listener: l, generation: gen})
	l.starting.Unlock()
	if err == nil {
		return nil
	}

	if domain.RecognitionErrorKindOf(err) == domain.RecognitionErrorUnavailable {
		l.markUnavailable(gen, err)
		return fmt.Errorf("%w: %v", ErrVoiceUnavailable, err)
	}

	l.reportError(gen, err)
	l.scheduleRestart(gen)
	return nil
}

func (l *WakeWordListener) markUnavailable(gen uint64, cause error) {
	l.deliver.Lock()
	defer l.deliver.Unlock()

	l.mu.Lock()
	if gen != l.generation || l.unavailable {
		l.mu.Unlock()
		return
	}
	l.generation++
	l.unavailable = true
	l.state = domain.ListenerStateDisabled
	l.resetLocked()
	l.mu.Unlock()

	slog.Warn("voice recognition unavailable", "error", cause)
	l.events.ListenerStateChanged(domain.ListenerStateDisabled)
	l.events.SessionError(domain.ErrorCodeVoiceUnavailable, "Voice recognition is not available on this system.")
}

func (l *WakeWordListener) reportError(gen uint64, err error) {
	kind := domain.RecognitionErrorKindOf(err)
	if kind.Transient() {
		slog.Debug("recognition ended", "kind", kind)
		return
	}

	l.deliver.Lock()
	defer l.deliver.Unlock()

	l.mu.Lock()
	current := gen == l.generation && l.state != domain.ListenerStateDisabled
	l.mu.Unlock()
	if !current {
		return
	}

	slog.Warn("recognition error", "kind", kind, "error", err)
	l.events.SessionError(domain.ErrorCodeRecognition, err.Error())
}

// scheduleRestart restarts the source now or, once the restart budget is
// spent, after the limiter's delay. Disable cancels a deferred restart.
func (l *WakeWordListener) scheduleRestart(gen uint64) {
	l.mu.Lock()
	if gen != l.generation || l.state == domain.ListenerStateDisabled || l.restart != nil {
		l.mu.Unlock()
		return
	}
	now := l.clock.Now()
	delay := l.limiter.ReserveN(now, 1).DelayFrom(now)
	if delay <= 0 {
		l.mu.Unlock()
		slog.Debug("restarting recognition")
		_ = l.startSource(gen)
		return
	}
	l.restart = l.clock.AfterFunc(delay, func() {
		l.mu.Lock()
		if gen != l.generation || l.state == domain.ListenerStateDisabled {
			l.mu.Unlock()
			return
		}
		l.restart = nil
		l.mu.Unlock()

		slog.Debug("restarting recognition after backoff")
		_ = l.startSource(gen)
	})
	l.mu.Unlock()
	slog.Debug("recognition restart deferred", "delay", delay)
}

func (l *WakeWordListener) handleStart(gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen == l.generation && l.state != domain.ListenerStateDisabled {
		l.listening = true
	}
}

func (l *WakeWordListener) handleEnd(gen uint64) {
	l.mu.Lock()
	if gen != l.generation || l.state == domain.ListenerStateDisabled {
		l.mu.Unlock()
		return
	}
	l.listening = false
	l.mu.Unlock()

	l.scheduleRestart(gen)
}

// sourceHandler binds recognition callbacks to the Enable call that started
// the source, so output from an earlier session is ignored.
type sourceHandler struct {
	listener   *WakeWordListener
	generation uint64
}

func (h sourceHandler) OnStart() { h.listener.handleStart(h.generation) }

func (h sourceHandler) OnEnd() { h.listener.handleEnd(h.generation) }

func (h sourceHandler) OnTranscript(event domain.TranscriptEvent) {
	h.listener.handleTranscript(h.generation, event)
}

func (h sourceHandler) OnError(err *domain.RecognitionError) {
	h.listener.reportError(h.generation, err)
}
