package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/samber/lo"

	"aris/internal/domain"
)

// consoleSink prints backend events as they happen.
type consoleSink struct {
	mu      sync.Mutex
	out     io.Writer
	printed map[string]bool
}

func newConsoleSink(out io.Writer) *consoleSink {
	return &consoleSink{out: out, printed: map[string]bool{}}
}

func (s *consoleSink) println(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, line)
}

func (s *consoleSink) ListenerStateChanged(state domain.ListenerState) {
	s.println(statusStyle.Render("voice: " + string(state)))
}

func (s *consoleSink) WakeWordDetected() {
	s.println(commandStyle.Render("● listening..."))
}

func (s *consoleSink) PartialTranscript(text string) {
	s.println(partialStyle.Render("… " + text))
}

func (s *consoleSink) CommandCaptured(command string) {
	s.println(commandStyle.Render("» " + command))
}

// MessagesChanged prints assistant replies not yet shown.
func (s *consoleSink) MessagesChanged(messages []domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range messages {
		if m.Role != domain.RoleAssistant || s.printed[m.ID] {
			continue
		}
		s.printed[m.ID] = true
		fmt.Fprintln(s.out, assistantLabelStyle.Render("aris:")+" "+m.Text)
	}
}

func (s *consoleSink) BusyChanged(busy bool) {
	if busy {
		s.println(statusStyle.Render("thinking..."))
	}
}

func (s *consoleSink) EffectsChanged(effects []domain.ActiveEffect) {
	s.println(effectStyle.Render("effects: " + describeEffects(effects)))
}

func (s *consoleSink) SessionError(code domain.ErrorCode, detail string) {
	s.println(errorStyle.Render(fmt.Sprintf("error [%s]: %s", code, detail)))
}

func describeEffects(effects []domain.ActiveEffect) string {
	if len(effects) == 0 {
		return "none"
	}
	names := lo.Map(effects, func(e domain.ActiveEffect, _ int) string { return string(e.Kind) })
	return strings.Join(names, ", ")
}
