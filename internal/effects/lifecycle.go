// Package effects tracks which visual overlays are active and when they expire.
package effects

import (
	"log/slog"
	"sync"
	"time"

	"aris/internal/domain"
	"aris/internal/ports"
)

type entry struct {
	effect domain.ActiveEffect
	timer  ports.Timer
}

// Lifecycle is the set of active effects, keyed by kind. Entries keep the
// order in which they were last asserted.
type Lifecycle struct {
	clock    ports.Clock
	onChange func([]domain.ActiveEffect)

	mu      sync.Mutex
	entries []*entry
	closed  bool
}

// NewLifecycle creates an empty lifecycle. onChange, when non-nil, receives a
// snapshot after every mutation and is called without the lock held.
func NewLifecycle(clock ports.Clock, onChange func([]domain.ActiveEffect)) *Lifecycle {
	return &Lifecycle{clock: clock, onChange: onChange}
}

// Add activates kind, replacing any existing entry of the same kind. A positive
// duration schedules expiry of this entry only. Adding domain.EffectNone clears
// every effect.
func (l *Lifecycle) Add(kind domain.EffectKind, duration time.Duration) {
	if kind == domain.EffectNone {
		l.Clear()
		return
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.removeLocked(kind)

	now := l.clock.Now()
	e := &entry{effect: domain.ActiveEffect{Kind: kind, StartedAt: now}}
	if duration > 0 {
		expiresAt := now.Add(duration)
		e.effect.ExpiresAt = &expiresAt
		e.timer = l.clock.AfterFunc(duration, func() { l.expire(e) })
	}
	l.entries = append(l.entries, e)
	snapshot := l.snapshotLocked()
	l.mu.Unlock()

	slog.Debug("effect activated", "kind", kind, "duration", duration)
	l.notify(snapshot)
}

// Remove deactivates kind if present.
func (l *Lifecycle) Remove(kind domain.EffectKind) {
	l.mu.Lock()
	if !l.removeLocked(kind) {
		l.mu.Unlock()
		return
	}
	snapshot := l.snapshotLocked()
	l.mu.Unlock()

	l.notify(snapshot)
}

// Clear removes every active effect and cancels their expiry timers.
func (l *Lifecycle) Clear() {
	l.mu.Lock()
	if len(l.entries) == 0 {
		l.mu.Unlock()
		return
	}
	l.stopAllLocked()
	l.mu.Unlock()

	slog.Debug("effects cleared")
	l.notify([]domain.ActiveEffect{})
}

// Active returns a snapshot of the active effects.
func (l *Lifecycle) Active() []domain.ActiveEffect {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// Close cancels pending expiry timers. Later calls to Add are ignored.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.stopAllLocked()
}

func (l *Lifecycle) expire(target *entry) {
	l.mu.Lock()
	idx := -1
	for i, e := range l.entries {
		if e == target {
			idx = i
			break
		}
	}
	if idx < 0 {
		// Superseded or already removed.
		l.mu.Unlock()
		return
	}
	l.entries = append(l.entries[:idx], l.entries[idx+1:]...)
	snapshot := l.snapshotLocked()
	l.mu.Unlock()

	slog.Debug("effect expired", "kind", target.effect.Kind)
	l.notify(snapshot)
}

func (l *Lifecycle) removeLocked(kind domain.EffectKind) bool {
	for i, e := range l.entries {
		if e.effect.Kind != kind {
			continue
		}
		if e.timer != nil {
			e.timer.Stop()
		}
		l.entries = append(l.entries[:i], l.entries[i+1:]...)
		return true
	}
	return false
}

func (l *Lifecycle) stopAllLocked() {
	for _, e := range l.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	l.entries = nil
}

func (l *Lifecycle) snapshotLocked() []domain.ActiveEffect {
	out := make([]domain.ActiveEffect, 0, len(l.entries))
	for _, e := range l.entries {
		effect := e.effect
		if effect.ExpiresAt != nil {
			expiresAt := *effect.ExpiresAt
			effect.ExpiresAt = &expiresAt
		}
		out = append(out, effect)
	}
	return out
}

func (l *Lifecycle) notify(snapshot []domain.ActiveEffect) {
	if l.onChange != nil {
		l.onChange(snapshot)
	}
}

// Apply feeds parsed directives into the lifecycle in order.
func (l *Lifecycle) Apply(directives []domain.Directive) {
	for _, d := range directives {
		l.Add(d.Kind, d.Duration)
	}
}
