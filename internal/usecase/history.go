package usecase

import (
	"sync"

	"github.com/samber/lo"

	"aris/internal/domain"
)

// history is the ordered conversation. It only grows by append and shrinks by
// filtering.
type history struct {
	mu       sync.Mutex
	messages []domain.Message
}

func (h *history) append(message domain.Message) []domain.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, message)
	return h.snapshotLocked()
}

// remove drops the message with id and reports whether it existed.
func (h *history) remove(id string) ([]domain.Message, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	kept := lo.Reject(h.messages, func(m domain.Message, _ int) bool { return m.ID == id })
	if len(kept) == len(h.messages) {
		return h.snapshotLocked(), false
	}
	h.messages = kept
	return h.snapshotLocked(), true
}

func (h *history) clear() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	had := len(h.messages) > 0
	h.messages = nil
	return had
}

func (h *history) snapshot() []domain.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked()
}

func (h *history) snapshotLocked() []domain.Message {
	return append([]domain.Message{}, h.messages...)
}
