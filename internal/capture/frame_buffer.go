package capture

import (
	"sync"
	"time"

	"aris/internal/domain"
	"aris/internal/ports"
)

// FrameBuffer holds the most recent frame published by a camera surface.
// Frames older than maxAge are treated as absent.
type FrameBuffer struct {
	clock  ports.Clock
	maxAge time.Duration

	mu          sync.RWMutex
	frame       *domain.Image
	publishedAt time.Time
}

// NewFrameBuffer creates an empty buffer. maxAge <= 0 disables staleness checks.
func NewFrameBuffer(clock ports.Clock, maxAge time.Duration) *FrameBuffer {
	return &FrameBuffer{clock: clock, maxAge: maxAge}
}

// Publish replaces the held frame. Empty frames are ignored.
func (b *FrameBuffer) Publish(img *domain.Image) {
	if img == nil || len(img.Data) == 0 {
		return
	}
	frame := &domain.Image{MIMEType: img.MIMEType, Data: append([]byte(nil), img.Data...)}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.frame = frame
	b.publishedAt = b.clock.Now()
}

// Reset drops the held frame, e.g. when the camera stops.
func (b *FrameBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frame = nil
	b.publishedAt = time.Time{}
}

// Latest returns a copy of the newest fresh frame, or nil.
func (b *FrameBuffer) Latest() *domain.Image {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.frame == nil {
		return nil
	}
	if b.maxAge > 0 && b.clock.Now().Sub(b.publishedAt) > b.maxAge {
		return nil
	}
	return &domain.Image{MIMEType: b.frame.MIMEType, Data: append([]byte(nil), b.frame.Data...)}
}
