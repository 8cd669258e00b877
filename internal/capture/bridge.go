// Package capture provides the current camera frame to callers that do not own
// the camera.
package capture

import (
	"errors"
	"log/slog"
	"sync"

	"aris/internal/domain"
)

// ErrNoFrame is returned by callers that require a frame when none is available.
var ErrNoFrame = errors.New("no camera frame available")

// Func returns the current frame, or nil when the camera is not streaming.
type Func func() *domain.Image

// Bridge is a late-bound slot for the frame capture function. The zero value
// is usable and returns no frame.
type Bridge struct {
	mu sync.RWMutex
	fn Func
}

func NewBridge() *Bridge {
	return &Bridge{}
}

// Install sets the capture function, replacing any previous one.
func (b *Bridge) Install(fn Func) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fn = fn
}

// Uninstall resets the slot to the no-frame default.
func (b *Bridge) Uninstall() {
	b.Install(nil)
}

// Capture calls the installed function. It never panics and returns nil when
// the slot is empty, the function yields nothing or the frame is empty.
func (b *Bridge) Capture() (img *domain.Image) {
	b.mu.RLock()
	fn := b.fn
	b.mu.RUnlock()

	if fn == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Warn("frame capture panicked", "panic", r)
			img = nil
		}
	}()

	img = fn()
	if img == nil || len(img.Data) == 0 {
		return nil
	}
	return img
}
