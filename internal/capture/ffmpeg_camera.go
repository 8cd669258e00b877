package capture

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"aris/internal/domain"
	"aris/internal/ffmpeg"
)

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// maxFrameBytes bounds a single JPEG; larger runs are discarded as corrupt.
const maxFrameBytes = 8 << 20

// FFMPEGCamera captures a local camera as MJPEG and publishes every frame into
// a FrameBuffer.
type FFMPEGCamera struct {
	command string
	cfg     ffmpeg.CameraConfig
	buffer  *FrameBuffer

	mu      sync.Mutex
	process *ffmpeg.Process
	done    chan struct{}
}

func NewFFMPEGCamera(command string, cfg ffmpeg.CameraConfig, buffer *FrameBuffer) *FFMPEGCamera {
	return &FFMPEGCamera{command: command, cfg: cfg, buffer: buffer}
}

// Start launches ffmpeg. Calling Start on a running camera is a no-op.
func (c *FFMPEGCamera) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.process != nil {
		return nil
	}

	process, err := ffmpeg.Start(ctx, c.command, ffmpeg.CameraArgs(c.cfg))
	if err != nil {
		return fmt.Errorf("start camera: %w", err)
	}
	done := make(chan struct{})
	c.process = process
	c.done = done

	go func() {
		defer close(done)
		if err := SplitJPEG(process, func(frame []byte) {
			c.buffer.Publish(&domain.Image{MIMEType: "image/jpeg", Data: frame})
		}); err != nil {
			slog.Warn("camera stream ended", "error", err)
		}
	}()

	slog.Info("camera capture started", "device", c.cfg.Device)
	return nil
}

// Stop terminates ffmpeg and drops the buffered frame.
func (c *FFMPEGCamera) Stop() error {
	c.mu.Lock()
	process := c.process
	done := c.done
	c.process = nil
	c.done = nil
	c.mu.Unlock()

	if process == nil {
		return nil
	}
	err := process.Stop()
	<-done
	c.buffer.Reset()
	return err
}

// SplitJPEG reads a concatenated JPEG stream and calls emit with each complete
// frame. It returns nil at EOF.
func SplitJPEG(r io.Reader, emit func(frame []byte)) error {
	reader := bufio.NewReaderSize(r, 64<<10)
	var pending []byte
	chunk := make([]byte, 32<<10)

	for {
		n, err := reader.Read(chunk)
		if n > 0 {
			pending = append(pending, chunk[:n]...)
			pending = drainFrames(pending, emit)
			if len(pending) > maxFrameBytes {
				pending = pending[:0]
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

func drainFrames(buf []byte, emit func([]byte)) []byte {
	for {
		start := bytes.Index(buf, jpegSOI)
		if start < 0 {
			// Keep a trailing 0xFF in case it starts the next marker.
			if len(buf) > 0 && buf[len(buf)-1] == 0xFF {
				return append(buf[:0], 0xFF)
			}
			return buf[:0]
		}
		end := bytes.Index(buf[start+len(jpegSOI):], jpegEOI)
		if end < 0 {
			if start > 0 {
				buf = append(buf[:0], buf[start:]...)
			}
			return buf
		}
		stop := start + len(jpegSOI) + end + len(jpegEOI)
		emit(append([]byte(nil), buf[start:stop]...))
		buf = append(buf[:0], buf[stop:]...)
	}
}
