// Package speech turns microphone capture plus a streaming transcription
// provider into a continuous recognition source.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"aris/internal/domain"
	"aris/internal/ffmpeg"
	"aris/internal/ports"
	"aris/internal/providers/deepgram"
)

// Config controls how a recognition session is opened.
type Config struct {
	Audio     ports.AudioConfig
	Streaming ports.StreamingConfig
	ChunkSize int
	// FlushTimeout bounds how long a session waits for trailing provider
	// results after the microphone stream ends.
	FlushTimeout time.Duration
}

// Source implements ports.RecognitionSource. At most one session runs at a time.
type Source struct {
	audio    ports.AudioCapture
	provider ports.TranscriptionProvider
	cfg      Config

	mu      sync.Mutex
	current *activeSession
}

func NewSource(audio ports.AudioCapture, provider ports.TranscriptionProvider, cfg Config) *Source {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = 4 * time.Second
	}
	cfg.Streaming.InterimResults = true
	return &Source{audio: audio, provider: provider, cfg: cfg}
}

type activeSession struct {
	cancel  context.CancelFunc
	audio   ports.AudioSession
	stream  ports.StreamingSession
	handler ports.RecognitionHandler
	done    chan struct{}

	mu      sync.Mutex
	stopped bool
}

func (s *activeSession) markStopped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

func (s *activeSession) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Start opens a session and begins delivering events to handler. Starting an
// already running source is a no-op. Failures are returned as
// *domain.RecognitionError.
func (s *Source) Start(handler ports.RecognitionHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := s.provider.StartStreaming(ctx, s.cfg.Streaming)
	if err != nil {
		cancel()
		return classifyStartErr(err, domain.RecognitionErrorNetwork)
	}

	audio, err := s.audio.Start(ctx, s.cfg.Audio)
	if err != nil {
		_ = stream.Close()
		cancel()
		return classifyStartErr(err, domain.RecognitionErrorAudioCapture)
	}

	active := &activeSession{
		cancel:  cancel,
		audio:   audio,
		stream:  stream,
		handler: handler,
		done:    make(chan struct{}),
	}
	s.current = active

	go s.run(active)
	return nil
}

// Stop tears the running session down and waits for it to finish. No handler
// callbacks are delivered for a stopped session once Stop returns, and OnEnd
// is not delivered at all. Stop must not be called from inside a handler.
func (s *Source) Stop() error {
	s.mu.Lock()
	active := s.current
	s.current = nil
	s.mu.Unlock()

	if active == nil {
		return nil
	}

	active.markStopped()
	active.cancel()
	audioErr := active.audio.Stop()
	_ = active.stream.Close()
	<-active.done

	if audioErr != nil {
		return fmt.Errorf("stop audio capture: %w", audioErr)
	}
	return nil
}

func (s *Source) run(active *activeSession) {
	defer close(active.done)

	if !active.isStopped() {
		active.handler.OnStart()
	}

	audioDone := make(chan error, 1)
	go func() {
		err := pumpAudioChunks(active.audio, active.stream, s.cfg.ChunkSize)
		_ = active.stream.CloseSend()
		audioDone <- err
	}()

	heard := false
	for event := range active.stream.Events() {
		text := strings.TrimSpace(event.Text)
		if text == "" || active.isStopped() {
			continue
		}
		heard = true
		active.handler.OnTranscript(domain.TranscriptEvent{Text: text, IsFinal: event.IsFinal})
	}

	streamErr := waitForStream(active.stream, s.cfg.FlushTimeout)
	_ = active.audio.Stop()
	audioErr := <-audioDone

	s.mu.Lock()
	if s.current == active {
		s.current = nil
	}
	s.mu.Unlock()

	if active.isStopped() {
		return
	}

	if recErr := classifyEnd(heard, audioErr, streamErr); recErr != nil {
		active.handler.OnError(recErr)
	}
	active.handler.OnEnd()
}

func classifyStartErr(err error, fallback domain.RecognitionErrorKind) *domain.RecognitionError {
	kind := fallback
	switch {
	case errors.Is(err, deepgram.ErrNotConfigured), errors.Is(err, ffmpeg.ErrBinaryNotFound):
		kind = domain.RecognitionErrorUnavailable
	case errors.Is(err, context.Canceled):
		kind = domain.RecognitionErrorAborted
	}
	return &domain.RecognitionError{Kind: kind, Err: err}
}

func classifyEnd(heard bool, audioErr error, streamErr error) *domain.RecognitionError {
	switch {
	case streamErr != nil && errors.Is(streamErr, context.Canceled):
		return &domain.RecognitionError{Kind: domain.RecognitionErrorAborted, Err: streamErr}
	case streamErr != nil:
		return &domain.RecognitionError{Kind: domain.RecognitionErrorNetwork, Err: streamErr}
	case audioErr != nil:
		return &domain.RecognitionError{Kind: domain.RecognitionErrorAudioCapture, Err: audioErr}
	case !heard:
		return &domain.RecognitionError{Kind: domain.RecognitionErrorNoSpeech}
	}
	return nil
}

// pumpAudioChunks copies microphone audio into the stream until either side
// fails. A clean end of the capture stream returns nil.
func pumpAudioChunks(audio ports.AudioSession, stream ports.StreamingSession, chunkSize int) error {
	if chunkSize < 256 {
		chunkSize = 4096
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			if sendErr := stream.SendAudio(buf[:n]); sendErr != nil {
				slog.Debug("audio send stopped", "error", sendErr)
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("audio capture error: %w", err)
		}
	}
}

func waitForStream(session ports.StreamingSession, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		_ = session.Close()
		return <-done
	}
}
