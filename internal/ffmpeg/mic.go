package ffmpeg

import (
	"context"
	"strconv"

	"aris/internal/ports"
)

// MicCapture streams microphone PCM (s16le) using ffmpeg.
type MicCapture struct {
	command string
}

func NewMicCapture(command string) *MicCapture {
	if command == "" {
		command = "ffmpeg"
	}
	return &MicCapture{command: command}
}

func (c *MicCapture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	return Start(ctx, c.command, MicArgs(cfg))
}

// MicArgs builds the ffmpeg arguments for raw PCM microphone capture.
func MicArgs(cfg ports.AudioConfig) []string {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}

	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-",
	}
}

// CameraConfig describes a local video device captured as MJPEG.
type CameraConfig struct {
	InputFormat string
	Device      string
	FPS         int
	Quality     int
}

// CameraArgs builds the ffmpeg arguments for an MJPEG stream on stdout.
func CameraArgs(cfg CameraConfig) []string {
	if cfg.InputFormat == "" {
		cfg.InputFormat = "v4l2"
	}
	if cfg.Device == "" {
		cfg.Device = "/dev/video0"
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 2
	}
	if cfg.Quality <= 0 {
		cfg.Quality = 5
	}

	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.Device,
		"-r", strconv.Itoa(cfg.FPS),
		"-q:v", strconv.Itoa(cfg.Quality),
		"-f", "mjpeg",
		"-",
	}
}
