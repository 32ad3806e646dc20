// Package audioio provides audio capture and playback for the talking skull.
//
// This package supports two backends:
//   - PortAudio - production capture/playback on the host machine
//   - Mock - CI/testing without hardware
//
// Capture and playback run at different sample rates: the microphone feeds
// the speech session at 16 kHz while synthesized audio comes back at 24 kHz.
package audioio

import (
	"fmt"
	"time"
)

// Backend represents the audio backend type.
type Backend string

const (
	// BackendPortAudio uses PortAudio for cross-platform audio I/O.
	BackendPortAudio Backend = "portaudio"
	// BackendMock uses a mock implementation for testing.
	BackendMock Backend = "mock"
)

// Config holds audio configuration.
type Config struct {
	// Backend specifies which audio backend to use.
	Backend Backend `yaml:"backend" json:"backend"`

	// SampleRate is the audio sample rate in Hz.
	SampleRate int `yaml:"sample_rate" json:"sample_rate"`

	// Channels is the number of audio channels.
	// Default: 1 (mono)
	Channels int `yaml:"channels" json:"channels"`

	// FrameDuration is the duration of each capture/playback frame.
	// Default: 30ms (480 samples at 16kHz)
	FrameDuration time.Duration `yaml:"frame_duration" json:"frame_duration"`
}

// DefaultCaptureConfig returns the microphone configuration.
// 16 kHz mono is what the speech session expects on its input side.
func DefaultCaptureConfig() Config {
	return Config{
		Backend:       BackendPortAudio,
		SampleRate:    16000,
		Channels:      1,
		FrameDuration: 30 * time.Millisecond,
	}
}

// DefaultPlaybackConfig returns the speaker configuration.
// 24 kHz is the fixed output rate of the speech session.
func DefaultPlaybackConfig() Config {
	return Config{
		Backend:       BackendPortAudio,
		SampleRate:    24000,
		Channels:      1,
		FrameDuration: 30 * time.Millisecond,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	if c.FrameDuration <= 0 {
		return fmt.Errorf("frame_duration must be positive, got %v", c.FrameDuration)
	}
	return nil
}

// FrameSize returns the number of samples per frame.
func (c *Config) FrameSize() int {
	return int(float64(c.SampleRate) * c.FrameDuration.Seconds())
}

// FrameBytes returns the size of a frame in bytes (int16 samples).
func (c *Config) FrameBytes() int {
	return c.FrameSize() * c.Channels * 2
}
