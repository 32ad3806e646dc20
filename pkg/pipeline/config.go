package pipeline

import (
	"fmt"

	"github.com/teslashibe/go-bones/pkg/audioio"
	"github.com/teslashibe/go-bones/pkg/dsp"
)

// Config holds the assembled pipeline parameters.
type Config struct {
	// Capture configures the microphone.
	Capture audioio.Config `yaml:"capture" json:"capture"`

	// Playback configures the speaker.
	Playback audioio.Config `yaml:"playback" json:"playback"`

	// DSP configures the pitch/time processor.
	DSP dsp.Config `yaml:"dsp" json:"dsp"`

	// PauseThreshold is the number of consecutive silent segments the
	// voice must exceed before the jaw stops.
	PauseThreshold int `yaml:"pause_threshold" json:"pause_threshold"`

	// ResumeThreshold is the number of consecutive voiced segments needed
	// to restart the jaw. 1 resumes on the first voiced segment.
	ResumeThreshold int `yaml:"resume_threshold" json:"resume_threshold"`

	// AudioQueueSize bounds the receive→DSP handoff.
	AudioQueueSize int `yaml:"audio_queue_size" json:"audio_queue_size"`

	// EventQueueSize bounds the segmenter→coordinator handoff.
	EventQueueSize int `yaml:"event_queue_size" json:"event_queue_size"`
}

// DefaultConfig returns the shipped pipeline configuration.
func DefaultConfig() Config {
	return Config{
		Capture:         audioio.DefaultCaptureConfig(),
		Playback:        audioio.DefaultPlaybackConfig(),
		DSP:             dsp.DefaultConfig(),
		PauseThreshold:  20,
		ResumeThreshold: 1,
		AudioQueueSize:  256,
		EventQueueSize:  32,
	}
}

// Validate checks the assembled configuration.
func (c *Config) Validate() error {
	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("pipeline: capture: %w", err)
	}
	if err := c.Playback.Validate(); err != nil {
		return fmt.Errorf("pipeline: playback: %w", err)
	}
	if err := c.DSP.Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if c.PauseThreshold < 0 {
		return fmt.Errorf("pipeline: pause_threshold must be non-negative, got %d", c.PauseThreshold)
	}
	if c.Playback.SampleRate != c.DSP.SampleRate {
		return fmt.Errorf("pipeline: playback rate %d != dsp rate %d",
			c.Playback.SampleRate, c.DSP.SampleRate)
	}
	return nil
}
