// Package dsp implements the overlap-add pitch/time processing applied to
// synthesized speech before it reaches the speaker.
//
// The skull's voice is the session's voice pitched down and slowed: each
// analysis frame is pitch-shifted in the frequency domain, then frames are
// recombined by overlap-add with a synthesis hop larger than the analysis
// hop, which stretches time without changing pitch again. There is no phase
// locking, so some artifacts are expected and accepted.
package dsp

import (
	"fmt"
	"time"
)

// Config holds the tunable parameters of the pitch/time processor.
// The defaults are the values the skull ships with; they are configuration,
// not contract.
type Config struct {
	// SampleRate is the rate of the incoming synthesized audio in Hz.
	SampleRate int `yaml:"sample_rate" json:"sample_rate"`

	// FrameSize is the analysis frame length in samples.
	FrameSize int `yaml:"frame_size" json:"frame_size"`

	// HopSize is the analysis hop: how far the input advances per frame.
	HopSize int `yaml:"hop_size" json:"hop_size"`

	// PitchShift is the frequency scaling factor. 1.0 is neutral,
	// values below 1.0 lower the voice.
	PitchShift float64 `yaml:"pitch_shift" json:"pitch_shift"`

	// Timbre shifts the spectral envelope independently of pitch.
	// 1.0 is neutral. Only applies when Quefrency > 0.
	Timbre float64 `yaml:"timbre" json:"timbre"`

	// Quefrency is the cepstral cutoff used to split the spectral envelope
	// from the fine structure. 0 disables the envelope split.
	Quefrency time.Duration `yaml:"quefrency" json:"quefrency"`

	// TimeStretch slows (< 1.0) or speeds (> 1.0) playback.
	// The synthesis hop is HopSize / TimeStretch.
	TimeStretch float64 `yaml:"time_stretch" json:"time_stretch"`

	// SilenceThreshold is the RMS level (on normalized samples) below which
	// an emitted segment is tagged silent.
	SilenceThreshold float64 `yaml:"silence_threshold" json:"silence_threshold"`
}

// DefaultConfig returns the shipped skull voice.
func DefaultConfig() Config {
	return Config{
		SampleRate:       24000,
		FrameSize:        1024,
		HopSize:          256,
		PitchShift:       0.76,
		Timbre:           0.9,
		Quefrency:        time.Millisecond,
		TimeStretch:      0.8,
		SilenceThreshold: 0.01,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("dsp: sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.FrameSize <= 0 {
		return fmt.Errorf("dsp: frame_size must be positive, got %d", c.FrameSize)
	}
	if c.HopSize <= 0 || c.HopSize > c.FrameSize {
		return fmt.Errorf("dsp: hop_size must be in (0, frame_size], got %d", c.HopSize)
	}
	if c.PitchShift <= 0 {
		return fmt.Errorf("dsp: pitch_shift must be positive, got %f", c.PitchShift)
	}
	if c.Timbre <= 0 {
		return fmt.Errorf("dsp: timbre must be positive, got %f", c.Timbre)
	}
	if c.TimeStretch <= 0 {
		return fmt.Errorf("dsp: time_stretch must be positive, got %f", c.TimeStretch)
	}
	if c.SilenceThreshold < 0 {
		return fmt.Errorf("dsp: silence_threshold must be non-negative, got %f", c.SilenceThreshold)
	}
	if c.SynthesisHop() <= 0 || c.SynthesisHop() > c.FrameSize {
		return fmt.Errorf("dsp: synthesis hop %d out of range for frame_size %d", c.SynthesisHop(), c.FrameSize)
	}
	return nil
}

// SynthesisHop returns the output advance per processed frame.
func (c *Config) SynthesisHop() int {
	return int(float64(c.HopSize) / c.TimeStretch)
}
