package session

import (
	"errors"
	"time"
)

// Defaults for the live speech session.
const (
	// DefaultModel is the Gemini Live model the skull ships with.
	DefaultModel = "gemini-live-2.5-flash-preview"

	// DefaultVoice is the prebuilt voice the pitch shifter is tuned for.
	DefaultVoice = "Charon"

	// DefaultSystemPrompt is the skull's persona, sent as the opening turn.
	DefaultSystemPrompt = "You are a spooky animatronic skull named Indiana Bones. " +
		"Add menacing laughs -- 'HaHaHa' -- after your responses."
)

// Config holds the live session parameters.
type Config struct {
	// APIKey authenticates against the Gemini Live API.
	APIKey string `yaml:"-" json:"-"`

	// Model is the live model ID.
	Model string `yaml:"model" json:"model"`

	// Voice selects the prebuilt voice.
	Voice string `yaml:"voice" json:"voice"`

	// Language is the BCP-47 speech language code.
	Language string `yaml:"language" json:"language"`

	// SystemPrompt is sent as the first user turn once the session is up.
	SystemPrompt string `yaml:"system_prompt" json:"system_prompt"`

	// InputSampleRate is the rate of outbound microphone audio in Hz.
	InputSampleRate int `yaml:"input_sample_rate" json:"input_sample_rate"`

	// OutputSampleRate is the fixed rate of inbound synthesized audio.
	OutputSampleRate int `yaml:"output_sample_rate" json:"output_sample_rate"`

	// HandshakeTimeout bounds the websocket dial.
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" json:"handshake_timeout"`
}

// DefaultConfig returns the shipped session configuration.
func DefaultConfig() Config {
	return Config{
		Model:            DefaultModel,
		Voice:            DefaultVoice,
		Language:         "en-US",
		SystemPrompt:     DefaultSystemPrompt,
		InputSampleRate:  16000,
		OutputSampleRate: 24000,
		HandshakeTimeout: 10 * time.Second,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("session: API key required")
	}
	if c.Model == "" {
		return errors.New("session: model required")
	}
	if c.InputSampleRate <= 0 || c.OutputSampleRate <= 0 {
		return errors.New("session: sample rates must be positive")
	}
	return nil
}
