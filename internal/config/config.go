// Package config provides configuration helpers for go-bones commands.
package config

import (
	"fmt"
	"os"
)

// Default device configuration.
const (
	DefaultDeviceName = "IndianaBones"
)

// GeminiAPIKey returns the Gemini API key from GEMINI_API_KEY.
// Exits with a usage message if not set.
func GeminiAPIKey() string {
	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY environment variable is required")
		fmt.Fprintln(os.Stderr, "Usage: GEMINI_API_KEY=... go run ./cmd/bones")
		os.Exit(1)
	}
	return key
}

// DeviceName returns the animatronic BLE device name from BONES_DEVICE_NAME.
// Falls back to the default if not set.
func DeviceName() string {
	if name := os.Getenv("BONES_DEVICE_NAME"); name != "" {
		return name
	}
	return DefaultDeviceName
}
