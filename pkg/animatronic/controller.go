// Package animatronic drives the physical skull over its command channel.
//
// The skull understands a small vocabulary of newline-terminated text
// commands. `talk start` and `talk stop` are the hot path, sent in lock-step
// with the synthesized voice; the lifecycle commands are sent once per run.
package animatronic

import (
	"context"
	"io"
)

// Command vocabulary understood by the skull firmware.
const (
	// CmdTalkStart begins jaw movement. Hot path.
	CmdTalkStart = "talk start"
	// CmdTalkStop halts jaw movement. Hot path.
	CmdTalkStop = "talk stop"

	// CmdStart wakes the skull. Sent once at startup.
	CmdStart = "start"
	// CmdStop puts the skull to rest. Sent once at shutdown.
	CmdStop = "stop"
	// CmdModeScripted switches the firmware to scripted-motion mode.
	CmdModeScripted = "mode scripted"
)

// Controller is the command channel to the physical device.
//
// SendCommand appends the newline terminator and serializes writes; the
// link is a single physical connection and commands must not interleave.
// The device never acknowledges commands, and inbound notifications are
// informational only.
type Controller interface {
	// Connect establishes the device link.
	Connect(ctx context.Context) error

	// SendCommand writes one command, newline-terminated, UTF-8 encoded.
	SendCommand(ctx context.Context, cmd string) error

	// Close releases the link.
	// After Close, the controller cannot be reused.
	io.Closer
}
