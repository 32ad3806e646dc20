package animatronic

import (
	"context"
	"log/slog"
	"sync"
)

// MockController simulates the skull for runs without a BLE device
// (--no-ble) and for tests. It records every command it is asked to send.
type MockController struct {
	logger *slog.Logger

	mu        sync.Mutex
	connected bool
	commands  []string

	// FailWith, when set, is returned from SendCommand. Tests use it to
	// exercise the transport-error path.
	FailWith error
}

// NewMockController creates a mock controller.
func NewMockController(logger *slog.Logger) *MockController {
	if logger == nil {
		logger = slog.Default()
	}
	return &MockController{logger: logger}
}

// Connect marks the mock as connected.
func (m *MockController) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connected = true
	m.logger.Info("mock animatronic connected")
	return nil
}

// SendCommand records the command.
func (m *MockController) SendCommand(ctx context.Context, cmd string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return m.FailWith
	}

	m.commands = append(m.commands, cmd)
	m.logger.Info("mock animatronic command", "cmd", cmd)
	return nil
}

// Commands returns a copy of every command sent so far.
func (m *MockController) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.commands))
	copy(out, m.commands)
	return out
}

// Reset clears the recorded commands.
func (m *MockController) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = m.commands[:0]
}

// Close marks the mock as disconnected.
func (m *MockController) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connected = false
	return nil
}

var _ Controller = (*MockController)(nil)
