package session

import "sync"

// Mock is an in-memory session for tests. Tests push inbound events with
// PushAudio/PushTurnComplete and inspect what the pipeline sent with Sent.
type Mock struct {
	mu     sync.Mutex
	sent   [][]byte
	turns  int
	closed bool
	err    error

	events chan Event
}

// NewMock creates a mock session.
func NewMock() *Mock {
	return &Mock{
		events: make(chan Event, 64),
	}
}

// SendAudio records an outbound frame.
func (m *Mock) SendAudio(pcm16 []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrNotConnected
	}
	buf := make([]byte, len(pcm16))
	copy(buf, pcm16)
	m.sent = append(m.sent, buf)
	return nil
}

// CompleteTurn counts an outbound turn-complete signal.
func (m *Mock) CompleteTurn() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrNotConnected
	}
	m.turns++
	return nil
}

// Events returns the inbound event stream.
func (m *Mock) Events() <-chan Event {
	return m.events
}

// Err returns the injected session error, if any.
func (m *Mock) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Close closes the event stream.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	close(m.events)
	return nil
}

// PushAudio delivers an inbound audio chunk to the pipeline.
func (m *Mock) PushAudio(pcm16 []byte) {
	m.events <- Event{Audio: pcm16}
}

// PushTurnComplete delivers an inbound turn boundary.
func (m *Mock) PushTurnComplete() {
	m.events <- Event{TurnComplete: true}
}

// PushInterrupted delivers a barge-in event.
func (m *Mock) PushInterrupted() {
	m.events <- Event{Interrupted: true}
}

// FailWith records err and ends the event stream, simulating a dropped
// session.
func (m *Mock) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
	m.Close()
}

// Sent returns every outbound frame so far.
func (m *Mock) Sent() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([][]byte, len(m.sent))
	copy(out, m.sent)
	return out
}

var _ Session = (*Mock)(nil)
