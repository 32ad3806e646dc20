package session

// Session is the remote speech session as the pipeline sees it: audio
// frames go out, audio chunks and turn boundaries come back.
type Session interface {
	// SendAudio forwards one captured PCM16 frame.
	SendAudio(pcm16 []byte) error

	// CompleteTurn signals the end of the user's turn.
	CompleteTurn() error

	// Events returns the inbound event stream, closed when the session
	// ends.
	Events() <-chan Event

	// Err returns the error that ended the session, if any.
	Err() error

	// Close shuts the session down.
	Close() error
}

var _ Session = (*Client)(nil)
