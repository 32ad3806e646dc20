// Package talk maps voice-activity transitions onto jaw commands.
package talk

// EventType identifies a coordinator input.
type EventType int

const (
	// EventSpeechStart arrives when the first playable segment of a turn
	// reaches the speaker.
	EventSpeechStart EventType = iota
	// EventPause arrives when the segmenter debounces into silence.
	EventPause
	// EventResume arrives when the segmenter debounces back into voice.
	EventResume
	// EventTurnComplete arrives when the session finishes or interrupts a
	// turn. It is enqueued only after stale audio and events are flushed.
	EventTurnComplete
)

// String returns the event name.
func (t EventType) String() string {
	switch t {
	case EventSpeechStart:
		return "speech_start"
	case EventPause:
		return "pause"
	case EventResume:
		return "resume"
	case EventTurnComplete:
		return "turn_complete"
	}
	return "unknown"
}

// Event is one coordinator input, tagged with the turn that produced it.
type Event struct {
	Type EventType

	// Turn correlates log lines across the pipeline. It plays no part in
	// the state machine.
	Turn string
}
