// Package vad turns per-segment silence tags into debounced
// voice-activity transitions.
package vad

// Activity is the segmenter's view of the synthesized voice.
type Activity int

const (
	// Speaking means voiced segments are flowing.
	Speaking Activity = iota
	// Silent means the voice has paused.
	Silent
)

// String returns the activity name.
func (a Activity) String() string {
	switch a {
	case Speaking:
		return "speaking"
	case Silent:
		return "silent"
	}
	return "unknown"
}

// Transition is an edge-triggered activity change.
type Transition int

const (
	// None means the segment did not change the activity state.
	None Transition = iota
	// Pause fires once when enough consecutive silent segments arrive.
	Pause
	// Resume fires once when voiced segments return.
	Resume
)

// Segmenter debounces the raw per-segment silence tags coming out of the
// pitch/time processor. It owns the activity state; transitions are
// edge-triggered, so two Pauses can never occur without a Resume between
// them.
//
// The segmenter knows nothing about turn boundaries. Flushing stale
// transitions at a turn boundary is the coordinator's job.
type Segmenter struct {
	pauseThreshold  int // silent segments beyond which Pause fires
	resumeThreshold int // voiced segments at which Resume fires

	state     Activity
	silentRun int
	voicedRun int
}

// NewSegmenter creates a segmenter.
//
// Pause fires on the first silent segment after strictly more than
// pauseThreshold consecutive silent segments; exactly pauseThreshold silent
// segments is not yet a pause. Resume fires after resumeThreshold
// consecutive voiced segments; pass 1 to resume on the first voiced
// segment.
func NewSegmenter(pauseThreshold, resumeThreshold int) *Segmenter {
	if resumeThreshold < 1 {
		resumeThreshold = 1
	}
	return &Segmenter{
		pauseThreshold:  pauseThreshold,
		resumeThreshold: resumeThreshold,
		state:           Speaking,
	}
}

// State returns the current activity state.
func (s *Segmenter) State() Activity {
	return s.state
}

// Observe consumes one segment's silence tag and returns the transition it
// caused, if any.
func (s *Segmenter) Observe(silent bool) Transition {
	if silent {
		s.silentRun++
		s.voicedRun = 0
		if s.state == Speaking && s.silentRun > s.pauseThreshold {
			s.state = Silent
			return Pause
		}
		return None
	}

	s.voicedRun++
	s.silentRun = 0
	if s.state == Silent && s.voicedRun >= s.resumeThreshold {
		s.state = Speaking
		return Resume
	}
	return None
}

// Reset returns the segmenter to its initial state.
func (s *Segmenter) Reset() {
	s.state = Speaking
	s.silentRun = 0
	s.voicedRun = 0
}
