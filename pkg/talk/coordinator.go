package talk

import (
	"context"
	"log/slog"
	"time"

	"github.com/teslashibe/go-bones/internal/queue"
	"github.com/teslashibe/go-bones/pkg/animatronic"
)

// pollInterval is how long the coordinator waits on its event queue before
// re-checking for cancellation (and picking up a freshly flushed queue).
const pollInterval = 100 * time.Millisecond

// State is the coordinator's talking state. It is owned exclusively by the
// coordinator goroutine; everyone else communicates through the event queue.
type State int

const (
	// Idle means no turn is in progress. Initial and per-turn terminal.
	Idle State = iota
	// Speaking means the jaw is moving.
	Speaking
	// Paused means the voice went quiet mid-turn and the jaw is stopped.
	Paused
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Speaking:
		return "speaking"
	case Paused:
		return "paused"
	}
	return "unknown"
}

// CommandSender is the slice of the animatronic controller the coordinator
// needs.
type CommandSender interface {
	SendCommand(ctx context.Context, cmd string) error
}

// Coordinator turns segmenter transitions and session turn boundaries into
// an ordered, deduplicated stream of `talk start` / `talk stop` commands.
//
// The state machine guarantees strict command alternation within a turn:
// events that do not apply to the current state are ignored, so the device
// never sees the same command twice in a row. A turn ending while Paused
// sends nothing; the jaw is already stopped.
type Coordinator struct {
	sender CommandSender
	events *queue.Queue[Event]
	logger *slog.Logger

	state State
}

// NewCoordinator creates a coordinator reading from the given event queue.
func NewCoordinator(sender CommandSender, events *queue.Queue[Event], logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		sender: sender,
		events: events,
		logger: logger,
		state:  Idle,
	}
}

// State returns the current talking state. Only safe to call from the
// goroutine driving the coordinator (or after Run has returned).
func (c *Coordinator) State() State {
	return c.state
}

// Run consumes events until ctx ends. Returns nil on cancellation.
func (c *Coordinator) Run(ctx context.Context) error {
	for {
		ev, ok, err := c.events.Get(ctx, pollInterval)
		if err != nil {
			return nil
		}
		if !ok {
			continue
		}
		c.Handle(ctx, ev)
	}
}

// Handle applies one event to the state machine.
func (c *Coordinator) Handle(ctx context.Context, ev Event) {
	switch ev.Type {
	case EventSpeechStart:
		if c.state != Idle {
			return
		}
		c.transition(ctx, ev, Speaking, animatronic.CmdTalkStart)

	case EventPause:
		if c.state != Speaking {
			return
		}
		c.transition(ctx, ev, Paused, animatronic.CmdTalkStop)

	case EventResume:
		if c.state != Paused {
			return
		}
		c.transition(ctx, ev, Speaking, animatronic.CmdTalkStart)

	case EventTurnComplete:
		switch c.state {
		case Speaking:
			c.transition(ctx, ev, Idle, animatronic.CmdTalkStop)
		case Paused:
			// Already stopped; a second `talk stop` would be redundant.
			c.transition(ctx, ev, Idle, "")
		case Idle:
			// A turn with no playable audio. Nothing to do.
		}
	}
}

// transition moves to the next state and sends cmd if one applies.
// Transport failures are logged and do not block the transition: the
// device may reconnect mid-show, and our state must stay coherent.
func (c *Coordinator) transition(ctx context.Context, ev Event, next State, cmd string) {
	prev := c.state
	c.state = next

	c.logger.Debug("talk transition",
		"event", ev.Type.String(),
		"from", prev.String(),
		"to", next.String(),
		"turn", ev.Turn,
	)

	if cmd == "" {
		return
	}
	if err := c.sender.SendCommand(ctx, cmd); err != nil {
		c.logger.Warn("animatronic command failed",
			"cmd", cmd,
			"error", err,
			"turn", ev.Turn,
		)
	}
}
