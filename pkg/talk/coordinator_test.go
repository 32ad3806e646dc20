package talk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/teslashibe/go-bones/internal/queue"
	"github.com/teslashibe/go-bones/pkg/animatronic"
	"github.com/teslashibe/go-bones/pkg/vad"
)

func newTestCoordinator() (*Coordinator, *animatronic.MockController) {
	ctrl := animatronic.NewMockController(nil)
	q := queue.New[Event](32)
	return NewCoordinator(ctrl, q, nil), ctrl
}

func assertCommands(t *testing.T, ctrl *animatronic.MockController, want ...string) {
	t.Helper()
	got := ctrl.Commands()
	if len(got) != len(want) {
		t.Fatalf("commands = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("command %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSimpleTurn(t *testing.T) {
	c, ctrl := newTestCoordinator()
	ctx := context.Background()

	c.Handle(ctx, Event{Type: EventSpeechStart, Turn: "t1"})
	c.Handle(ctx, Event{Type: EventTurnComplete, Turn: "t1"})

	assertCommands(t, ctrl, animatronic.CmdTalkStart, animatronic.CmdTalkStop)
	if c.State() != Idle {
		t.Fatalf("state = %v, want Idle", c.State())
	}
}

func TestPauseResumeWithinTurn(t *testing.T) {
	c, ctrl := newTestCoordinator()
	ctx := context.Background()

	c.Handle(ctx, Event{Type: EventSpeechStart, Turn: "t1"})
	c.Handle(ctx, Event{Type: EventPause, Turn: "t1"})
	c.Handle(ctx, Event{Type: EventResume, Turn: "t1"})
	c.Handle(ctx, Event{Type: EventTurnComplete, Turn: "t1"})

	assertCommands(t, ctrl,
		animatronic.CmdTalkStart,
		animatronic.CmdTalkStop,
		animatronic.CmdTalkStart,
		animatronic.CmdTalkStop,
	)
}

func TestTurnCompleteWhilePausedSendsNothing(t *testing.T) {
	c, ctrl := newTestCoordinator()
	ctx := context.Background()

	c.Handle(ctx, Event{Type: EventSpeechStart, Turn: "t1"})
	c.Handle(ctx, Event{Type: EventPause, Turn: "t1"})
	c.Handle(ctx, Event{Type: EventTurnComplete, Turn: "t1"})

	// The jaw is already stopped; turn completion must not repeat the stop.
	assertCommands(t, ctrl, animatronic.CmdTalkStart, animatronic.CmdTalkStop)
	if c.State() != Idle {
		t.Fatalf("state = %v, want Idle", c.State())
	}
}

func TestEventsOutOfStateAreIgnored(t *testing.T) {
	c, ctrl := newTestCoordinator()
	ctx := context.Background()

	// Pause and Resume before any speech started.
	c.Handle(ctx, Event{Type: EventPause})
	c.Handle(ctx, Event{Type: EventResume})
	// A turn completing while idle.
	c.Handle(ctx, Event{Type: EventTurnComplete})
	assertCommands(t, ctrl)

	c.Handle(ctx, Event{Type: EventSpeechStart, Turn: "t1"})
	// Duplicate speech start and a resume while already speaking.
	c.Handle(ctx, Event{Type: EventSpeechStart, Turn: "t1"})
	c.Handle(ctx, Event{Type: EventResume, Turn: "t1"})
	assertCommands(t, ctrl, animatronic.CmdTalkStart)

	c.Handle(ctx, Event{Type: EventPause, Turn: "t1"})
	// Duplicate pause while already paused.
	c.Handle(ctx, Event{Type: EventPause, Turn: "t1"})
	assertCommands(t, ctrl, animatronic.CmdTalkStart, animatronic.CmdTalkStop)
}

func TestCommandsStrictlyAlternate(t *testing.T) {
	c, ctrl := newTestCoordinator()
	ctx := context.Background()

	// A long, messy session with redundant events mixed in.
	events := []EventType{
		EventSpeechStart, EventResume, EventPause, EventPause,
		EventResume, EventTurnComplete, EventTurnComplete,
		EventSpeechStart, EventPause, EventTurnComplete,
		EventSpeechStart, EventTurnComplete,
	}
	for _, et := range events {
		c.Handle(ctx, Event{Type: et})
	}

	cmds := ctrl.Commands()
	if len(cmds) == 0 {
		t.Fatal("no commands sent")
	}
	if cmds[0] != animatronic.CmdTalkStart {
		t.Fatalf("first command = %q, want %q", cmds[0], animatronic.CmdTalkStart)
	}
	for i := 1; i < len(cmds); i++ {
		if cmds[i] == cmds[i-1] {
			t.Fatalf("command %d repeats %q: %v", i, cmds[i], cmds)
		}
	}
}

func TestSendFailureStillAdvancesState(t *testing.T) {
	c, ctrl := newTestCoordinator()
	ctx := context.Background()

	ctrl.FailWith = errors.New("ble: write failed")
	c.Handle(ctx, Event{Type: EventSpeechStart, Turn: "t1"})

	if c.State() != Speaking {
		t.Fatalf("state = %v, want Speaking despite send failure", c.State())
	}
}

// TestDebouncedTurn drives the segmenter and the coordinator together the
// way the pipeline does: 5 voiced segments, 25 silent ones (threshold 20),
// one voiced segment, then turn completion.
func TestDebouncedTurn(t *testing.T) {
	c, ctrl := newTestCoordinator()
	seg := vad.NewSegmenter(20, 1)
	ctx := context.Background()

	c.Handle(ctx, Event{Type: EventSpeechStart, Turn: "t1"})

	feed := func(silent bool, n int) {
		for i := 0; i < n; i++ {
			switch seg.Observe(silent) {
			case vad.Pause:
				c.Handle(ctx, Event{Type: EventPause, Turn: "t1"})
			case vad.Resume:
				c.Handle(ctx, Event{Type: EventResume, Turn: "t1"})
			}
		}
	}

	feed(false, 5)
	feed(true, 25)
	feed(false, 1)
	c.Handle(ctx, Event{Type: EventTurnComplete, Turn: "t1"})

	assertCommands(t, ctrl,
		animatronic.CmdTalkStart, // first playable audio
		animatronic.CmdTalkStop,  // silent segment 21 crosses the threshold
		animatronic.CmdTalkStart, // voice returns
		animatronic.CmdTalkStop,  // turn complete
	)
}

func TestRunConsumesQueueUntilCancelled(t *testing.T) {
	ctrl := animatronic.NewMockController(nil)
	q := queue.New[Event](32)
	c := NewCoordinator(ctrl, q, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	if err := q.Put(ctx, Event{Type: EventSpeechStart, Turn: "t1"}); err != nil {
		t.Fatal(err)
	}
	if err := q.Put(ctx, Event{Type: EventTurnComplete, Turn: "t1"}); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for len(ctrl.Commands()) < 2 {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for commands, got %v", ctrl.Commands())
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v, want nil on cancellation", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	assertCommands(t, ctrl, animatronic.CmdTalkStart, animatronic.CmdTalkStop)
}
