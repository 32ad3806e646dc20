// Package pipeline wires capture, the live session, the pitch/time
// processor, the silence segmenter, playback, and the talk coordinator into
// one cancellable unit.
//
// Each stage is a goroutine owning its own state; stages hand off work only
// through bounded queues. On a turn boundary the receive loop flushes both
// queues atomically before enqueueing the turn-complete event, so nothing
// stale from a finished turn can leak into the next one.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-bones/internal/queue"
	"github.com/teslashibe/go-bones/pkg/animatronic"
	"github.com/teslashibe/go-bones/pkg/audioio"
	"github.com/teslashibe/go-bones/pkg/dsp"
	"github.com/teslashibe/go-bones/pkg/session"
	"github.com/teslashibe/go-bones/pkg/talk"
	"github.com/teslashibe/go-bones/pkg/vad"
)

// pollInterval is the queue poll used by loops that must notice both
// cancellation and queue flushes.
const pollInterval = 100 * time.Millisecond

// audioItem is one receive→DSP handoff. A turnStart marker precedes the
// first chunk of each turn so the play loop can arm the speech-start event.
type audioItem struct {
	turnStart bool
	turn      string
	data      []byte
}

// Pipeline runs the talking-skull audio path.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger

	source     audioio.Source
	sink       audioio.Sink
	sess       session.Session
	controller animatronic.Controller

	processor   *dsp.Processor
	segmenter   *vad.Segmenter
	coordinator *talk.Coordinator

	audioQ *queue.Queue[audioItem]
	eventQ *queue.Queue[talk.Event]

	// micMuted gates the send path while the model is speaking. Captured
	// frames are still read (keeping the device buffer drained) but not
	// forwarded.
	micMuted atomic.Bool
}

// New assembles a pipeline. The caller retains ownership of the device,
// session, and controller lifecycles beyond Run.
func New(cfg Config, source audioio.Source, sink audioio.Sink, sess session.Session, controller animatronic.Controller, logger *slog.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	processor, err := dsp.NewProcessor(cfg.DSP)
	if err != nil {
		return nil, err
	}

	eventQ := queue.New[talk.Event](cfg.EventQueueSize)

	return &Pipeline{
		cfg:         cfg,
		logger:      logger,
		source:      source,
		sink:        sink,
		sess:        sess,
		controller:  controller,
		processor:   processor,
		segmenter:   vad.NewSegmenter(cfg.PauseThreshold, cfg.ResumeThreshold),
		coordinator: talk.NewCoordinator(controller, eventQ, logger),
		audioQ:      queue.New[audioItem](cfg.AudioQueueSize),
		eventQ:      eventQ,
	}, nil
}

// Run starts every stage and blocks until the context ends or a stage
// fails. Device and session failures cancel every stage; all started
// devices are stopped before Run returns, whichever stage failed first.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.source.Start(ctx); err != nil {
		return fmt.Errorf("pipeline: start capture: %w", err)
	}
	defer p.source.Stop()

	if err := p.sink.Start(ctx); err != nil {
		return fmt.Errorf("pipeline: start playback: %w", err)
	}
	defer p.sink.Stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.sendLoop(ctx) })
	g.Go(func() error { return p.receiveLoop(ctx) })
	g.Go(func() error { return p.playLoop(ctx) })
	g.Go(func() error { return p.coordinator.Run(ctx) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// sendLoop forwards captured frames to the session. It never blocks on the
// capture device itself; the source's own goroutine drops frames if this
// loop falls behind.
func (p *Pipeline) sendLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-p.source.Stream():
			if !ok {
				// The stream also closes on shutdown; only an unprompted
				// close is a device failure.
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("pipeline: capture device closed")
			}
			if p.micMuted.Load() {
				// Half duplex: the skull must not hear itself talk.
				continue
			}
			if err := p.sess.SendAudio(frame.Bytes()); err != nil {
				return fmt.Errorf("pipeline: send audio: %w", err)
			}
		}
	}
}

// receiveLoop consumes session events. It owns the notion of "the model is
// speaking": audio chunks open a turn, turn-complete and interruption
// events close it and flush everything queued for the finished turn.
func (p *Pipeline) receiveLoop(ctx context.Context) error {
	speaking := false
	turn := ""

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-p.sess.Events():
			if !ok {
				if err := p.sess.Err(); err != nil {
					return fmt.Errorf("pipeline: session dropped: %w", err)
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("pipeline: session closed")
			}

			switch {
			case len(ev.Audio) > 0:
				if !speaking {
					speaking = true
					turn = uuid.NewString()
					p.micMuted.Store(true)
					p.logger.Info("model started speaking", "turn", turn)
					if err := p.audioQ.Put(ctx, audioItem{turnStart: true, turn: turn}); err != nil {
						return err
					}
				}
				if err := p.audioQ.Put(ctx, audioItem{turn: turn, data: ev.Audio}); err != nil {
					return err
				}

			case ev.TurnComplete || ev.Interrupted:
				if !speaking {
					continue
				}
				speaking = false
				p.micMuted.Store(false)

				// Flush both queues before the turn-complete event goes
				// in: stale audio and stale pause/resume edges from this
				// turn must never replay into the next one.
				droppedAudio := p.audioQ.Flush()
				droppedEvents := p.eventQ.Flush()
				p.logger.Info("model finished speaking",
					"turn", turn,
					"interrupted", ev.Interrupted,
					"flushed_audio", droppedAudio,
					"flushed_events", droppedEvents,
				)

				if err := p.eventQ.Put(ctx, talk.Event{Type: talk.EventTurnComplete, Turn: turn}); err != nil {
					return err
				}
			}
		}
	}
}

// playLoop is the CPU-bound stage: it runs the pitch/time processor,
// feeds the segmenter, emits coordinator events, and writes audio to the
// speaker, strictly in production order.
func (p *Pipeline) playLoop(ctx context.Context) error {
	awaitingFirst := false
	turn := ""

	for {
		item, ok, err := p.audioQ.Get(ctx, pollInterval)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		if item.turnStart {
			awaitingFirst = true
			turn = item.turn
			continue
		}

		segments, err := p.processor.Process(item.data)
		if err != nil {
			// Malformed chunk. Drop it and keep the stream alive.
			p.logger.Warn("dropping malformed audio chunk",
				"turn", item.turn,
				"bytes", len(item.data),
			)
			continue
		}

		for _, seg := range segments {
			switch p.segmenter.Observe(seg.Silent) {
			case vad.Pause:
				if err := p.eventQ.Put(ctx, talk.Event{Type: talk.EventPause, Turn: turn}); err != nil {
					return err
				}
			case vad.Resume:
				if err := p.eventQ.Put(ctx, talk.Event{Type: talk.EventResume, Turn: turn}); err != nil {
					return err
				}
			}

			frame := audioio.Frame{
				Samples:    seg.Samples,
				SampleRate: p.cfg.DSP.SampleRate,
				Channels:   1,
			}
			if err := p.sink.Write(ctx, frame); err != nil {
				return fmt.Errorf("pipeline: playback: %w", err)
			}

			// The jaw starts only once there is audible output.
			if awaitingFirst {
				awaitingFirst = false
				if err := p.eventQ.Put(ctx, talk.Event{Type: talk.EventSpeechStart, Turn: turn}); err != nil {
					return err
				}
			}
		}
	}
}
