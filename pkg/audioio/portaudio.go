package audioio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
)

// PortAudioSource captures audio from the default input device.
// This is the production implementation; it wraps the blocking PortAudio
// read API and surfaces frames on a channel so the capture loop is never
// stalled by downstream consumers.
type PortAudioSource struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	closed   bool
	stream   *portaudio.Stream
	buf      []int16
	streamCh chan Frame
	stopCh   chan struct{}

	// Stats
	framesRead  atomic.Int64
	samplesRead atomic.Int64
	overruns    atomic.Int64
}

// newPortAudioSource creates a PortAudio-backed source.
func newPortAudioSource(cfg Config, logger *slog.Logger) (*PortAudioSource, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audioio: portaudio init: %w", err)
	}

	s := &PortAudioSource{
		cfg:      cfg,
		logger:   logger,
		buf:      make([]int16, cfg.FrameSize()*cfg.Channels),
		streamCh: make(chan Frame, 10),
		stopCh:   make(chan struct{}),
	}

	logger.Info("portaudio source created",
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
		"frame_size", cfg.FrameSize(),
	)

	return s, nil
}

// Start opens the default input stream and begins capture.
func (s *PortAudioSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}

	stream, err := portaudio.OpenDefaultStream(
		s.cfg.Channels, 0,
		float64(s.cfg.SampleRate),
		len(s.buf),
		&s.buf,
	)
	if err != nil {
		return fmt.Errorf("audioio: open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("audioio: start input stream: %w", err)
	}

	s.stream = stream
	s.running = true
	s.stopCh = make(chan struct{})
	s.streamCh = make(chan Frame, 10)

	go s.captureLoop(ctx, stream, s.streamCh, s.stopCh)

	return nil
}

// captureLoop owns streamCh: it is the only sender and closes it on exit.
// Stopping tears the device stream down mid-read, which surfaces here as a
// read error with stopCh already closed.
func (s *PortAudioSource) captureLoop(ctx context.Context, stream *portaudio.Stream, streamCh chan Frame, stopCh <-chan struct{}) {
	defer close(streamCh)

	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return
		case <-stopCh:
			return
		default:
		}

		if err := stream.Read(); err != nil {
			// InputOverflowed means the device dropped samples while we
			// were busy; keep going with what we got.
			if err != portaudio.InputOverflowed {
				select {
				case <-stopCh:
				default:
					s.logger.Error("portaudio read failed", "error", err)
					s.Stop()
				}
				return
			}
			s.overruns.Add(1)
		}

		samples := make([]int16, len(s.buf))
		copy(samples, s.buf)

		frame := Frame{
			Samples:    samples,
			SampleRate: s.cfg.SampleRate,
			Channels:   s.cfg.Channels,
		}

		select {
		case streamCh <- frame:
			s.framesRead.Add(1)
			s.samplesRead.Add(int64(len(frame.Samples)))
		default:
			s.overruns.Add(1)
		}
	}
}

// Stop halts capture and closes the device stream.
func (s *PortAudioSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.running = false
	close(s.stopCh)

	if s.stream != nil {
		s.stream.Stop()
		s.stream.Close()
		s.stream = nil
	}

	return nil
}

// Read reads the next frame.
func (s *PortAudioSource) Read(ctx context.Context) (Frame, error) {
	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case frame, ok := <-s.streamCh:
		if !ok {
			return Frame{}, io.EOF
		}
		return frame, nil
	}
}

// Stream returns the frame channel.
func (s *PortAudioSource) Stream() <-chan Frame {
	return s.streamCh
}

// Config returns the audio configuration.
func (s *PortAudioSource) Config() Config {
	return s.cfg
}

// Name returns "portaudio".
func (s *PortAudioSource) Name() string {
	return "portaudio"
}

// Close releases the device and the PortAudio handle.
func (s *PortAudioSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.Stop()
	return portaudio.Terminate()
}

// Stats returns source statistics.
func (s *PortAudioSource) Stats() SourceStats {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	return SourceStats{
		FramesRead:  s.framesRead.Load(),
		SamplesRead: s.samplesRead.Load(),
		Overruns:    s.overruns.Load(),
		Running:     running,
		Backend:     "portaudio",
	}
}

var _ SourceWithStats = (*PortAudioSource)(nil)

// PortAudioSink plays audio on the default output device.
// Incoming frames may be any length; the sink repacks them into
// device-sized buffers and writes the remainder on Flush.
type PortAudioSink struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	closed  bool
	stream  *portaudio.Stream
	buf     []int16
	pending []int16

	// Stats
	framesWritten  atomic.Int64
	samplesWritten atomic.Int64
}

// newPortAudioSink creates a PortAudio-backed sink.
func newPortAudioSink(cfg Config, logger *slog.Logger) (*PortAudioSink, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audioio: portaudio init: %w", err)
	}

	s := &PortAudioSink{
		cfg:    cfg,
		logger: logger,
		buf:    make([]int16, cfg.FrameSize()*cfg.Channels),
	}

	logger.Info("portaudio sink created",
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
		"frame_size", cfg.FrameSize(),
	)

	return s, nil
}

// Start opens the default output stream.
func (s *PortAudioSink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}

	stream, err := portaudio.OpenDefaultStream(
		0, s.cfg.Channels,
		float64(s.cfg.SampleRate),
		len(s.buf),
		&s.buf,
	)
	if err != nil {
		return fmt.Errorf("audioio: open output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("audioio: start output stream: %w", err)
	}

	s.stream = stream
	s.running = true

	return nil
}

// Stop halts playback and closes the device stream.
func (s *PortAudioSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.running = false
	if s.stream != nil {
		s.stream.Stop()
		s.stream.Close()
		s.stream = nil
	}
	s.pending = nil

	return nil
}

// Write queues a frame and plays out every complete device buffer.
// Blocks while the device drains; this is the intended pacing mechanism.
func (s *PortAudioSink) Write(ctx context.Context, frame Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.running {
		return io.ErrClosedPipe
	}

	s.pending = append(s.pending, frame.Samples...)

	for len(s.pending) >= len(s.buf) {
		if err := ctx.Err(); err != nil {
			return err
		}
		copy(s.buf, s.pending[:len(s.buf)])
		s.pending = s.pending[len(s.buf):]
		if err := s.writeBuffer(); err != nil {
			return err
		}
	}

	s.framesWritten.Add(1)
	s.samplesWritten.Add(int64(len(frame.Samples)))

	return nil
}

// Flush pads the remainder with silence and plays it out.
func (s *PortAudioSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || len(s.pending) == 0 {
		return nil
	}

	copy(s.buf, s.pending)
	for i := len(s.pending); i < len(s.buf); i++ {
		s.buf[i] = 0
	}
	s.pending = s.pending[:0]

	return s.writeBuffer()
}

// Clear discards buffered audio that has not reached the device yet.
func (s *PortAudioSink) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = s.pending[:0]
	return nil
}

// writeBuffer writes the staged device buffer. Callers hold s.mu.
func (s *PortAudioSink) writeBuffer() error {
	if err := s.stream.Write(); err != nil {
		// An underflow is an audible glitch, not a failure.
		if err == portaudio.OutputUnderflowed {
			s.logger.Debug("portaudio output underflow")
			return nil
		}
		return fmt.Errorf("audioio: write output stream: %w", err)
	}
	return nil
}

// Config returns the audio configuration.
func (s *PortAudioSink) Config() Config {
	return s.cfg
}

// Name returns "portaudio".
func (s *PortAudioSink) Name() string {
	return "portaudio"
}

// Close releases the device and the PortAudio handle.
func (s *PortAudioSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.Stop()
	return portaudio.Terminate()
}

// Stats returns sink statistics.
func (s *PortAudioSink) Stats() SinkStats {
	s.mu.Lock()
	running := s.running
	buffered := int64(len(s.pending))
	s.mu.Unlock()

	return SinkStats{
		FramesWritten:   s.framesWritten.Load(),
		SamplesWritten:  s.samplesWritten.Load(),
		Running:         running,
		Backend:         "portaudio",
		BufferedSamples: buffered,
	}
}

var _ SinkWithStats = (*PortAudioSink)(nil)
