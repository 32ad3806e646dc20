package audioio

import (
	"context"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	cfg := DefaultCaptureConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default capture config invalid: %v", err)
	}

	cfg = DefaultPlaybackConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default playback config invalid: %v", err)
	}

	cfg.SampleRate = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero sample rate accepted")
	}

	cfg = DefaultCaptureConfig()
	cfg.Channels = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero channels accepted")
	}

	cfg = DefaultCaptureConfig()
	cfg.FrameDuration = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero frame duration accepted")
	}
}

func TestConfigFrameSize(t *testing.T) {
	cfg := DefaultCaptureConfig()
	if got := cfg.FrameSize(); got != 480 {
		t.Fatalf("FrameSize at 16kHz/30ms = %d, want 480", got)
	}
	if got := cfg.FrameBytes(); got != 960 {
		t.Fatalf("FrameBytes = %d, want 960", got)
	}

	cfg = DefaultPlaybackConfig()
	if got := cfg.FrameSize(); got != 720 {
		t.Fatalf("FrameSize at 24kHz/30ms = %d, want 720", got)
	}
}

func TestFrameBytesRoundTrip(t *testing.T) {
	f := Frame{
		Samples:    []int16{0, 1, -1, 32767, -32768, 12345},
		SampleRate: 16000,
		Channels:   1,
	}

	var back Frame
	back.FromBytes(f.Bytes(), f.SampleRate, f.Channels)

	if len(back.Samples) != len(f.Samples) {
		t.Fatalf("round trip length = %d, want %d", len(back.Samples), len(f.Samples))
	}
	for i := range f.Samples {
		if back.Samples[i] != f.Samples[i] {
			t.Fatalf("sample %d = %d, want %d", i, back.Samples[i], f.Samples[i])
		}
	}
}

func TestFrameDuration(t *testing.T) {
	f := Frame{Samples: make([]int16, 480), SampleRate: 16000, Channels: 1}
	if got := f.Duration(); got != 0.03 {
		t.Fatalf("Duration = %f, want 0.03", got)
	}

	var empty Frame
	if got := empty.Duration(); got != 0 {
		t.Fatalf("Duration of zero frame = %f, want 0", got)
	}
}

func TestMockSourceGeneratesFrames(t *testing.T) {
	cfg := DefaultCaptureConfig()
	cfg.Backend = BackendMock
	cfg.FrameDuration = 5 * time.Millisecond

	src := NewMockSource(cfg, nil, WithSineWave(440, 0.5))
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := src.Start(ctx); err != nil {
		t.Fatal(err)
	}

	frame, err := src.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(frame.Samples) != cfg.FrameSize() {
		t.Fatalf("frame length = %d, want %d", len(frame.Samples), cfg.FrameSize())
	}
	if frame.SampleRate != cfg.SampleRate {
		t.Fatalf("frame rate = %d, want %d", frame.SampleRate, cfg.SampleRate)
	}

	// A sine wave frame is not all zeros.
	allZero := true
	for _, s := range frame.Samples {
		if s != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		t.Fatal("sine source produced a silent frame")
	}

	if err := src.Stop(); err != nil {
		t.Fatal(err)
	}
	stats := src.Stats()
	if stats.FramesRead == 0 {
		t.Fatal("stats recorded no frames")
	}
	if stats.Running {
		t.Fatal("stats report running after Stop")
	}
}

func TestMockSinkRetainsWrites(t *testing.T) {
	cfg := DefaultPlaybackConfig()
	cfg.Backend = BackendMock

	sink := NewMockSink(cfg, nil)
	defer sink.Close()

	ctx := context.Background()

	// Writes before Start are rejected.
	if err := sink.Write(ctx, Frame{Samples: []int16{1}}); err == nil {
		t.Fatal("write accepted before Start")
	}

	if err := sink.Start(ctx); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		f := Frame{Samples: []int16{int16(i)}, SampleRate: cfg.SampleRate, Channels: 1}
		if err := sink.Write(ctx, f); err != nil {
			t.Fatal(err)
		}
	}

	written := sink.Written()
	if len(written) != 3 {
		t.Fatalf("retained %d frames, want 3", len(written))
	}
	for i, f := range written {
		if f.Samples[0] != int16(i) {
			t.Fatalf("frame %d sample = %d, want %d", i, f.Samples[0], i)
		}
	}

	if err := sink.Clear(); err != nil {
		t.Fatal(err)
	}
	if len(sink.Written()) != 0 {
		t.Fatal("Clear left frames behind")
	}
	if stats := sink.Stats(); stats.FramesWritten != 3 {
		t.Fatalf("stats FramesWritten = %d, want 3", stats.FramesWritten)
	}
}

func TestFactorySelectsBackend(t *testing.T) {
	cfg := DefaultCaptureConfig()
	cfg.Backend = BackendMock

	src, err := NewSource(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()
	if src.Name() != "mock" {
		t.Fatalf("source backend = %q, want mock", src.Name())
	}

	sink, err := NewSink(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()
	if sink.Name() != "mock" {
		t.Fatalf("sink backend = %q, want mock", sink.Name())
	}

	cfg.Backend = "bogus"
	if _, err := NewSource(cfg, nil); err == nil {
		t.Fatal("unknown source backend accepted")
	}
	if _, err := NewSink(cfg, nil); err == nil {
		t.Fatal("unknown sink backend accepted")
	}
}
