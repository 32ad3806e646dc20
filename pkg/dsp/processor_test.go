package dsp

import (
	"math"
	"testing"
)

// identityConfig disables every transform: neutral pitch, neutral timbre,
// no time stretch. The overlap-add path still runs in full.
func identityConfig() Config {
	cfg := DefaultConfig()
	cfg.PitchShift = 1
	cfg.Timbre = 1
	cfg.TimeStretch = 1
	return cfg
}

func sine(n int, freq float64, rate int, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return out
}

func TestIdentityRoundTrip(t *testing.T) {
	cfg := identityConfig()
	p, err := NewProcessor(cfg)
	if err != nil {
		t.Fatal(err)
	}

	input := sine(cfg.FrameSize*8, 440, cfg.SampleRate, 0.5)
	segments := p.ProcessSamples(input)
	if len(segments) == 0 {
		t.Fatal("no segments emitted")
	}

	// The first few segments ramp up while the overlap fills in; from the
	// fourth segment on every output sample has full window coverage and
	// must reproduce the input to within int16 quantization.
	hop := cfg.SynthesisHop()
	for k := 4; k < len(segments); k++ {
		seg := segments[k]
		if len(seg.Samples) != hop {
			t.Fatalf("segment %d length = %d, want %d", k, len(seg.Samples), hop)
		}
		for i, s := range seg.Samples {
			got := float64(s) / 32768.0
			want := input[k*hop+i]
			if math.Abs(got-want) > 1e-3 {
				t.Fatalf("segment %d sample %d = %f, want %f", k, i, got, want)
			}
		}
	}
}

func TestTimeStretchOutputAdvance(t *testing.T) {
	cfg := identityConfig()
	cfg.TimeStretch = 0.8
	p, err := NewProcessor(cfg)
	if err != nil {
		t.Fatal(err)
	}

	// Stretching at 0.8 emits 320 output samples per 256 consumed.
	if got := cfg.SynthesisHop(); got != 320 {
		t.Fatalf("SynthesisHop = %d, want 320", got)
	}

	input := sine(cfg.FrameSize*8, 220, cfg.SampleRate, 0.5)
	segments := p.ProcessSamples(input)

	frames := (len(input)-cfg.FrameSize)/cfg.HopSize + 1
	if len(segments) != frames {
		t.Fatalf("segments = %d, want %d", len(segments), frames)
	}

	var out int
	for _, seg := range segments {
		out += len(seg.Samples)
	}
	consumed := frames * cfg.HopSize
	ratio := float64(out) / float64(consumed)
	if math.Abs(ratio-1.25) > 1e-9 {
		t.Fatalf("output/input advance ratio = %f, want 1.25", ratio)
	}

	// Amplitude survives the stretched overlap-add. The hop no longer
	// divides the window evenly, so allow ripple around the sine's RMS.
	for k := 4; k < len(segments); k++ {
		if rms := segments[k].RMS; rms < 0.2 || rms > 0.55 {
			t.Fatalf("segment %d RMS = %f, outside [0.2, 0.55]", k, rms)
		}
	}
}

func TestSilenceTagging(t *testing.T) {
	p, err := NewProcessor(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	quiet := make([]float64, 1024*6)
	for _, seg := range p.ProcessSamples(quiet) {
		if !seg.Silent {
			t.Fatalf("zero input produced a voiced segment, RMS = %f", seg.RMS)
		}
	}

	loud := sine(1024*6, 440, 24000, 0.5)
	segments := p.ProcessSamples(loud)
	voiced := 0
	for _, seg := range segments {
		if !seg.Silent {
			voiced++
		}
	}
	// Startup segments may still be ramping; the bulk must be voiced.
	if voiced < len(segments)/2 {
		t.Fatalf("only %d of %d segments voiced for a loud sine", voiced, len(segments))
	}
}

func TestShortChunkRejectedWithoutCorruption(t *testing.T) {
	cfg := identityConfig()
	p, err := NewProcessor(cfg)
	if err != nil {
		t.Fatal(err)
	}

	for _, raw := range [][]byte{nil, {}, {0x01}, {0x01, 0x02, 0x03}} {
		if _, err := p.Process(raw); err != ErrShortChunk {
			t.Fatalf("Process(%v) error = %v, want ErrShortChunk", raw, err)
		}
	}

	// The engine keeps working after rejecting a malformed chunk.
	input := sine(cfg.FrameSize*2, 440, cfg.SampleRate, 0.5)
	raw := make([]byte, len(input)*2)
	for i, v := range input {
		s := int16(v * 32768.0)
		raw[2*i] = byte(s)
		raw[2*i+1] = byte(s >> 8)
	}
	segments, err := p.Process(raw)
	if err != nil {
		t.Fatal(err)
	}
	want := (len(input)-cfg.FrameSize)/cfg.HopSize + 1
	if len(segments) != want {
		t.Fatalf("segments = %d, want %d", len(segments), want)
	}
}

func TestProcessAccumulatesAcrossChunks(t *testing.T) {
	cfg := identityConfig()
	p, err := NewProcessor(cfg)
	if err != nil {
		t.Fatal(err)
	}

	// Feed half a frame at a time: the first chunk emits nothing, the
	// second completes a frame.
	half := make([]byte, cfg.FrameSize) // frameSize/2 samples
	segments, err := p.Process(half)
	if err != nil {
		t.Fatal(err)
	}
	if len(segments) != 0 {
		t.Fatalf("half frame emitted %d segments, want 0", len(segments))
	}

	segments, err = p.Process(half)
	if err != nil {
		t.Fatal(err)
	}
	if len(segments) != 1 {
		t.Fatalf("full frame emitted %d segments, want 1", len(segments))
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"zero frame size", func(c *Config) { c.FrameSize = 0 }},
		{"hop larger than frame", func(c *Config) { c.HopSize = c.FrameSize + 1 }},
		{"negative pitch", func(c *Config) { c.PitchShift = -0.5 }},
		{"zero timbre", func(c *Config) { c.Timbre = 0 }},
		{"zero stretch", func(c *Config) { c.TimeStretch = 0 }},
		{"negative threshold", func(c *Config) { c.SilenceThreshold = -1 }},
		{"stretch pushes hop past frame", func(c *Config) { c.TimeStretch = 0.1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("Validate accepted an invalid config")
			}
		})
	}

	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate rejected the default config: %v", err)
	}
}
