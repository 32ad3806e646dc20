package dsp

import (
	"errors"
	"math"
)

// ErrShortChunk is returned for chunks that cannot hold PCM16 samples.
// Callers should drop the chunk and continue.
var ErrShortChunk = errors.New("dsp: malformed audio chunk")

// Segment is one synthesis hop of processed output.
type Segment struct {
	// Samples is the emitted PCM16 audio at the output sample rate.
	Samples []int16

	// RMS is the root-mean-square level of the segment on normalized
	// samples, before int16 conversion.
	RMS float64

	// Silent reports whether RMS fell below the configured threshold.
	// This is a raw per-segment tag; debounce happens downstream.
	Silent bool
}

// Processor is the stateful overlap-add engine. Raw synthesized audio goes
// in; pitch-shifted, time-stretched segments come out, each tagged with a
// per-segment silence flag.
//
// Process must be called from a single goroutine, in arrival order.
type Processor struct {
	cfg     Config
	shifter *Shifter

	synthesisHop int
	gain         float64

	// input accumulates normalized samples, consumed frameSize at a time
	// and advanced by the analysis hop.
	input []float64

	// output holds the pending overlap sum for the next frameSize samples.
	// After emitting a segment the buffer slides left by the synthesis hop
	// and the vacated tail is zeroed.
	output []float64

	shifted []float64
}

// NewProcessor builds a processor with the given configuration.
func NewProcessor(cfg Config) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	shifter := NewShifter(cfg)
	hop := cfg.SynthesisHop()

	return &Processor{
		cfg:          cfg,
		shifter:      shifter,
		synthesisHop: hop,
		gain:         shifter.WindowGain(hop),
		input:        make([]float64, 0, cfg.FrameSize*4),
		output:       make([]float64, cfg.FrameSize),
		shifted:      make([]float64, cfg.FrameSize),
	}, nil
}

// Config returns the processor configuration.
func (p *Processor) Config() Config {
	return p.cfg
}

// Process feeds raw PCM16 bytes into the engine and returns every segment
// that became complete. An empty or odd-length chunk yields ErrShortChunk;
// the engine state is untouched and the next chunk proceeds normally.
func (p *Processor) Process(raw []byte) ([]Segment, error) {
	if len(raw) < 2 || len(raw)%2 != 0 {
		return nil, ErrShortChunk
	}

	for i := 0; i+1 < len(raw); i += 2 {
		s := int16(raw[i]) | int16(raw[i+1])<<8
		p.input = append(p.input, float64(s)/32768.0)
	}

	return p.drain(), nil
}

// ProcessSamples is Process for already-normalized samples. Tests and
// offline tools use it to skip the PCM16 round trip.
func (p *Processor) ProcessSamples(samples []float64) []Segment {
	p.input = append(p.input, samples...)
	return p.drain()
}

// drain consumes full frames from the input buffer.
func (p *Processor) drain() []Segment {
	var segments []Segment

	frameSize := p.cfg.FrameSize
	for len(p.input) >= frameSize {
		p.shifter.Shift(p.input[:frameSize], p.shifted)

		for i, v := range p.shifted {
			p.output[i] += v * p.gain
		}

		segments = append(segments, p.emit())

		// Slide the output sum left and zero the vacated tail.
		copy(p.output, p.output[p.synthesisHop:])
		for i := frameSize - p.synthesisHop; i < frameSize; i++ {
			p.output[i] = 0
		}

		// The input advances by the analysis hop, not the synthesis hop.
		// The ratio of the two is exactly the time-stretch factor.
		p.input = p.input[p.cfg.HopSize:]
	}

	// Reclaim consumed capacity so the buffer does not grow without bound.
	if len(p.input) > 0 && cap(p.input) > 8*frameSize {
		compact := make([]float64, len(p.input), 2*frameSize+len(p.input))
		copy(compact, p.input)
		p.input = compact
	}

	return segments
}

// emit converts the leading synthesis hop of the output sum into a segment.
func (p *Processor) emit() Segment {
	head := p.output[:p.synthesisHop]

	var sum float64
	samples := make([]int16, len(head))
	for i, v := range head {
		sum += v * v
		samples[i] = clampInt16(v)
	}
	rms := math.Sqrt(sum / float64(len(head)))

	return Segment{
		Samples: samples,
		RMS:     rms,
		Silent:  rms < p.cfg.SilenceThreshold,
	}
}

func clampInt16(v float64) int16 {
	x := v * 32768.0
	if x > 32767 {
		return 32767
	}
	if x < -32768 {
		return -32768
	}
	return int16(x)
}
