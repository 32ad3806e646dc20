package dsp

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Shifter transforms a single analysis frame in the frequency domain:
// pitch shift by spectral resampling, optional timbre shift via a cepstral
// envelope split. Both the analysis and synthesis Hann windows are applied
// here; overlap-add normalization is the caller's job.
type Shifter struct {
	frameSize  int
	sampleRate int
	pitch      float64
	distortion float64
	quefrency  int // cepstral cutoff in bins, 0 disables the envelope split

	fft    *fourier.FFT
	window []float64

	// Scratch buffers, reused across frames.
	windowed []float64
	spec     []complex128
	shifted  []complex128
	mags     []float64
	phases   []float64
	envelope []float64
	residual []float64
	logMags  []complex128
	cepstrum []float64
}

// NewShifter builds a shifter for the given configuration.
func NewShifter(cfg Config) *Shifter {
	n := cfg.FrameSize
	bins := n/2 + 1

	quefrency := int(cfg.Quefrency.Seconds() * float64(cfg.SampleRate))
	if quefrency > n/2 {
		quefrency = n / 2
	}

	s := &Shifter{
		frameSize:  n,
		sampleRate: cfg.SampleRate,
		pitch:      cfg.PitchShift,
		distortion: cfg.Timbre,
		quefrency:  quefrency,
		fft:        fourier.NewFFT(n),
		window:     hann(n),
		windowed:   make([]float64, n),
		spec:       make([]complex128, bins),
		shifted:    make([]complex128, bins),
		mags:       make([]float64, bins),
		phases:     make([]float64, bins),
		envelope:   make([]float64, bins),
		residual:   make([]float64, bins),
		logMags:    make([]complex128, bins),
		cepstrum:   make([]float64, n),
	}
	return s
}

// WindowGain returns the overlap-add gain that restores unity amplitude
// when frames windowed twice by Hann are summed every hop samples.
func (s *Shifter) WindowGain(hop int) float64 {
	var sum float64
	for _, w := range s.window {
		sum += w * w
	}
	if sum == 0 {
		return 1
	}
	return float64(hop) / sum
}

// Shift processes one frame of exactly frameSize samples and writes the
// transformed, doubly-windowed frame into dst (also frameSize long).
func (s *Shifter) Shift(frame, dst []float64) {
	for i, x := range frame {
		s.windowed[i] = x * s.window[i]
	}

	s.fft.Coefficients(s.spec, s.windowed)

	if s.pitch == 1 && (s.quefrency == 0 || s.distortion == 1) {
		copy(s.shifted, s.spec)
	} else {
		s.shiftSpectrum()
	}

	s.fft.Sequence(dst, s.shifted)

	// Sequence is unnormalized; fold the 1/N into the synthesis window pass.
	scale := 1.0 / float64(s.frameSize)
	for i := range dst {
		dst[i] *= s.window[i] * scale
	}
}

// shiftSpectrum fills s.shifted from s.spec.
func (s *Shifter) shiftSpectrum() {
	bins := len(s.spec)

	for k, c := range s.spec {
		s.mags[k] = cmplx.Abs(c)
		s.phases[k] = cmplx.Phase(c)
	}

	if s.quefrency > 0 {
		s.liftEnvelope()
		for k := range s.mags {
			if s.envelope[k] > 1e-12 {
				s.residual[k] = s.mags[k] / s.envelope[k]
			} else {
				s.residual[k] = 0
			}
		}
	} else {
		copy(s.residual, s.mags)
		for k := range s.envelope {
			s.envelope[k] = 1
		}
	}

	// Resample the fine structure by the pitch factor. Phases scale with
	// frequency so shifted partials keep their alignment within the frame.
	for k := range s.shifted {
		s.shifted[k] = 0
	}
	for k := 0; k < bins; k++ {
		j := int(float64(k)*s.pitch + 0.5)
		if j < 0 || j >= bins {
			continue
		}
		env := 1.0
		if s.quefrency > 0 {
			src := int(float64(j)/s.distortion + 0.5)
			if src >= bins {
				src = bins - 1
			}
			env = s.envelope[src]
		}
		mag := s.residual[k] * env
		phase := s.phases[k] * s.pitch
		s.shifted[j] += cmplx.Rect(mag, phase)
	}
}

// liftEnvelope computes the spectral envelope by low-pass liftering the
// real cepstrum at the configured quefrency cutoff.
func (s *Shifter) liftEnvelope() {
	n := s.frameSize

	for k, m := range s.mags {
		s.logMags[k] = complex(math.Log(m+1e-12), 0)
	}

	s.fft.Sequence(s.cepstrum, s.logMags)
	scale := 1.0 / float64(n)
	for i := range s.cepstrum {
		s.cepstrum[i] *= scale
	}

	// The cepstrum of a real spectrum is symmetric; keep both ends.
	for i := s.quefrency; i <= n-s.quefrency; i++ {
		s.cepstrum[i] = 0
	}

	s.fft.Coefficients(s.logMags, s.cepstrum)
	for k := range s.envelope {
		s.envelope[k] = math.Exp(real(s.logMags[k]))
	}
}

// hann returns a periodic Hann window of length n.
func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}
