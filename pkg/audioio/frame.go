package audioio

// Frame represents a fixed-duration buffer of PCM16 audio.
type Frame struct {
	// Samples contains PCM16 audio samples (little-endian).
	Samples []int16

	// SampleRate is the sample rate of this frame.
	SampleRate int

	// Channels is the number of channels in this frame.
	Channels int
}

// Bytes returns the raw little-endian bytes of the frame.
func (f *Frame) Bytes() []byte {
	buf := make([]byte, len(f.Samples)*2)
	for i, s := range f.Samples {
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	return buf
}

// FromBytes populates the frame from raw PCM16 bytes.
func (f *Frame) FromBytes(data []byte, sampleRate, channels int) {
	f.SampleRate = sampleRate
	f.Channels = channels
	f.Samples = make([]int16, len(data)/2)
	for i := range f.Samples {
		f.Samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
}

// Duration returns the duration of this frame in seconds.
func (f *Frame) Duration() float64 {
	if f.SampleRate == 0 || f.Channels == 0 {
		return 0
	}
	return float64(len(f.Samples)) / float64(f.SampleRate*f.Channels)
}
