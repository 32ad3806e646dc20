package audioio

import (
	"context"
	"io"
)

// Source captures audio from a microphone or other input device.
//
// A source is an infinite, non-restartable sequence of fixed-size frames.
// The capture loop runs on its own goroutine and is never blocked by
// downstream consumers; if a consumer falls behind, frames are dropped and
// counted as overruns.
type Source interface {
	// Start begins audio capture.
	// After calling Start, frames are available via Read or Stream.
	Start(ctx context.Context) error

	// Stop halts audio capture.
	// It is safe to call Stop multiple times.
	Stop() error

	// Read reads the next frame, blocking if necessary.
	// Returns io.EOF when the source is stopped.
	Read(ctx context.Context) (Frame, error)

	// Stream returns a channel that receives frames.
	// The channel is closed when the source is stopped.
	Stream() <-chan Frame

	// Config returns the current audio configuration.
	Config() Config

	// Name returns the backend name (e.g., "portaudio", "mock").
	Name() string

	// Close releases all resources.
	// After Close, the source cannot be restarted.
	io.Closer
}

// SourceStats contains statistics about the audio source.
type SourceStats struct {
	// FramesRead is the total number of frames read from the device.
	FramesRead int64 `json:"frames_read"`

	// SamplesRead is the total number of samples read.
	SamplesRead int64 `json:"samples_read"`

	// Overruns is the number of dropped frames.
	Overruns int64 `json:"overruns"`

	// Running indicates if the source is currently capturing.
	Running bool `json:"running"`

	// Backend is the name of the audio backend.
	Backend string `json:"backend"`
}

// SourceWithStats extends Source with statistics.
type SourceWithStats interface {
	Source
	Stats() SourceStats
}
