package audio

import (
	"errors"
	"fmt"

	"github.com/lixenwraith/gltf-audio/vmath"
)

// PCM is decoded interleaved signed 16-bit little-endian audio
type PCM struct {
	Data       []byte
	SampleRate int
	Channels   int // 1 or 2
}

// Frames returns the number of sample frames in the buffer
func (p *PCM) Frames() int {
	if p.Channels <= 0 {
		return 0
	}
	return len(p.Data) / (2 * p.Channels)
}

// BufferID is a backend sample buffer handle, zero is never a valid handle
type BufferID uint32

// SourceID is a backend playback source handle, zero is never a valid handle
type SourceID uint32

// SourceState is the polled playback state of a source
type SourceState int

const (
	Stopped SourceState = iota
	Playing
)

func (s SourceState) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Listener is the receiver position and orientation
type Listener struct {
	Position vmath.Vec3F
	Velocity vmath.Vec3F
	Forward  vmath.Vec3F
	Up       vmath.Vec3F
}

// DefaultListener sits at the origin looking down -Z with +Y up
func DefaultListener() Listener {
	return Listener{
		Forward: vmath.Vec3F{Z: -1},
		Up:      vmath.Vec3F{Y: 1},
	}
}

// Backend is the playback API owning buffers, sources and listener state
// Delete calls are no-ops on invalid or already deleted handles
type Backend interface {
	CreateBuffer(pcm PCM) (BufferID, error)
	CreateSource(buffer BufferID, loop bool, gain float64) (SourceID, error)
	SetSourceGain(source SourceID, gain float64) error
	SetSourcePosition(source SourceID, position vmath.Vec3F) error
	Play(source SourceID) error
	State(source SourceID) (SourceState, error)
	SetListener(l Listener) error
	DeleteSource(source SourceID)
	DeleteBuffer(buffer BufferID)
	// Close releases the context and device, safe to call more than once
	Close() error
}

// BackendType identifies a Backend implementation
type BackendType string

const (
	BackendSpeaker BackendType = "speaker"
	BackendNull    BackendType = "null"
)

// Sentinel errors
var (
	ErrInvalidHandle       = errors.New("invalid audio handle")
	ErrUnsupportedChannels = errors.New("unsupported channel count")
	ErrUnsupportedFormat   = errors.New("unsupported audio format")
	ErrBackendClosed       = errors.New("audio backend closed")
)
