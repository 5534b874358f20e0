package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/lixenwraith/gltf-audio/vmath"
)

type nullBuffer struct {
	duration time.Duration
}

type nullSource struct {
	buffer   nullBuffer
	loop     bool
	gain     float64
	position vmath.Vec3F
	started  time.Time
	playing  bool
}

// NullBackend tracks playback state against a clock without producing sound
type NullBackend struct {
	mu    sync.Mutex
	clock Clock

	buffers    map[BufferID]nullBuffer
	sources    map[SourceID]*nullSource
	nextBuffer uint32
	nextSource uint32

	listener Listener
	closed   bool
}

// NewNullBackend creates a headless backend, nil clock means SystemClock
func NewNullBackend(clock Clock) *NullBackend {
	if clock == nil {
		clock = SystemClock{}
	}
	return &NullBackend{
		clock:    clock,
		buffers:  make(map[BufferID]nullBuffer),
		sources:  make(map[SourceID]*nullSource),
		listener: DefaultListener(),
	}
}

// CreateBuffer records the playback length of pcm
func (n *NullBackend) CreateBuffer(pcm PCM) (BufferID, error) {
	if pcm.Channels != 1 && pcm.Channels != 2 {
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedChannels, pcm.Channels)
	}
	if pcm.SampleRate <= 0 {
		return 0, fmt.Errorf("%w: sample rate %d", ErrUnsupportedFormat, pcm.SampleRate)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return 0, ErrBackendClosed
	}
	n.nextBuffer++
	id := BufferID(n.nextBuffer)
	n.buffers[id] = nullBuffer{
		duration: time.Duration(pcm.Frames()) * time.Second / time.Duration(pcm.SampleRate),
	}
	return id, nil
}

func (n *NullBackend) CreateSource(buffer BufferID, loop bool, gain float64) (SourceID, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return 0, ErrBackendClosed
	}
	buf, ok := n.buffers[buffer]
	if !ok {
		return 0, fmt.Errorf("%w: buffer %d", ErrInvalidHandle, buffer)
	}
	n.nextSource++
	id := SourceID(n.nextSource)
	n.sources[id] = &nullSource{buffer: buf, loop: loop, gain: gain}
	return id, nil
}

func (n *NullBackend) source(id SourceID) (*nullSource, error) {
	if n.closed {
		return nil, ErrBackendClosed
	}
	src, ok := n.sources[id]
	if !ok {
		return nil, fmt.Errorf("%w: source %d", ErrInvalidHandle, id)
	}
	return src, nil
}

func (n *NullBackend) SetSourceGain(id SourceID, gain float64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	src, err := n.source(id)
	if err != nil {
		return err
	}
	src.gain = gain
	return nil
}

func (n *NullBackend) SetSourcePosition(id SourceID, position vmath.Vec3F) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	src, err := n.source(id)
	if err != nil {
		return err
	}
	src.position = position
	return nil
}

// Play restarts the source at the current clock time
func (n *NullBackend) Play(id SourceID) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	src, err := n.source(id)
	if err != nil {
		return err
	}
	src.started = n.clock.Now()
	src.playing = true
	return nil
}

// State is playing while looping or until the buffer duration has elapsed
func (n *NullBackend) State(id SourceID) (SourceState, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	src, err := n.source(id)
	if err != nil {
		return Stopped, err
	}
	if !src.playing {
		return Stopped, nil
	}
	if src.loop && src.buffer.duration > 0 {
		return Playing, nil
	}
	if n.clock.Now().Sub(src.started) < src.buffer.duration {
		return Playing, nil
	}
	src.playing = false
	return Stopped, nil
}

func (n *NullBackend) SetListener(l Listener) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ErrBackendClosed
	}
	n.listener = l
	return nil
}

// Gain returns the last gain pushed to a source
func (n *NullBackend) Gain(id SourceID) (float64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	src, err := n.source(id)
	if err != nil {
		return 0, err
	}
	return src.gain, nil
}

// Position returns the last position pushed to a source
func (n *NullBackend) Position(id SourceID) (vmath.Vec3F, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	src, err := n.source(id)
	if err != nil {
		return vmath.Vec3F{}, err
	}
	return src.position, nil
}

// Listener returns the current listener
func (n *NullBackend) Listener() Listener {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.listener
}

func (n *NullBackend) DeleteSource(id SourceID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.sources, id)
}

func (n *NullBackend) DeleteBuffer(id BufferID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.buffers, id)
}

// Close drops all handles, safe to call more than once
func (n *NullBackend) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil
	}
	n.closed = true
	clear(n.sources)
	clear(n.buffers)
	return nil
}

// Live returns the number of sources and buffers not yet deleted
func (n *NullBackend) Live() (sources, buffers int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sources), len(n.buffers)
}
