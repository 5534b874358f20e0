package engine

import (
	"errors"
	"fmt"

	"github.com/lixenwraith/gltf-audio/audio"
	"github.com/lixenwraith/gltf-audio/vmath"
)

var errInjected = errors.New("injected")

type fakeSource struct {
	buffer   audio.BufferID
	loop     bool
	gain     float64
	position vmath.Vec3F
	placed   bool
	moves    int
	plays    int
	polls    int // Playing is reported for this many polls after Play, unless looping
}

// fakeBackend records every call and fails on demand
type fakeBackend struct {
	calls []string

	buffers    map[audio.BufferID]bool
	sources    map[audio.SourceID]*fakeSource
	nextBuffer audio.BufferID
	nextSource audio.SourceID
	listeners  []audio.Listener

	playFor        int // polls a one-shot keeps playing
	failBufferAt   int // 1-based CreateBuffer call to fail, 0 never
	failSourceAt   int // 1-based CreateSource call to fail, 0 never
	failStateOf    audio.SourceID
	failGain       bool
	failPosition   bool
	createdBuffers int
	createdSources int
	closeCount     int
	deletedSources map[audio.SourceID]int
	deletedBuffers map[audio.BufferID]int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		buffers:        make(map[audio.BufferID]bool),
		sources:        make(map[audio.SourceID]*fakeSource),
		deletedSources: make(map[audio.SourceID]int),
		deletedBuffers: make(map[audio.BufferID]int),
		playFor:        2,
	}
}

func (f *fakeBackend) CreateBuffer(pcm audio.PCM) (audio.BufferID, error) {
	f.createdBuffers++
	if f.failBufferAt == f.createdBuffers {
		return 0, errInjected
	}
	f.nextBuffer++
	f.buffers[f.nextBuffer] = true
	f.calls = append(f.calls, fmt.Sprintf("buffer %d", f.nextBuffer))
	return f.nextBuffer, nil
}

func (f *fakeBackend) CreateSource(buffer audio.BufferID, loop bool, gain float64) (audio.SourceID, error) {
	f.createdSources++
	if f.failSourceAt == f.createdSources {
		return 0, errInjected
	}
	if !f.buffers[buffer] {
		return 0, audio.ErrInvalidHandle
	}
	f.nextSource++
	f.sources[f.nextSource] = &fakeSource{buffer: buffer, loop: loop, gain: gain}
	f.calls = append(f.calls, fmt.Sprintf("source %d", f.nextSource))
	return f.nextSource, nil
}

func (f *fakeBackend) SetSourceGain(id audio.SourceID, gain float64) error {
	s, ok := f.sources[id]
	if !ok {
		return audio.ErrInvalidHandle
	}
	if f.failGain {
		return errInjected
	}
	s.gain = gain
	return nil
}

func (f *fakeBackend) SetSourcePosition(id audio.SourceID, position vmath.Vec3F) error {
	s, ok := f.sources[id]
	if !ok {
		return audio.ErrInvalidHandle
	}
	if f.failPosition {
		return errInjected
	}
	s.position = position
	s.placed = true
	s.moves++
	return nil
}

func (f *fakeBackend) Play(id audio.SourceID) error {
	s, ok := f.sources[id]
	if !ok {
		return audio.ErrInvalidHandle
	}
	s.plays++
	s.polls = f.playFor
	f.calls = append(f.calls, fmt.Sprintf("play %d", id))
	return nil
}

func (f *fakeBackend) State(id audio.SourceID) (audio.SourceState, error) {
	if id == f.failStateOf {
		return audio.Stopped, errInjected
	}
	s, ok := f.sources[id]
	if !ok {
		return audio.Stopped, audio.ErrInvalidHandle
	}
	if s.plays == 0 {
		return audio.Stopped, nil
	}
	if s.loop {
		return audio.Playing, nil
	}
	if s.polls > 0 {
		s.polls--
		return audio.Playing, nil
	}
	return audio.Stopped, nil
}

func (f *fakeBackend) SetListener(l audio.Listener) error {
	f.listeners = append(f.listeners, l)
	return nil
}

func (f *fakeBackend) DeleteSource(id audio.SourceID) {
	f.deletedSources[id]++
	f.calls = append(f.calls, fmt.Sprintf("delete source %d", id))
	delete(f.sources, id)
}

func (f *fakeBackend) DeleteBuffer(id audio.BufferID) {
	f.deletedBuffers[id]++
	f.calls = append(f.calls, fmt.Sprintf("delete buffer %d", id))
	delete(f.buffers, id)
}

func (f *fakeBackend) Close() error {
	f.closeCount++
	f.calls = append(f.calls, "close")
	return nil
}

// fakeDecoder returns one second of silence per path and records requests
type fakeDecoder struct {
	paths  []string
	failOn string
}

func (d *fakeDecoder) DecodeFile(path string) (audio.PCM, error) {
	d.paths = append(d.paths, path)
	if path == d.failOn {
		return audio.PCM{}, audio.ErrUnsupportedChannels
	}
	return audio.PCM{Data: make([]byte, 2*8000), SampleRate: 8000, Channels: 1}, nil
}
