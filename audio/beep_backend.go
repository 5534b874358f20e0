package audio

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"

	"github.com/lixenwraith/gltf-audio/vmath"
)

// Output is the device end of the beep graph
// Lock/Unlock guard streamer mutation against the device callback
type Output interface {
	Init(rate beep.SampleRate, bufferSize int) error
	Play(s beep.Streamer)
	Lock()
	Unlock()
	Close()
}

// speakerOutput drives the process-wide beep speaker
type speakerOutput struct{}

func (speakerOutput) Init(rate beep.SampleRate, bufferSize int) error {
	return speaker.Init(rate, bufferSize)
}

func (speakerOutput) Play(s beep.Streamer) { speaker.Play(s) }
func (speakerOutput) Lock()                { speaker.Lock() }
func (speakerOutput) Unlock()              { speaker.Unlock() }

func (speakerOutput) Close() {
	speaker.Clear()
	speaker.Close()
}

// beepSource is one playback voice bound to a buffer
type beepSource struct {
	buffer   *beep.Buffer
	loop     bool
	gain     float64
	position vmath.Vec3F
	placed   bool

	ctrl    *beep.Ctrl
	volume  *effects.Volume
	pan     *effects.Pan
	playing atomic.Bool
}

// BeepBackend renders sources through a beep mixer
// Gain is applied as a volume stage, position as stereo pan relative to the listener
type BeepBackend struct {
	mu     sync.Mutex
	out    Output
	config *AudioConfig
	mixer  *beep.Mixer

	buffers    map[BufferID]*beep.Buffer
	sources    map[SourceID]*beepSource
	nextBuffer uint32
	nextSource uint32

	listener Listener
	closed   bool
}

// NewSpeakerBackend opens the default audio device
func NewSpeakerBackend(cfg *AudioConfig) (*BeepBackend, error) {
	return NewBeepBackend(cfg, speakerOutput{})
}

// NewBeepBackend initializes out at the configured rate and starts the mixer on it
func NewBeepBackend(cfg *AudioConfig, out Output) (*BeepBackend, error) {
	if cfg == nil {
		cfg = DefaultAudioConfig()
	}
	if err := out.Init(cfg.Rate(), cfg.BufferSize()); err != nil {
		return nil, fmt.Errorf("init audio output: %w", err)
	}

	b := &BeepBackend{
		out:      out,
		config:   cfg,
		mixer:    &beep.Mixer{},
		buffers:  make(map[BufferID]*beep.Buffer),
		sources:  make(map[SourceID]*beepSource),
		listener: DefaultListener(),
	}
	out.Play(b.mixer)
	return b, nil
}

// CreateBuffer copies pcm into a beep buffer
func (b *BeepBackend) CreateBuffer(pcm PCM) (BufferID, error) {
	if pcm.Channels != 1 && pcm.Channels != 2 {
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedChannels, pcm.Channels)
	}
	if pcm.SampleRate <= 0 {
		return 0, fmt.Errorf("%w: sample rate %d", ErrUnsupportedFormat, pcm.SampleRate)
	}

	format := beep.Format{
		SampleRate:  beep.SampleRate(pcm.SampleRate),
		NumChannels: pcm.Channels,
		Precision:   2,
	}
	buf := beep.NewBuffer(format)
	buf.Append(&pcmStreamer{format: format, data: pcm.Data})

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, ErrBackendClosed
	}
	b.nextBuffer++
	id := BufferID(b.nextBuffer)
	b.buffers[id] = buf
	return id, nil
}

// CreateSource binds a new stopped source to buffer
func (b *BeepBackend) CreateSource(buffer BufferID, loop bool, gain float64) (SourceID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, ErrBackendClosed
	}
	buf, ok := b.buffers[buffer]
	if !ok {
		return 0, fmt.Errorf("%w: buffer %d", ErrInvalidHandle, buffer)
	}
	b.nextSource++
	id := SourceID(b.nextSource)
	b.sources[id] = &beepSource{buffer: buf, loop: loop, gain: gain}
	return id, nil
}

func (b *BeepBackend) source(id SourceID) (*beepSource, error) {
	if b.closed {
		return nil, ErrBackendClosed
	}
	src, ok := b.sources[id]
	if !ok {
		return nil, fmt.Errorf("%w: source %d", ErrInvalidHandle, id)
	}
	return src, nil
}

// SetSourceGain updates the volume stage, live if the source is playing
func (b *BeepBackend) SetSourceGain(id SourceID, gain float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	src, err := b.source(id)
	if err != nil {
		return err
	}
	src.gain = gain
	if src.volume != nil {
		b.out.Lock()
		b.applyGain(src)
		b.out.Unlock()
	}
	return nil
}

// SetSourcePosition updates the pan stage from the listener's point of view
func (b *BeepBackend) SetSourcePosition(id SourceID, position vmath.Vec3F) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	src, err := b.source(id)
	if err != nil {
		return err
	}
	src.position = position
	src.placed = true
	if src.pan != nil {
		b.out.Lock()
		src.pan.Pan = b.panFor(src)
		b.out.Unlock()
	}
	return nil
}

// Play starts the source from the beginning, restarting it if already playing
func (b *BeepBackend) Play(id SourceID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	src, err := b.source(id)
	if err != nil {
		return err
	}

	var s beep.Streamer = src.buffer.Streamer(0, src.buffer.Len())
	if src.loop && src.buffer.Len() > 0 {
		s = beep.Loop(-1, src.buffer.Streamer(0, src.buffer.Len()))
	}
	if rate := src.buffer.Format().SampleRate; rate != b.config.Rate() {
		s = beep.Resample(b.config.ResampleQuality, rate, b.config.Rate(), s)
	}

	vol := &effects.Volume{Streamer: s, Base: 2}
	pan := &effects.Pan{Streamer: vol}
	ctrl := &beep.Ctrl{Streamer: beep.Seq(pan, beep.Callback(func() {
		src.playing.Store(false)
	}))}

	b.out.Lock()
	if src.ctrl != nil {
		src.ctrl.Streamer = nil
	}
	src.ctrl, src.volume, src.pan = ctrl, vol, pan
	b.applyGain(src)
	pan.Pan = b.panFor(src)
	src.playing.Store(true)
	b.mixer.Add(ctrl)
	b.out.Unlock()
	return nil
}

// State reports playing until the stream has drained
func (b *BeepBackend) State(id SourceID) (SourceState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	src, err := b.source(id)
	if err != nil {
		return Stopped, err
	}
	if src.playing.Load() {
		return Playing, nil
	}
	return Stopped, nil
}

// SetListener stores the listener and re-pans every playing source
func (b *BeepBackend) SetListener(l Listener) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBackendClosed
	}
	b.listener = l

	b.out.Lock()
	for _, src := range b.sources {
		if src.pan != nil {
			src.pan.Pan = b.panFor(src)
		}
	}
	b.out.Unlock()
	return nil
}

// DeleteSource stops and forgets the source
func (b *BeepBackend) DeleteSource(id SourceID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	src, ok := b.sources[id]
	if !ok {
		return
	}
	b.stop(src)
	delete(b.sources, id)
}

// DeleteBuffer forgets the buffer, sources already bound keep their reference
func (b *BeepBackend) DeleteBuffer(id BufferID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.buffers, id)
}

// Close silences the mixer and releases the output, safe to call more than once
func (b *BeepBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	for id, src := range b.sources {
		b.stop(src)
		delete(b.sources, id)
	}
	clear(b.buffers)

	b.out.Lock()
	b.mixer.Clear()
	b.out.Unlock()
	b.out.Close()
	return nil
}

func (b *BeepBackend) stop(src *beepSource) {
	if src.ctrl == nil {
		return
	}
	b.out.Lock()
	src.ctrl.Streamer = nil
	b.out.Unlock()
	src.playing.Store(false)
}

// applyGain must be called with the output locked
func (b *BeepBackend) applyGain(src *beepSource) {
	g := src.gain * b.config.MasterVolume
	if g <= 0 {
		src.volume.Silent = true
		src.volume.Volume = 0
		return
	}
	src.volume.Silent = false
	src.volume.Volume = math.Log2(g)
}

// panFor projects the listener to source direction onto the listener's right axis
func (b *BeepBackend) panFor(src *beepSource) float64 {
	if !src.placed {
		return 0
	}
	dir := vmath.V3FNormalize(vmath.V3FSub(src.position, b.listener.Position))
	right := vmath.V3FNormalize(vmath.V3FCross(b.listener.Forward, b.listener.Up))
	return math.Max(-1, math.Min(1, vmath.V3FDot(dir, right)))
}

// pcmStreamer feeds interleaved 16-bit bytes into a beep.Buffer
type pcmStreamer struct {
	format beep.Format
	data   []byte
	pos    int
}

func (p *pcmStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	width := p.format.Width()
	for n < len(samples) && p.pos+width <= len(p.data) {
		samples[n], _ = p.format.DecodeSigned(p.data[p.pos:])
		p.pos += width
		n++
	}
	return n, n > 0
}

func (p *pcmStreamer) Err() error { return nil }
