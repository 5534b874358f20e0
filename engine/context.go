// Package engine owns the audio context of one loaded scene: it binds emitter
// instances to backend sources and drives them with a per-tick update loop.
package engine

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/lixenwraith/gltf-audio/audio"
	"github.com/lixenwraith/gltf-audio/scene"
	"github.com/lixenwraith/gltf-audio/spatial"
	"github.com/lixenwraith/gltf-audio/status"
	"github.com/lixenwraith/gltf-audio/vmath"
)

// SampleDecoder turns an audio file into PCM
type SampleDecoder interface {
	DecodeFile(path string) (audio.PCM, error)
}

// Options configures Load
type Options struct {
	// Backend is owned by the Context from Load onward and closed by Close, required
	Backend audio.Backend
	// Decoder defaults to audio.Decoder{}
	Decoder SampleDecoder
	// Logger defaults to discard
	Logger *slog.Logger
	// Registry receives tick metrics, a private one is created when nil
	Registry *status.Registry
	// Extension overrides scene.DefaultExtension
	Extension string
	// Listener overrides audio.DefaultListener
	Listener *audio.Listener
	// MaxTicks stops Run after that many ticks, zero is unbounded
	MaxTicks int
}

// Instance is a live emitter binding with its backend source
type Instance struct {
	Binding
	Source audio.SourceID

	// Last evaluation, zero for non-positional instances until they are evaluated
	Attenuation spatial.Attenuation
	Position    vmath.Vec3F
	State       audio.SourceState

	gainMetric  *status.AtomicFloat
	stateMetric *status.AtomicString
}

// Context is the single owner of all backend resources for one scene
// It is not safe for concurrent use; hosts call Tick and SetListener from one goroutine
type Context struct {
	// ===== Immutable After Load =====

	backend  audio.Backend
	logger   *slog.Logger
	registry *status.Registry
	maxTicks int

	doc      *scene.Document
	emitters []spatial.Emitter
	roots    []int

	// ===== Loop Owned =====

	graph     *scene.Graph
	buffers   []audio.BufferID
	instances []Instance
	listener  audio.Listener
	state     State
	err       error
	ticks     int64
	closed    bool

	// ===== Cached Metrics =====

	tickMetric   *atomic.Int64
	activeMetric *atomic.Int64
	stateMetric  *status.AtomicString
	posMetric    *status.AtomicString
}

// Load reads the scene document at path and binds it, sources resolve relative to its directory
func Load(path string, opts Options) (*Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if opts.Backend != nil {
			_ = opts.Backend.Close()
		}
		return nil, fmt.Errorf("read scene %q: %w", path, err)
	}
	return LoadBytes(data, filepath.Dir(path), opts)
}

// LoadBytes decodes a document, creates one buffer per source and one source per instance,
// then starts every instance whose emitter is marked playing
// Any failure releases everything created so far, including the backend
func LoadBytes(data []byte, baseDir string, opts Options) (*Context, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("%w: no backend", ErrResourceCreation)
	}
	c := newContext(opts)

	if err := c.bind(data, baseDir, opts); err != nil {
		c.logger.Error("load failed", "error", err)
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func newContext(opts Options) *Context {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	registry := opts.Registry
	if registry == nil {
		registry = status.NewRegistry()
	}
	listener := audio.DefaultListener()
	if opts.Listener != nil {
		listener = *opts.Listener
	}

	c := &Context{
		backend:  opts.Backend,
		logger:   logger,
		registry: registry,
		maxTicks: opts.MaxTicks,
		listener: listener,
		state:    Active,

		tickMetric:   registry.Ints.Get(status.KeyTicks),
		activeMetric: registry.Ints.Get(status.KeyActive),
		stateMetric:  registry.Strings.Get(status.KeyState),
		posMetric:    registry.Strings.Get(status.KeyListenerPos),
	}
	c.stateMetric.Set(Active.String())
	return c
}

func (c *Context) bind(data []byte, baseDir string, opts Options) error {
	doc, err := scene.Decode(data, opts.Extension)
	if err != nil {
		return err
	}
	c.doc = doc

	// Catalog and bindings are validated before any backend allocation
	if c.emitters, err = spatial.BuildCatalog(doc.Emitters, len(doc.Sources)); err != nil {
		return err
	}
	bindings, err := Bindings(doc)
	if err != nil {
		return err
	}

	decoder := opts.Decoder
	if decoder == nil {
		decoder = audio.Decoder{}
	}
	for i, src := range doc.Sources {
		path, err := resolveURI(baseDir, src.URI)
		if err != nil {
			return fmt.Errorf("%w: audioSources[%d].uri: %v", ErrMalformedScene, i, err)
		}
		pcm, err := decoder.DecodeFile(path)
		if err != nil {
			return fmt.Errorf("%w: audioSources[%d]: %v", ErrResourceCreation, i, err)
		}
		buf, err := c.backend.CreateBuffer(pcm)
		if err != nil {
			return fmt.Errorf("%w: buffer for audioSources[%d]: %v", ErrResourceCreation, i, err)
		}
		c.buffers = append(c.buffers, buf)
		c.logger.Debug("source created", "uri", src.URI, "rate", pcm.SampleRate, "channels", pcm.Channels, "frames", pcm.Frames())
	}
	c.registry.Ints.Get(status.KeyBuffers).Store(int64(len(c.buffers)))

	c.graph = scene.NewGraph(doc.Nodes)
	if active := doc.ActiveScene(); active != nil {
		c.roots = active.Nodes
		c.graph.Propagate(c.roots)
	} else {
		c.logger.Warn("document has no default scene, nothing to play")
	}

	for _, b := range bindings {
		if err := c.instantiate(b); err != nil {
			return err
		}
	}
	c.registry.Ints.Get(status.KeyInstances).Store(int64(len(c.instances)))

	for i := range c.instances {
		inst := &c.instances[i]
		if !c.emitters[inst.Emitter].Playing {
			continue
		}
		if err := c.backend.Play(inst.Source); err != nil {
			return fmt.Errorf("%w: play instance %d: %v", ErrBackend, i, err)
		}
	}
	return nil
}

// instantiate allocates the backend source for b with the emitter's static loop and gain
// and places node-bound sources at their node
func (c *Context) instantiate(b Binding) error {
	e := &c.emitters[b.Emitter]
	src, err := c.backend.CreateSource(c.buffers[e.Source], e.Loop, e.Gain)
	if err != nil {
		return fmt.Errorf("%w: source for emitter %d: %v", ErrResourceCreation, b.Emitter, err)
	}

	index := len(c.instances)
	c.instances = append(c.instances, Instance{
		Binding:     b,
		Source:      src,
		gainMetric:  c.registry.Floats.Get(status.InstanceKey(index, "gain")),
		stateMetric: c.registry.Strings.Get(status.InstanceKey(index, "state")),
	})
	c.registry.Strings.Get(status.InstanceKey(index, "emitter")).Set(emitterLabel(e, b.Emitter))
	c.instances[index].gainMetric.Set(e.Gain)

	if b.Scoped() {
		c.logger.Debug("instance created for scene", "emitter", b.Emitter, "kind", e.Kind)
		return nil
	}

	// Node instances start at the node's world position, only positional ones move afterwards
	pos := c.graph.Position(b.Node)
	if err := c.backend.SetSourcePosition(src, pos); err != nil {
		return fmt.Errorf("%w: place instance %d: %v", ErrBackend, index, err)
	}
	c.instances[index].Position = pos
	c.logger.Debug("instance created for node", "emitter", b.Emitter, "node", b.Node, "kind", e.Kind)
	return nil
}

// Close deletes sources, then buffers, then closes the backend
// Safe to call more than once and on a partially loaded context
func (c *Context) Close() error {
	if c == nil || c.closed {
		return nil
	}
	c.closed = true

	for i := range c.instances {
		c.backend.DeleteSource(c.instances[i].Source)
	}
	for _, b := range c.buffers {
		c.backend.DeleteBuffer(b)
	}
	c.instances = nil
	c.buffers = nil

	if c.state == Active {
		c.halt(nil)
	}
	if err := c.backend.Close(); err != nil {
		return fmt.Errorf("close backend: %w", err)
	}
	return nil
}

// SetListener replaces the listener used from the next tick on
func (c *Context) SetListener(l audio.Listener) {
	c.listener = l
}

// Listener returns the current listener
func (c *Context) Listener() audio.Listener {
	return c.listener
}

// SetLocal overrides a node's local transform, the change is picked up by the next tick
func (c *Context) SetLocal(node int, m vmath.Mat4) {
	c.graph.SetLocal(node, m)
}

// Document returns the decoded scene
func (c *Context) Document() *scene.Document {
	return c.doc
}

// Emitters returns the emitter catalog
func (c *Context) Emitters() []spatial.Emitter {
	return c.emitters
}

// Instances returns a copy of the instance table as of the last tick
func (c *Context) Instances() []Instance {
	out := make([]Instance, len(c.instances))
	copy(out, c.instances)
	return out
}

// Registry returns the metrics registry written by Tick
func (c *Context) Registry() *status.Registry {
	return c.registry
}

// resolveURI percent-decodes uri and joins it onto baseDir unless absolute
func resolveURI(baseDir, uri string) (string, error) {
	p, err := url.PathUnescape(uri)
	if err != nil {
		return "", err
	}
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) || baseDir == "" {
		return p, nil
	}
	return filepath.Join(baseDir, p), nil
}

func emitterLabel(e *spatial.Emitter, index int) string {
	if e.Name != "" {
		return e.Name
	}
	return fmt.Sprintf("#%d", index)
}
