package status

import (
	"fmt"
	"sort"
	"strconv"
	"sync/atomic"
)

// Keys written by the engine every tick
const (
	KeyState       = "engine.state"
	KeyTicks       = "engine.ticks"
	KeyInstances   = "engine.instances"
	KeyActive      = "engine.active"
	KeyBuffers     = "engine.buffers"
	KeyListenerPos = "listener.position"
)

// InstanceKey names a per-instance metric, e.g. InstanceKey(3, "gain") is "instance.003.gain"
func InstanceKey(index int, field string) string {
	return fmt.Sprintf("instance.%03d.%s", index, field)
}

// Registry collects engine metrics for the monitor and CLI
// The tick loop writes atomics directly, readers take a Snapshot
type Registry struct {
	Ints    *MetricMap[atomic.Int64]
	Floats  *MetricMap[AtomicFloat]
	Strings *MetricMap[AtomicString]
}

func NewRegistry() *Registry {
	return &Registry{
		Ints:    NewMetricMap[atomic.Int64](),
		Floats:  NewMetricMap[AtomicFloat](),
		Strings: NewMetricMap[AtomicString](),
	}
}

// Sample is one formatted metric
type Sample struct {
	Key   string
	Value string
}

// Snapshot returns every metric formatted and sorted by key
func (r *Registry) Snapshot() []Sample {
	out := make([]Sample, 0, r.TotalCount())
	r.Ints.Range(func(k string, v *atomic.Int64) {
		out = append(out, Sample{k, strconv.FormatInt(v.Load(), 10)})
	})
	r.Floats.Range(func(k string, v *AtomicFloat) {
		out = append(out, Sample{k, strconv.FormatFloat(v.Get(), 'f', 4, 64)})
	})
	r.Strings.Range(func(k string, v *AtomicString) {
		out = append(out, Sample{k, v.Get()})
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (r *Registry) TotalCount() int {
	return r.Ints.Count() + r.Floats.Count() + r.Strings.Count()
}
