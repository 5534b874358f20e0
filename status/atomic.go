package status

import (
	"math"
	"sync/atomic"
)

// AtomicFloat is a float64 stored as its bit pattern, the zero value reads 0.0
type AtomicFloat struct {
	bits atomic.Uint64
}

func (f *AtomicFloat) Set(val float64) {
	f.bits.Store(math.Float64bits(val))
}

func (f *AtomicFloat) Get() float64 {
	return math.Float64frombits(f.bits.Load())
}

// AtomicString holds a label such as an emitter name or engine state
type AtomicString struct {
	ptr atomic.Pointer[string]
}

func (s *AtomicString) Set(val string) {
	s.ptr.Store(&val)
}

func (s *AtomicString) Get() string {
	if p := s.ptr.Load(); p != nil {
		return *p
	}
	return ""
}
