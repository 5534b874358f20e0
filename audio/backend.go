package audio

import "fmt"

// NewBackend constructs the backend named by cfg.Backend
// The null backend runs on the system clock
func NewBackend(cfg *AudioConfig) (Backend, error) {
	if cfg == nil {
		cfg = DefaultAudioConfig()
	}
	switch cfg.Backend {
	case BackendSpeaker:
		return NewSpeakerBackend(cfg)
	case BackendNull:
		return NewNullBackend(SystemClock{}), nil
	}
	return nil, fmt.Errorf("unknown audio backend %q", cfg.Backend)
}
