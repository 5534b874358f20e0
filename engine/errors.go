package engine

import (
	"errors"

	"github.com/lixenwraith/gltf-audio/scene"
)

// Failure classes, every one is terminal for the current run
var (
	// ErrMalformedScene reports a missing required field or an out-of-range index
	ErrMalformedScene = scene.ErrMalformed
	// ErrResourceCreation reports a decode, buffer or source allocation failure during load
	ErrResourceCreation = errors.New("resource creation failed")
	// ErrBackend reports a backend failure while pushing parameters or polling state
	ErrBackend = errors.New("backend error")
)
