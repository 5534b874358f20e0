// Package spatial holds the emitter catalog and the distance/cone attenuation model
package spatial

import (
	"fmt"
	"math"

	"github.com/lixenwraith/gltf-audio/scene"
)

// Kind distinguishes scene-wide emitters from node-anchored ones
type Kind int

const (
	Global Kind = iota
	Positional
)

func (k Kind) String() string {
	switch k {
	case Global:
		return "global"
	case Positional:
		return "positional"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// DistanceModel selects the distance gain curve
type DistanceModel int

const (
	Inverse DistanceModel = iota
	Linear
	Exponential
)

func (m DistanceModel) String() string {
	switch m {
	case Linear:
		return "linear"
	case Inverse:
		return "inverse"
	case Exponential:
		return "exponential"
	}
	return fmt.Sprintf("model(%d)", int(m))
}

// Declarative defaults for fields absent from an emitter record
const (
	DefaultGain          = 1.0
	DefaultMaxDistance   = 10000.0
	DefaultRefDistance   = 1.0
	DefaultRolloffFactor = 1.0
	DefaultConeAngle     = 2 * math.Pi
	DefaultConeOuterGain = 0.0
)

// PositionalParams are the attenuation parameters of a positional emitter
type PositionalParams struct {
	DistanceModel  DistanceModel
	MaxDistance    float64
	RefDistance    float64
	RolloffFactor  float64
	ConeInnerAngle float64
	ConeOuterAngle float64
	ConeOuterGain  float64
}

// DefaultPositional returns parameters with every documented default applied
func DefaultPositional() PositionalParams {
	return PositionalParams{
		DistanceModel:  Inverse,
		MaxDistance:    DefaultMaxDistance,
		RefDistance:    DefaultRefDistance,
		RolloffFactor:  DefaultRolloffFactor,
		ConeInnerAngle: DefaultConeAngle,
		ConeOuterAngle: DefaultConeAngle,
		ConeOuterGain:  DefaultConeOuterGain,
	}
}

// Emitter is an immutable sound configuration bound to one audio source
// Positional is meaningful only when Kind == Positional
type Emitter struct {
	Name       string
	Kind       Kind
	Source     int
	Playing    bool
	Loop       bool
	Gain       float64
	Positional PositionalParams
}

// BuildCatalog turns declarative records into emitters, applying defaults
// sourceCount bounds the valid source indices
func BuildCatalog(records []scene.EmitterRecord, sourceCount int) ([]Emitter, error) {
	out := make([]Emitter, 0, len(records))
	for i := range records {
		e, err := buildEmitter(&records[i], sourceCount)
		if err != nil {
			return nil, fmt.Errorf("audioEmitters[%d]: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func buildEmitter(r *scene.EmitterRecord, sourceCount int) (Emitter, error) {
	e := Emitter{
		Name:       r.Name,
		Kind:       Global,
		Gain:       DefaultGain,
		Positional: DefaultPositional(),
	}

	if r.Type != nil {
		switch *r.Type {
		case "global":
			e.Kind = Global
		case "positional":
			e.Kind = Positional
		default:
			return e, fmt.Errorf("%w: unknown emitter type %q", scene.ErrMalformed, *r.Type)
		}
	}

	if r.Source == nil {
		return e, fmt.Errorf("%w: emitter has no source", scene.ErrMalformed)
	}
	if *r.Source >= sourceCount {
		return e, fmt.Errorf("%w: source %d out of range (%d sources)", scene.ErrMalformed, *r.Source, sourceCount)
	}
	e.Source = *r.Source

	if r.Playing != nil {
		e.Playing = *r.Playing
	}
	if r.Loop != nil {
		e.Loop = *r.Loop
	}
	if r.Gain != nil {
		e.Gain = *r.Gain
	}

	p := &e.Positional
	if r.DistanceModel != nil {
		switch *r.DistanceModel {
		case "linear":
			p.DistanceModel = Linear
		case "inverse":
			p.DistanceModel = Inverse
		case "exponential":
			p.DistanceModel = Exponential
		default:
			return e, fmt.Errorf("%w: unknown distance model %q", scene.ErrMalformed, *r.DistanceModel)
		}
	}
	setIf(&p.MaxDistance, r.MaxDistance)
	setIf(&p.RefDistance, r.RefDistance)
	setIf(&p.RolloffFactor, r.RolloffFactor)
	setIf(&p.ConeInnerAngle, r.ConeInnerAngle)
	setIf(&p.ConeOuterAngle, r.ConeOuterAngle)
	setIf(&p.ConeOuterGain, r.ConeOuterGain)

	return e, nil
}

func setIf(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
