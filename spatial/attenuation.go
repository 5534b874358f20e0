package spatial

import (
	"math"

	"github.com/lixenwraith/gltf-audio/vmath"
)

// Attenuation is the breakdown of one positional gain evaluation
type Attenuation struct {
	Distance     float64
	DistanceGain float64
	ConeGain     float64
	Gain         float64 // emitter gain * DistanceGain * ConeGain
}

// Evaluate computes the final gain of a positional emitter at sourcePos facing forward,
// heard from listenerPos
func Evaluate(e *Emitter, sourcePos, forward, listenerPos vmath.Vec3F) Attenuation {
	p := &e.Positional
	d := vmath.V3FDist(sourcePos, listenerPos)

	a := Attenuation{
		Distance:     d,
		DistanceGain: DistanceGain(p, d),
		ConeGain:     1,
	}
	if ConeApplies(p, forward) {
		a.ConeGain = ConeGain(p, sourcePos, forward, listenerPos)
	}
	a.Gain = e.Gain * a.DistanceGain * a.ConeGain
	return a
}

// DistanceGain returns the distance-model factor for distance d
// Linear does not clamp d into [ref, max]; inverse and exponential clamp below at ref
func DistanceGain(p *PositionalParams, d float64) float64 {
	ref, rolloff := p.RefDistance, p.RolloffFactor

	switch p.DistanceModel {
	case Linear:
		span := p.MaxDistance - ref
		if span == 0 {
			return 1
		}
		return 1 - rolloff*(d-ref)/span
	case Exponential:
		return math.Pow(math.Max(d, ref)/ref, -rolloff)
	default:
		return ref / (ref + rolloff*(math.Max(d, ref)-ref))
	}
}

// ConeApplies reports whether the cone factor is evaluated at all
// Requires a non-zero forward and at least one angle narrower than the full sphere
func ConeApplies(p *PositionalParams, forward vmath.Vec3F) bool {
	if vmath.V3FIsZero(forward) {
		return false
	}
	return p.ConeInnerAngle != DefaultConeAngle || p.ConeOuterAngle != DefaultConeAngle
}

// ConeGain returns the cone factor for a listener seen from sourcePos along forward
func ConeGain(p *PositionalParams, sourcePos, forward, listenerPos vmath.Vec3F) float64 {
	toListener := vmath.V3FNormalize(vmath.V3FSub(listenerPos, sourcePos))
	dir := vmath.V3FNormalize(forward)

	cos := vmath.V3FDot(toListener, dir)
	// Rounding can push a unit dot product just past ±1
	cos = math.Max(-1, math.Min(1, cos))
	return ConeGainAngle(p, math.Acos(cos))
}

// ConeGainAngle interpolates between 1 inside the inner half-angle and
// ConeOuterGain outside the outer half-angle
func ConeGainAngle(p *PositionalParams, angle float64) float64 {
	angle = math.Abs(angle)
	innerHalf := math.Abs(p.ConeInnerAngle) / 2
	outerHalf := math.Abs(p.ConeOuterAngle) / 2

	if angle <= innerHalf {
		return 1
	}
	if angle >= outerHalf {
		return p.ConeOuterGain
	}

	x := (angle - innerHalf) / (outerHalf - innerHalf)
	return (1 - x) + p.ConeOuterGain*x
}
