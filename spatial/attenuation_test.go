package spatial

import (
	"math"
	"testing"

	"github.com/lixenwraith/gltf-audio/vmath"
)

const eps = 1e-9

func params(model DistanceModel, ref, max, rolloff float64) PositionalParams {
	p := DefaultPositional()
	p.DistanceModel = model
	p.RefDistance = ref
	p.MaxDistance = max
	p.RolloffFactor = rolloff
	return p
}

// TestDistanceGainModels verifies each distance model formula
func TestDistanceGainModels(t *testing.T) {
	testCases := []struct {
		name string
		p    PositionalParams
		d    float64
		want float64
	}{
		{"inverse d=3", params(Inverse, 1, 10000, 1), 3, 1.0 / 3},
		{"inverse below ref clamps", params(Inverse, 2, 10000, 1), 0.5, 1},
		{"inverse rolloff 2", params(Inverse, 1, 10000, 2), 2, 1.0 / 3},
		{"linear d=6", params(Linear, 1, 11, 1), 6, 0.5},
		{"linear at ref", params(Linear, 1, 11, 1), 1, 1},
		{"linear at max", params(Linear, 1, 11, 1), 11, 0},
		{"linear below ref unclamped", params(Linear, 1, 11, 1), 0, 1.1},
		{"linear past max unclamped", params(Linear, 1, 11, 1), 16, -0.5},
		{"linear zero span", params(Linear, 5, 5, 1), 20, 1},
		{"exponential d=4", params(Exponential, 1, 10000, 1), 4, 0.25},
		{"exponential rolloff 2", params(Exponential, 1, 10000, 2), 2, 0.25},
		{"exponential below ref clamps", params(Exponential, 3, 10000, 1), 1, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := DistanceGain(&tc.p, tc.d)
			if math.Abs(got-tc.want) > eps {
				t.Errorf("Expected %f, got %f", tc.want, got)
			}
		})
	}
}

// TestConeGainAngle verifies inner, outer and interpolated regions
func TestConeGainAngle(t *testing.T) {
	p := DefaultPositional()
	p.ConeInnerAngle = math.Pi / 2
	p.ConeOuterAngle = math.Pi
	p.ConeOuterGain = 0

	want := 1 - ((math.Pi/3 - math.Pi/4) / (math.Pi/2 - math.Pi/4))
	if got := ConeGainAngle(&p, math.Pi/3); math.Abs(got-want) > eps {
		t.Errorf("Expected interpolated %f, got %f", want, got)
	}

	if got := ConeGainAngle(&p, math.Pi/8); got != 1 {
		t.Errorf("Expected 1 inside inner cone, got %f", got)
	}
	if got := ConeGainAngle(&p, -math.Pi/8); got != 1 {
		t.Errorf("Expected negative angle treated by magnitude, got %f", got)
	}

	p.ConeOuterGain = 0.2
	if got := ConeGainAngle(&p, 3*math.Pi/4); got != 0.2 {
		t.Errorf("Expected outer gain 0.2, got %f", got)
	}

	// Interpolation blends toward the outer gain
	mid := (math.Pi/4 + math.Pi/2) / 2
	if got := ConeGainAngle(&p, mid); math.Abs(got-0.6) > eps {
		t.Errorf("Expected 0.6 halfway, got %f", got)
	}
}

// TestConeApplies verifies the omnidirectional and zero-forward exemptions
func TestConeApplies(t *testing.T) {
	p := DefaultPositional()
	fwd := vmath.Vec3F{Z: 1}

	if ConeApplies(&p, fwd) {
		t.Error("Expected default full-sphere cone to be skipped")
	}

	p.ConeOuterAngle = math.Pi
	if !ConeApplies(&p, fwd) {
		t.Error("Expected narrowed outer angle to enable cone")
	}
	if ConeApplies(&p, vmath.Vec3F{}) {
		t.Error("Expected zero forward to disable cone")
	}
}

// TestEvaluateCombinesFactors verifies final gain is emitter gain * distance * cone
func TestEvaluateCombinesFactors(t *testing.T) {
	e := Emitter{Kind: Positional, Gain: 0.5, Positional: params(Inverse, 1, 10000, 1)}
	e.Positional.ConeInnerAngle = math.Pi / 2
	e.Positional.ConeOuterAngle = math.Pi
	e.Positional.ConeOuterGain = 0

	source := vmath.Vec3F{}
	// Listener 3 units straight behind the forward axis: outside the outer cone
	behind := Evaluate(&e, source, vmath.Vec3F{Z: 1}, vmath.Vec3F{Z: -3})
	if behind.ConeGain != 0 || behind.Gain != 0 {
		t.Errorf("Expected silence behind the cone, got %+v", behind)
	}

	// Same distance in front, unscaled forward of length 5 must not matter
	front := Evaluate(&e, source, vmath.Vec3F{Z: 5}, vmath.Vec3F{Z: 3})
	if math.Abs(front.Distance-3) > eps {
		t.Errorf("Expected distance 3, got %f", front.Distance)
	}
	if front.ConeGain != 1 {
		t.Errorf("Expected cone gain 1 in front, got %f", front.ConeGain)
	}
	if math.Abs(front.Gain-0.5/3) > eps {
		t.Errorf("Expected gain %f, got %f", 0.5/3, front.Gain)
	}
}

// TestEvaluateOmnidirectional verifies cone is ignored with default angles
func TestEvaluateOmnidirectional(t *testing.T) {
	e := Emitter{Kind: Positional, Gain: 1, Positional: params(Exponential, 1, 10000, 1)}
	a := Evaluate(&e, vmath.Vec3F{X: 4}, vmath.Vec3F{Z: 1}, vmath.Vec3F{})
	if a.ConeGain != 1 {
		t.Errorf("Expected cone gain 1, got %f", a.ConeGain)
	}
	if math.Abs(a.Gain-0.25) > eps {
		t.Errorf("Expected gain 0.25, got %f", a.Gain)
	}
}
