package scene

import (
	"math"
	"testing"

	"github.com/lixenwraith/gltf-audio/vmath"
)

func near(a, b vmath.Vec3F) bool {
	const eps = 1e-9
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps && math.Abs(a.Z-b.Z) < eps
}

// TestGraphIdentityNode verifies a node without transform fields sits at the origin facing +Z
func TestGraphIdentityNode(t *testing.T) {
	g := NewGraph([]Node{{Emitter: NoIndex}})
	g.Propagate([]int{0})

	if p := g.Position(0); !near(p, vmath.Vec3F{}) {
		t.Errorf("Expected origin, got %+v", p)
	}
	if f := g.Forward(0); !near(f, vmath.Vec3F{Z: 1}) {
		t.Errorf("Expected forward (0,0,1), got %+v", f)
	}
}

// TestGraphParentBeforeChild verifies each level composes against its already updated parent
func TestGraphParentBeforeChild(t *testing.T) {
	const depth = 6
	nodes := make([]Node, depth)
	for i := range nodes {
		nodes[i] = Node{Translation: &[3]float64{1, 0, 0}, Emitter: NoIndex}
		if i+1 < depth {
			nodes[i].Children = []int{i + 1}
		}
	}
	g := NewGraph(nodes)
	g.Propagate([]int{0})

	for i := 0; i < depth; i++ {
		want := vmath.Vec3F{X: float64(i + 1)}
		if p := g.Position(i); !near(p, want) {
			t.Errorf("Node %d: expected %+v, got %+v", i, want, p)
		}
	}

	// Moving the root is reflected down the whole chain on the next pass
	g.SetLocal(0, vmath.TRS(&[3]float64{10, 0, 0}, nil, nil))
	g.Propagate([]int{0})
	if p := g.Position(depth - 1); !near(p, vmath.Vec3F{X: 10 + depth - 1}) {
		t.Errorf("Expected leaf at x=%d, got %+v", 10+depth-1, p)
	}
}

// TestGraphForwardRotatedNotTranslated verifies forward follows rotation and scale only
func TestGraphForwardRotatedNotTranslated(t *testing.T) {
	s := math.Sqrt2 / 2
	nodes := []Node{{
		Translation: &[3]float64{5, 5, 5},
		Rotation:    &[4]float64{0, s, 0, s}, // +90 degrees about Y
		Scale:       &[3]float64{3, 3, 3},
		Emitter:     NoIndex,
	}}
	g := NewGraph(nodes)
	g.Propagate([]int{0})

	// +Z rotated +90 about Y is +X, scaled by 3, untranslated
	if f := g.Forward(0); !near(f, vmath.Vec3F{X: 3}) {
		t.Errorf("Expected forward (3,0,0), got %+v", f)
	}
	if p := g.Position(0); !near(p, vmath.Vec3F{X: 5, Y: 5, Z: 5}) {
		t.Errorf("Expected position (5,5,5), got %+v", p)
	}
}

// TestGraphMatrixWins verifies an explicit matrix overrides TRS fields
func TestGraphMatrixWins(t *testing.T) {
	m := [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 7, 8, 9, 1}
	nodes := []Node{{Matrix: &m, Translation: &[3]float64{1, 1, 1}, Emitter: NoIndex}}
	g := NewGraph(nodes)
	g.Propagate([]int{0})

	if p := g.Position(0); !near(p, vmath.Vec3F{X: 7, Y: 8, Z: 9}) {
		t.Errorf("Expected matrix translation (7,8,9), got %+v", p)
	}
}

// TestGraphUnreachableKeepsCache verifies nodes outside the roots keep previous values
func TestGraphUnreachableKeepsCache(t *testing.T) {
	nodes := []Node{
		{Translation: &[3]float64{1, 0, 0}, Emitter: NoIndex},
		{Translation: &[3]float64{0, 2, 0}, Emitter: NoIndex},
	}
	g := NewGraph(nodes)
	g.Propagate([]int{0})

	if p := g.Position(1); !near(p, vmath.Vec3F{}) {
		t.Errorf("Expected default position for unreachable node, got %+v", p)
	}

	g.Propagate([]int{1})
	g.SetLocal(1, vmath.Ident4())
	g.Propagate([]int{0})
	if p := g.Position(1); !near(p, vmath.Vec3F{Y: 2}) {
		t.Errorf("Expected last cached position (0,2,0), got %+v", p)
	}
}
