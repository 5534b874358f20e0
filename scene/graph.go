package scene

import (
	"github.com/lixenwraith/gltf-audio/vmath"
)

// localForward is the node-space emission axis
var localForward = vmath.Vec3F{Z: 1}

// Graph caches local transforms and derived world position and forward for every node
// Derived values are rewritten by Propagate and otherwise keep their last value
type Graph struct {
	children [][]int
	local    []vmath.Mat4
	position []vmath.Vec3F
	forward  []vmath.Vec3F
}

// NewGraph builds the transform cache from the node table
// Hierarchy must already be validated by Decode
func NewGraph(nodes []Node) *Graph {
	g := &Graph{
		children: make([][]int, len(nodes)),
		local:    make([]vmath.Mat4, len(nodes)),
		position: make([]vmath.Vec3F, len(nodes)),
		forward:  make([]vmath.Vec3F, len(nodes)),
	}
	for i := range nodes {
		g.children[i] = nodes[i].Children
		g.local[i] = nodes[i].Local()
		g.forward[i] = localForward
	}
	return g
}

// SetLocal replaces a node's local transform, picked up by the next Propagate
func (g *Graph) SetLocal(node int, m vmath.Mat4) {
	g.local[node] = m
}

// Propagate recomputes world transforms depth-first from roots, parent before children
func (g *Graph) Propagate(roots []int) {
	parent := vmath.Ident4()
	for _, r := range roots {
		g.visit(r, parent)
	}
}

func (g *Graph) visit(node int, parent vmath.Mat4) {
	world := vmath.Compose(parent, g.local[node])
	g.position[node] = vmath.TransformPoint(world, vmath.Vec3F{})
	g.forward[node] = vmath.TransformDir(world, localForward)

	for _, c := range g.children[node] {
		g.visit(c, world)
	}
}

// Position returns the cached world position
func (g *Graph) Position(node int) vmath.Vec3F {
	return g.position[node]
}

// Forward returns the cached world forward direction, not normalized
func (g *Graph) Forward(node int) vmath.Vec3F {
	return g.forward[node]
}
