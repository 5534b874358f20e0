package engine

import (
	"fmt"

	"github.com/lixenwraith/gltf-audio/scene"
)

// Binding is one planned emitter instance
// Node is scene.NoIndex for instances declared at scene scope
type Binding struct {
	Emitter int
	Node    int
}

// Scoped reports whether the binding was declared on the scene rather than a node
func (b Binding) Scoped() bool {
	return b.Node == scene.NoIndex
}

// Bindings lists the instances of the active scene in creation order:
// scene-scoped declarations first, then node declarations depth-first from each root
// A document without an active scene yields no bindings
func Bindings(doc *scene.Document) ([]Binding, error) {
	active := doc.ActiveScene()
	if active == nil {
		return nil, nil
	}

	count := len(doc.Emitters)
	var out []Binding
	for i, e := range active.Emitters {
		if e >= count {
			return nil, fmt.Errorf("%w: scenes[%d].audioEmitters[%d] references emitter %d of %d",
				ErrMalformedScene, doc.Scene, i, e, count)
		}
		out = append(out, Binding{Emitter: e, Node: scene.NoIndex})
	}

	var walk func(n int) error
	walk = func(n int) error {
		node := &doc.Nodes[n]
		if node.Emitter != scene.NoIndex {
			if node.Emitter >= count {
				return fmt.Errorf("%w: nodes[%d].audioEmitter references emitter %d of %d",
					ErrMalformedScene, n, node.Emitter, count)
			}
			out = append(out, Binding{Emitter: node.Emitter, Node: n})
		}
		for _, c := range node.Children {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range active.Nodes {
		if err := walk(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}
