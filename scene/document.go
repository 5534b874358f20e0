// Package scene decodes a glTF scene document carrying audio emitter extension
// data into typed, index-addressed tables and propagates node transforms.
package scene

import (
	"errors"

	"github.com/lixenwraith/gltf-audio/vmath"
)

// DefaultExtension is the extension key holding audio sources, emitters and instance declarations
const DefaultExtension = "OMI_audio_emitter"

// NoIndex marks an absent index reference
const NoIndex = -1

// ErrMalformed reports a document missing a required field or carrying an invalid index
var ErrMalformed = errors.New("malformed scene")

// Node is one entry of the document node table
// Transform fields are nil when absent from the document
type Node struct {
	Name        string
	Matrix      *[16]float64
	Translation *[3]float64
	Rotation    *[4]float64 // quaternion x, y, z, w
	Scale       *[3]float64
	Children    []int
	Emitter     int // emitter index declared under the node extension, NoIndex if none
}

// Local returns the node's local transform
// An explicit matrix wins; otherwise T * R * S with absent parts as identity
func (n *Node) Local() vmath.Mat4 {
	if n.Matrix != nil {
		return vmath.MatFromArray(*n.Matrix)
	}
	return vmath.TRS(n.Translation, n.Rotation, n.Scale)
}

// Scene lists root nodes and scene-scoped emitter instances
type Scene struct {
	Name     string
	Nodes    []int
	Emitters []int
}

// SourceRecord references an encoded audio file by uri
type SourceRecord struct {
	Name     string
	URI      string
	MimeType string
}

// EmitterRecord is the declarative emitter entry as written in the document
// Nil pointers are fields absent from the document; defaults apply later
type EmitterRecord struct {
	Name           string
	Type           *string
	Source         *int
	Playing        *bool
	Loop           *bool
	Gain           *float64
	DistanceModel  *string
	MaxDistance    *float64
	RefDistance    *float64
	RolloffFactor  *float64
	ConeInnerAngle *float64
	ConeOuterAngle *float64
	ConeOuterGain  *float64
}

// Document is the decoded scene document
type Document struct {
	Extension string
	Scene     int // default scene index, NoIndex when absent
	Scenes    []Scene
	Nodes     []Node
	Sources   []SourceRecord
	Emitters  []EmitterRecord
}

// ActiveScene returns the default scene, nil when the document names none
func (d *Document) ActiveScene() *Scene {
	if d.Scene == NoIndex {
		return nil
	}
	return &d.Scenes[d.Scene]
}
