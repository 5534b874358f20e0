package scene

import (
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"
)

// Decode parses a glTF JSON document or GLB container into typed tables
// extension selects the audio extension key, empty means DefaultExtension
func Decode(data []byte, extension string) (*Document, error) {
	if extension == "" {
		extension = DefaultExtension
	}

	if IsGLB(data) {
		js, err := GLBJSON(data)
		if err != nil {
			return nil, err
		}
		data = js
	}

	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: document is not valid JSON", ErrMalformed)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: document root is not an object", ErrMalformed)
	}

	extPath := gjson.Escape(extension)

	if !root.Get("extensions").Exists() {
		return nil, fmt.Errorf("%w: document has no extensions", ErrMalformed)
	}
	ext := root.Get("extensions." + extPath)
	if !ext.IsObject() {
		return nil, fmt.Errorf("%w: document has no %s extension", ErrMalformed, extension)
	}

	doc := &Document{Extension: extension, Scene: NoIndex}
	var err error

	if doc.Sources, err = decodeSources(ext.Get("audioSources")); err != nil {
		return nil, err
	}
	if doc.Emitters, err = decodeEmitters(ext.Get("audioEmitters")); err != nil {
		return nil, err
	}

	nodes, err := arrayOf(root.Get("nodes"), "nodes")
	if err != nil {
		return nil, err
	}
	doc.Nodes = make([]Node, len(nodes))
	for i, n := range nodes {
		if doc.Nodes[i], err = decodeNode(n, extPath, fmt.Sprintf("nodes[%d]", i)); err != nil {
			return nil, err
		}
	}

	scenes, err := arrayOf(root.Get("scenes"), "scenes")
	if err != nil {
		return nil, err
	}
	doc.Scenes = make([]Scene, len(scenes))
	for i, s := range scenes {
		if doc.Scenes[i], err = decodeScene(s, extPath, fmt.Sprintf("scenes[%d]", i)); err != nil {
			return nil, err
		}
	}

	if v := root.Get("scene"); v.Exists() {
		if doc.Scene, err = toIndex(v, "scene"); err != nil {
			return nil, err
		}
		if doc.Scene >= len(doc.Scenes) {
			return nil, fmt.Errorf("%w: scene %d out of range (%d scenes)", ErrMalformed, doc.Scene, len(doc.Scenes))
		}
	}

	if err := validateHierarchy(doc); err != nil {
		return nil, err
	}

	return doc, nil
}

func decodeSources(v gjson.Result) ([]SourceRecord, error) {
	items, err := arrayOf(v, "audioSources")
	if err != nil {
		return nil, err
	}

	out := make([]SourceRecord, len(items))
	for i, s := range items {
		where := fmt.Sprintf("audioSources[%d]", i)
		uri := s.Get("uri")
		if !uri.Exists() {
			// bufferView-embedded sources are not referenceable files
			return nil, fmt.Errorf("%w: %s has no uri", ErrMalformed, where)
		}
		if uri.Type != gjson.String || uri.String() == "" {
			return nil, fmt.Errorf("%w: %s.uri must be a non-empty string", ErrMalformed, where)
		}
		if strings.HasPrefix(uri.String(), "data:") {
			return nil, fmt.Errorf("%w: %s.uri embeds data instead of a file path", ErrMalformed, where)
		}
		out[i] = SourceRecord{
			Name:     s.Get("name").String(),
			URI:      uri.String(),
			MimeType: s.Get("mimeType").String(),
		}
	}
	return out, nil
}

func decodeEmitters(v gjson.Result) ([]EmitterRecord, error) {
	items, err := arrayOf(v, "audioEmitters")
	if err != nil {
		return nil, err
	}

	out := make([]EmitterRecord, len(items))
	for i, e := range items {
		where := fmt.Sprintf("audioEmitters[%d]", i)
		if !e.IsObject() {
			return nil, fmt.Errorf("%w: %s is not an object", ErrMalformed, where)
		}

		r := EmitterRecord{Name: e.Get("name").String()}
		if r.Type, err = optString(e, "type", where); err != nil {
			return nil, err
		}
		if r.Source, err = optIndex(e, "source", where); err != nil {
			return nil, err
		}
		if r.Playing, err = optBool(e, "playing", where); err != nil {
			return nil, err
		}
		if r.Loop, err = optBool(e, "loop", where); err != nil {
			return nil, err
		}
		if r.Gain, err = optFloat(e, "gain", where); err != nil {
			return nil, err
		}

		// Positional parameters live in a nested object in the extension draft, flat otherwise
		p := e.Get("positional")
		pwhere := where + ".positional"
		if !p.Exists() {
			p, pwhere = e, where
		}
		if r.DistanceModel, err = optString(p, "distanceModel", pwhere); err != nil {
			return nil, err
		}
		floats := []struct {
			key string
			dst **float64
		}{
			{"maxDistance", &r.MaxDistance},
			{"refDistance", &r.RefDistance},
			{"rolloffFactor", &r.RolloffFactor},
			{"coneInnerAngle", &r.ConeInnerAngle},
			{"coneOuterAngle", &r.ConeOuterAngle},
			{"coneOuterGain", &r.ConeOuterGain},
		}
		for _, f := range floats {
			if *f.dst, err = optFloat(p, f.key, pwhere); err != nil {
				return nil, err
			}
		}

		out[i] = r
	}
	return out, nil
}

func decodeNode(v gjson.Result, extPath, where string) (Node, error) {
	n := Node{Name: v.Get("name").String(), Emitter: NoIndex}
	if !v.IsObject() {
		return n, fmt.Errorf("%w: %s is not an object", ErrMalformed, where)
	}

	if m := v.Get("matrix"); m.Exists() {
		f, err := fixedFloats(m, 16, where+".matrix")
		if err != nil {
			return n, err
		}
		var a [16]float64
		copy(a[:], f)
		n.Matrix = &a
	}
	if t := v.Get("translation"); t.Exists() {
		f, err := fixedFloats(t, 3, where+".translation")
		if err != nil {
			return n, err
		}
		n.Translation = &[3]float64{f[0], f[1], f[2]}
	}
	if r := v.Get("rotation"); r.Exists() {
		f, err := fixedFloats(r, 4, where+".rotation")
		if err != nil {
			return n, err
		}
		n.Rotation = &[4]float64{f[0], f[1], f[2], f[3]}
	}
	if s := v.Get("scale"); s.Exists() {
		f, err := fixedFloats(s, 3, where+".scale")
		if err != nil {
			return n, err
		}
		n.Scale = &[3]float64{f[0], f[1], f[2]}
	}

	var err error
	if n.Children, err = indexList(v.Get("children"), where+".children"); err != nil {
		return n, err
	}

	if e := v.Get("extensions." + extPath + ".audioEmitter"); e.Exists() {
		if n.Emitter, err = toIndex(e, where+".audioEmitter"); err != nil {
			return n, err
		}
	}
	return n, nil
}

func decodeScene(v gjson.Result, extPath, where string) (Scene, error) {
	s := Scene{Name: v.Get("name").String()}
	if !v.IsObject() {
		return s, fmt.Errorf("%w: %s is not an object", ErrMalformed, where)
	}

	var err error
	if s.Nodes, err = indexList(v.Get("nodes"), where+".nodes"); err != nil {
		return s, err
	}
	if s.Emitters, err = indexList(v.Get("extensions."+extPath+".audioEmitters"), where+".audioEmitters"); err != nil {
		return s, err
	}
	return s, nil
}

// validateHierarchy checks index ranges and that nodes form a forest
func validateHierarchy(doc *Document) error {
	count := len(doc.Nodes)
	parents := make([]int, count)

	for i := range doc.Nodes {
		for _, c := range doc.Nodes[i].Children {
			if c >= count {
				return fmt.Errorf("%w: nodes[%d] child %d out of range (%d nodes)", ErrMalformed, i, c, count)
			}
			if c == i {
				return fmt.Errorf("%w: nodes[%d] lists itself as a child", ErrMalformed, i)
			}
			parents[c]++
			if parents[c] > 1 {
				return fmt.Errorf("%w: nodes[%d] has more than one parent", ErrMalformed, c)
			}
		}
	}

	for si := range doc.Scenes {
		for _, r := range doc.Scenes[si].Nodes {
			if r >= count {
				return fmt.Errorf("%w: scenes[%d] root %d out of range (%d nodes)", ErrMalformed, si, r, count)
			}
			if parents[r] != 0 {
				return fmt.Errorf("%w: scenes[%d] root %d is a child of another node", ErrMalformed, si, r)
			}
		}
	}

	// Single-parent graphs can still close a loop with no root; walk from every node
	const (
		unvisited = iota
		active
		done
	)
	state := make([]uint8, count)
	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case active:
			return fmt.Errorf("%w: node hierarchy has a cycle through nodes[%d]", ErrMalformed, i)
		case done:
			return nil
		}
		state[i] = active
		for _, c := range doc.Nodes[i].Children {
			if err := visit(c); err != nil {
				return err
			}
		}
		state[i] = done
		return nil
	}
	for i := 0; i < count; i++ {
		if err := visit(i); err != nil {
			return err
		}
	}
	return nil
}

// --- field helpers ---

func arrayOf(v gjson.Result, where string) ([]gjson.Result, error) {
	if !v.Exists() {
		return nil, nil
	}
	if !v.IsArray() {
		return nil, fmt.Errorf("%w: %s must be an array", ErrMalformed, where)
	}
	return v.Array(), nil
}

func fixedFloats(v gjson.Result, n int, where string) ([]float64, error) {
	if !v.IsArray() {
		return nil, fmt.Errorf("%w: %s must be an array of %d numbers", ErrMalformed, where, n)
	}
	items := v.Array()
	if len(items) != n {
		return nil, fmt.Errorf("%w: %s has %d components, want %d", ErrMalformed, where, len(items), n)
	}
	out := make([]float64, n)
	for i, it := range items {
		if it.Type != gjson.Number {
			return nil, fmt.Errorf("%w: %s[%d] is not a number", ErrMalformed, where, i)
		}
		out[i] = it.Float()
	}
	return out, nil
}

func toIndex(v gjson.Result, where string) (int, error) {
	if v.Type != gjson.Number {
		return NoIndex, fmt.Errorf("%w: %s must be an index", ErrMalformed, where)
	}
	f := v.Float()
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return NoIndex, fmt.Errorf("%w: %s=%v is not a valid index", ErrMalformed, where, v.Raw)
	}
	return int(f), nil
}

func indexList(v gjson.Result, where string) ([]int, error) {
	items, err := arrayOf(v, where)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(items))
	for i, it := range items {
		if out[i], err = toIndex(it, fmt.Sprintf("%s[%d]", where, i)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func optIndex(v gjson.Result, key, where string) (*int, error) {
	f := v.Get(key)
	if !f.Exists() {
		return nil, nil
	}
	i, err := toIndex(f, where+"."+key)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func optFloat(v gjson.Result, key, where string) (*float64, error) {
	f := v.Get(key)
	if !f.Exists() {
		return nil, nil
	}
	if f.Type != gjson.Number {
		return nil, fmt.Errorf("%w: %s.%s must be a number", ErrMalformed, where, key)
	}
	x := f.Float()
	return &x, nil
}

func optBool(v gjson.Result, key, where string) (*bool, error) {
	f := v.Get(key)
	if !f.Exists() {
		return nil, nil
	}
	if f.Type != gjson.True && f.Type != gjson.False {
		return nil, fmt.Errorf("%w: %s.%s must be a boolean", ErrMalformed, where, key)
	}
	b := f.Bool()
	return &b, nil
}

func optString(v gjson.Result, key, where string) (*string, error) {
	f := v.Get(key)
	if !f.Exists() {
		return nil, nil
	}
	if f.Type != gjson.String {
		return nil, fmt.Errorf("%w: %s.%s must be a string", ErrMalformed, where, key)
	}
	s := f.String()
	return &s, nil
}
