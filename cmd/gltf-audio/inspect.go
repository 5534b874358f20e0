package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lixenwraith/gltf-audio/audio"
	"github.com/lixenwraith/gltf-audio/engine"
	"github.com/lixenwraith/gltf-audio/scene"
	"github.com/lixenwraith/gltf-audio/spatial"
	"github.com/lixenwraith/gltf-audio/vmath"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "Print sources, emitters and evaluated instances without opening a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read scene: %w", err)
			}
			report, err := inspectScene(data, cfg.Engine.Extension, cfg.ListenerState())
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), report)
			return err
		},
	}
}

// inspectScene decodes, binds and evaluates the document once against listener
func inspectScene(data []byte, extension string, listener audio.Listener) (string, error) {
	doc, err := scene.Decode(data, extension)
	if err != nil {
		return "", err
	}
	emitters, err := spatial.BuildCatalog(doc.Emitters, len(doc.Sources))
	if err != nil {
		return "", err
	}
	bindings, err := engine.Bindings(doc)
	if err != nil {
		return "", err
	}

	graph := scene.NewGraph(doc.Nodes)
	if active := doc.ActiveScene(); active != nil {
		graph.Propagate(active.Nodes)
	}

	var b strings.Builder

	sourceRows := make([][]string, 0, len(doc.Sources))
	for i, s := range doc.Sources {
		sourceRows = append(sourceRows, []string{strconv.Itoa(i), s.Name, s.URI, s.MimeType})
	}
	b.WriteString(renderTable("Sources", []string{"#", "Name", "URI", "MIME"}, sourceRows, []columnAlignment{alignRight}))
	b.WriteString("\n")

	emitterRows := make([][]string, 0, len(emitters))
	for i, e := range emitters {
		row := []string{
			strconv.Itoa(i), e.Name, e.Kind.String(), strconv.Itoa(e.Source),
			strconv.FormatBool(e.Playing), strconv.FormatBool(e.Loop), num(e.Gain),
		}
		if e.Kind == spatial.Positional {
			p := e.Positional
			row = append(row, p.DistanceModel.String(), num(p.RefDistance), num(p.MaxDistance), num(p.RolloffFactor),
				num(p.ConeInnerAngle), num(p.ConeOuterAngle), num(p.ConeOuterGain))
		}
		emitterRows = append(emitterRows, row)
	}
	b.WriteString(renderTable("Emitters",
		[]string{"#", "Name", "Kind", "Source", "Playing", "Loop", "Gain", "Model", "Ref", "Max", "Rolloff", "Cone In", "Cone Out", "Cone Gain"},
		emitterRows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignLeft,
			alignRight, alignRight, alignRight, alignRight, alignRight, alignRight}))
	b.WriteString("\n")

	instanceRows := make([][]string, 0, len(bindings))
	for i, bind := range bindings {
		e := &emitters[bind.Emitter]
		node, scope := "-", "scene"
		if !bind.Scoped() {
			node, scope = strconv.Itoa(bind.Node), "node"
			if name := doc.Nodes[bind.Node].Name; name != "" {
				node += " " + name
			}
		}
		row := []string{strconv.Itoa(i), strconv.Itoa(bind.Emitter), scope, node}
		if bind.Scoped() || e.Kind != spatial.Positional {
			row = append(row, "-", "-", "-", "-", num(e.Gain))
		} else {
			pos := graph.Position(bind.Node)
			a := spatial.Evaluate(e, pos, graph.Forward(bind.Node), listener.Position)
			row = append(row, vec(pos), num(a.Distance), num(a.DistanceGain), num(a.ConeGain), num(a.Gain))
		}
		instanceRows = append(instanceRows, row)
	}
	b.WriteString(renderTable(
		fmt.Sprintf("Instances (listener at %s)", vec(listener.Position)),
		[]string{"#", "Emitter", "Scope", "Node", "Position", "Distance", "Distance Gain", "Cone Gain", "Gain"},
		instanceRows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight}))
	b.WriteString("\n")

	return b.String(), nil
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func vec(v vmath.Vec3F) string {
	return fmt.Sprintf("(%s, %s, %s)", num(v.X), num(v.Y), num(v.Z))
}
