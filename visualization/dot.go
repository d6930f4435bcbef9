// Package visualization renders the scenario phase machine in Graphviz
// DOT form.
package visualization

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/anggasct/roadsim"
)

// DOTGenerator generates Graphviz DOT representations of the phase machine
type DOTGenerator struct {
	graph   map[roadsim.Phase][]roadsim.Phase
	options DOTOptions
}

// DOTOptions configures the DOT generation
type DOTOptions struct {
	ShowTriggers  bool
	RankDirection string // "TB", "LR", "BT", "RL"
	NodeShape     string
}

// DefaultDOTOptions returns sensible default options for DOT generation
func DefaultDOTOptions() DOTOptions {
	return DOTOptions{
		ShowTriggers:  true,
		RankDirection: "LR",
		NodeShape:     "box",
	}
}

// triggers labels each normal-sequence edge with its gating condition
var triggers = map[roadsim.Phase]string{
	roadsim.PhaseApproaching: "separation consumed",
	roadsim.PhaseColliding:   "detection confirmed",
	roadsim.PhaseReporting:   "alert delay elapsed",
	roadsim.PhaseAlerting:    "brake line reached",
	roadsim.PhaseBraking:     "brake delay elapsed",
}

// NewDOTGenerator creates a DOT generator for the scenario phase graph
func NewDOTGenerator(options ...DOTOptions) *DOTGenerator {
	opts := DefaultDOTOptions()
	if len(options) > 0 {
		opts = options[0]
	}

	return &DOTGenerator{
		graph:   roadsim.PhaseGraph(),
		options: opts,
	}
}

// Generate creates a DOT representation of the phase machine
func (g *DOTGenerator) Generate() (string, error) {
	var dot strings.Builder

	dot.WriteString("digraph PhaseMachine {\n")
	dot.WriteString(fmt.Sprintf("  rankdir=%s;\n", g.options.RankDirection))
	dot.WriteString(fmt.Sprintf("  node [shape=%s];\n", g.options.NodeShape))
	dot.WriteString("  edge [fontsize=10];\n\n")

	g.generatePhases(&dot)
	g.generateTransitions(&dot)

	dot.WriteString("}\n")
	return dot.String(), nil
}

// generatePhases writes one node per phase
func (g *DOTGenerator) generatePhases(dot *strings.Builder) {
	dot.WriteString("  // Phases\n")

	phases := make([]roadsim.Phase, 0, len(g.graph))
	for p := range g.graph {
		phases = append(phases, p)
	}
	sort.Slice(phases, func(i, j int) bool { return phases[i] < phases[j] })

	for _, p := range phases {
		shape := g.options.NodeShape
		fill := "lightblue"
		label := p.String()

		switch {
		case p == roadsim.PhaseApproaching:
			fill = "lightgreen"
			label += "\\n(initial)"
		case p == roadsim.PhaseFault:
			shape = "doublecircle"
			fill = "lightcoral"
		case p.Terminal():
			shape = "doublecircle"
			fill = "lightyellow"
		}

		dot.WriteString(fmt.Sprintf("  \"%s\" [shape=%s style=\"filled\" fillcolor=%s label=\"%s\"];\n",
			p, shape, fill, label))
	}
}

// generateTransitions writes one edge per allowed transition
func (g *DOTGenerator) generateTransitions(dot *strings.Builder) {
	dot.WriteString("  // Transitions\n")

	phases := make([]roadsim.Phase, 0, len(g.graph))
	for p := range g.graph {
		phases = append(phases, p)
	}
	sort.Slice(phases, func(i, j int) bool { return phases[i] < phases[j] })

	for _, from := range phases {
		for _, to := range g.graph[from] {
			if g.options.ShowTriggers {
				label := "fault"
				if to != roadsim.PhaseFault {
					label = triggers[from]
				}
				dot.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [label=\"%s\"];\n", from, to, label))
				continue
			}
			dot.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\";\n", from, to))
		}
	}
}

// GenerateToFile writes the DOT representation to a file
func (g *DOTGenerator) GenerateToFile(filename string) error {
	content, err := g.Generate()
	if err != nil {
		return err
	}
	return os.WriteFile(filename, []byte(content), 0644)
}

// GenerateSVG creates an SVG representation by calling Graphviz
func (g *DOTGenerator) GenerateSVG() (string, error) {
	dotContent, err := g.Generate()
	if err != nil {
		return "", err
	}

	cmd := exec.Command("dot", "-Tsvg")
	cmd.Stdin = strings.NewReader(dotContent)

	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to execute dot command: %w (make sure Graphviz is installed)", err)
	}
	return out.String(), nil
}
