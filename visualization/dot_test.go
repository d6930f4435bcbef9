package visualization_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anggasct/roadsim/visualization"
)

func TestDOTGeneration(t *testing.T) {
	generator := visualization.NewDOTGenerator()

	dotContent, err := generator.Generate()
	if err != nil {
		t.Fatalf("Failed to generate DOT: %v", err)
	}

	if !strings.Contains(dotContent, "digraph PhaseMachine") {
		t.Error("DOT content should contain graph declaration")
	}

	for _, phase := range []string{"approaching", "colliding", "reporting", "alerting", "braking", "halted", "fault"} {
		if !strings.Contains(dotContent, "\""+phase+"\"") {
			t.Errorf("DOT content should contain phase %q", phase)
		}
	}

	if !strings.Contains(dotContent, "\"approaching\" -> \"colliding\"") {
		t.Error("DOT content should contain the approach transition")
	}

	if !strings.Contains(dotContent, "\"braking\" -> \"halted\"") {
		t.Error("DOT content should contain the halt transition")
	}

	if !strings.Contains(dotContent, "lightgreen") {
		t.Error("DOT content should highlight the initial phase")
	}

	if !strings.Contains(dotContent, "detection confirmed") {
		t.Error("DOT content should label the detection trigger")
	}

	t.Logf("Generated DOT content:\n%s", dotContent)
}

func TestDOTGenerationWithoutTriggers(t *testing.T) {
	opts := visualization.DefaultDOTOptions()
	opts.ShowTriggers = false

	generator := visualization.NewDOTGenerator(opts)
	dotContent, err := generator.Generate()
	if err != nil {
		t.Fatalf("Failed to generate DOT: %v", err)
	}

	if strings.Contains(dotContent, "detection confirmed") {
		t.Error("DOT content should not label triggers when disabled")
	}
}

func TestDOTGenerationToFile(t *testing.T) {
	generator := visualization.NewDOTGenerator()

	path := filepath.Join(t.TempDir(), "phases.dot")
	if err := generator.GenerateToFile(path); err != nil {
		t.Fatalf("Failed to write DOT file: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read DOT file: %v", err)
	}
	if !strings.Contains(string(content), "digraph PhaseMachine") {
		t.Error("Written DOT file should contain graph declaration")
	}
}
