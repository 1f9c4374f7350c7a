package llm

import (
	"strings"
	"testing"
)

func TestBuildUserPrompt(t *testing.T) {
	p := BuildUserPrompt("", "hello wrld")
	if !strings.HasPrefix(p, DefaultInstructions) {
		t.Fatalf("default instructions not used")
	}
	if !strings.Contains(p, "Raw transcript:\n\nhello wrld\n\nCorrected transcript:") {
		t.Fatalf("chunk not embedded: %q", p)
	}
	custom := BuildUserPrompt("Only fix names.", "x")
	if !strings.HasPrefix(custom, "Only fix names.") {
		t.Fatalf("custom instructions ignored: %q", custom)
	}
}
