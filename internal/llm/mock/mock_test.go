package mock

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/config"
)

func TestMockLLM_CorrectTranscript(t *testing.T) {
	c := New(config.MockSettings{Delay: 0, Prefix: "MockPrefix"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	out, err := c.CorrectTranscript(ctx, "hello   world")
	if err != nil {
		t.Fatalf("CorrectTranscript error: %v", err)
	}
	if !strings.HasPrefix(out, "MockPrefix") {
		t.Fatalf("missing prefix, got: %q", out)
	}
	if !strings.HasSuffix(out, "hello world") {
		t.Fatalf("spacing not normalized, got: %q", out)
	}
}

func TestMockLLM_RespectsContextCancel(t *testing.T) {
	c := New(config.MockSettings{Delay: 200 * time.Millisecond, Prefix: "x"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.CorrectTranscript(ctx, "x"); err == nil {
		t.Fatalf("expected context cancellation error")
	}
}
