package mock

import (
	"context"
	"strings"
	"time"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/config"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/llm"
)

var _ llm.Client = (*Client)(nil)

// Client is a deterministic correction provider for local runs and tests.
// It waits for the configured delay and returns the chunk with normalized spacing.
type Client struct {
	delay  time.Duration
	prefix string
}

func New(cfg config.MockSettings) *Client {
	return &Client{delay: cfg.Delay, prefix: cfg.Prefix}
}

func (c *Client) CorrectTranscript(ctx context.Context, chunk string) (string, error) {
	if c.delay > 0 {
		t := time.NewTimer(c.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	} else if err := ctx.Err(); err != nil {
		return "", err
	}
	out := strings.Join(strings.Fields(chunk), " ")
	if c.prefix != "" {
		out = c.prefix + " " + out
	}
	return out, nil
}
