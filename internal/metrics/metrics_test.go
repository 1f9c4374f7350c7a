package metrics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountersAndFormat(t *testing.T) {
	before := Snapshot()
	IncrLLMCalls()
	IncrLLMCalls()
	IncrJobsFailed()
	after := Snapshot()

	assert.Equal(t, before["llm_calls"]+2, after["llm_calls"])
	assert.Equal(t, before["jobs_failed"]+1, after["jobs_failed"])

	out := Format()
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), len(order))
	assert.Contains(t, out, "vidsage_llm_calls ")
}
