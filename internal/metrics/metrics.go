// Package metrics keeps process-wide operational counters.
package metrics

import (
	"fmt"
	"strings"
	"sync/atomic"
)

var counters struct {
	AcquireManual  atomic.Int64
	AcquireAuto    atomic.Int64
	AcquireWhisper atomic.Int64
	AcquireErrors  atomic.Int64
	LLMCalls       atomic.Int64
	LLMErrors      atomic.Int64
	JobsCreated    atomic.Int64
	JobsCompleted  atomic.Int64
	JobsFailed     atomic.Int64
	CacheHits      atomic.Int64
	CacheMisses    atomic.Int64
}

func IncrAcquireManual()  { counters.AcquireManual.Add(1) }
func IncrAcquireAuto()    { counters.AcquireAuto.Add(1) }
func IncrAcquireWhisper() { counters.AcquireWhisper.Add(1) }
func IncrAcquireErrors()  { counters.AcquireErrors.Add(1) }
func IncrLLMCalls()       { counters.LLMCalls.Add(1) }
func IncrLLMErrors()      { counters.LLMErrors.Add(1) }
func IncrJobsCreated()    { counters.JobsCreated.Add(1) }
func IncrJobsCompleted()  { counters.JobsCompleted.Add(1) }
func IncrJobsFailed()     { counters.JobsFailed.Add(1) }
func IncrCacheHits()      { counters.CacheHits.Add(1) }
func IncrCacheMisses()    { counters.CacheMisses.Add(1) }

var order = []string{
	"acquire_manual", "acquire_auto", "acquire_whisper", "acquire_errors",
	"llm_calls", "llm_errors",
	"jobs_created", "jobs_completed", "jobs_failed",
	"cache_hits", "cache_misses",
}

// Snapshot returns the current counter values.
func Snapshot() map[string]int64 {
	return map[string]int64{
		"acquire_manual":  counters.AcquireManual.Load(),
		"acquire_auto":    counters.AcquireAuto.Load(),
		"acquire_whisper": counters.AcquireWhisper.Load(),
		"acquire_errors":  counters.AcquireErrors.Load(),
		"llm_calls":       counters.LLMCalls.Load(),
		"llm_errors":      counters.LLMErrors.Load(),
		"jobs_created":    counters.JobsCreated.Load(),
		"jobs_completed":  counters.JobsCompleted.Load(),
		"jobs_failed":     counters.JobsFailed.Load(),
		"cache_hits":      counters.CacheHits.Load(),
		"cache_misses":    counters.CacheMisses.Load(),
	}
}

// Format renders the counters one per line as "name value".
func Format() string {
	m := Snapshot()
	var sb strings.Builder
	for _, k := range order {
		fmt.Fprintf(&sb, "vidsage_%s %d\n", k, m[k])
	}
	return sb.String()
}
