package llm

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when a correction provider is selected without credentials.
var ErrNotConfigured = errors.New("llm provider not configured")

// Client defines the capability to correct a raw speech-to-text transcript chunk.
type Client interface {
	// CorrectTranscript returns the corrected text for one chunk. Implementations
	// must not summarize or rephrase; they only fix recognition errors.
	CorrectTranscript(ctx context.Context, chunk string) (string, error)
}

// DefaultSystemPrompt is the system message sent with every correction request.
const DefaultSystemPrompt = "You are a precise transcript editor. Only fix errors, never change meaning."

// DefaultInstructions holds the editing rules; the chunk is appended after it.
const DefaultInstructions = `You are a transcript editor. Fix the following raw speech-to-text transcript.

Rules:
1. Fix misspelled proper nouns (people names, place names, organization names)
2. Fix technical terms and domain-specific words
3. Fix grammar only where speech-to-text clearly made errors
4. Add proper punctuation and sentence structure
5. DO NOT change the meaning or rephrase sentences
6. DO NOT add information that wasn't in the original
7. DO NOT summarize, return the FULL corrected transcript
8. Keep the same length and content, just fix errors`

// BuildUserPrompt renders the editing rules around a transcript chunk.
func BuildUserPrompt(instructions, chunk string) string {
	if instructions == "" {
		instructions = DefaultInstructions
	}
	return instructions + "\n\nRaw transcript:\n\n" + chunk + "\n\nCorrected transcript:\n"
}
