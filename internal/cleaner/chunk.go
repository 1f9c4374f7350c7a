package cleaner

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/common"
)

// ChunkText splits text into pieces of at most maxSize characters, cutting only
// at sentence boundaries. A single sentence longer than maxSize becomes its own
// chunk. Text that already fits is returned unchanged as the only chunk.
func ChunkText(text string, maxSize int) []string {
	if maxSize <= 0 {
		maxSize = common.DefaultMaxChunkSize
	}
	if utf8.RuneCountInString(text) <= maxSize {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0
	for _, sentence := range splitSentences(text) {
		n := utf8.RuneCountInString(sentence)
		if currentLen+n+1 > maxSize {
			if currentLen > 0 {
				chunks = append(chunks, strings.TrimSpace(current.String()))
			}
			current.Reset()
			current.WriteString(sentence)
			currentLen = n
			continue
		}
		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(sentence)
		currentLen += n
	}
	if currentLen > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}
	return chunks
}

// splitSentences cuts after '.', '!' or '?' when whitespace follows, dropping that whitespace.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		j := i
		for j < len(text) {
			ws, wsize := utf8.DecodeRuneInString(text[j:])
			if !unicode.IsSpace(ws) {
				break
			}
			j += wsize
		}
		if j == i {
			continue
		}
		if s := text[start:i]; s != "" {
			out = append(out, s)
		}
		start = j
		i = j
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}
