package cleaner

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	hesitationRE = regexp.MustCompile(`(?i)\b(?:um|uh|erm|hmm|hm|ah|eh|oh)\b`)
	// the trailing group stands in for a lookahead and is written back
	discourseRE        = regexp.MustCompile(`(?i)\b(?:you know|i mean|like|basically|actually|literally|right)\b([\s,.])`)
	leadingSoRE        = regexp.MustCompile(`(?i)\bso+\b(\s*,)`)
	multiSpaceRE       = regexp.MustCompile(`\s{2,}`)
	spaceBeforePunctRE = regexp.MustCompile(`\s+([.,!?;:])`)
	// a comma directly after removed fillers that follow a text start or other punctuation
	strandedCommaRE = regexp.MustCompile(`(^|[,.!?;:])((?:\s*\x1f)+)\s*,`)
	missingSpaceRE  = regexp.MustCompile(`([.,!?;:])([A-Za-z])`)
	sentenceStartRE = regexp.MustCompile(`[.!?]\s+[a-z]`)
	wordRE          = regexp.MustCompile(`[\p{L}\p{N}_]+`)
)

const (
	maxBasicPasses = 8
	// fillerMark stands in for a removed filler until stranded commas are dropped.
	fillerMark = "\x1f"
)

// BasicClean removes filler words and immediate word repeats, normalizes
// whitespace and punctuation spacing, and capitalizes sentence starts.
// The result is a fixed point: BasicClean(BasicClean(x)) == BasicClean(x).
func BasicClean(text string) string {
	for i := 0; i < maxBasicPasses; i++ {
		next := basicPass(text)
		if next == text {
			return next
		}
		text = next
	}
	return text
}

func basicPass(text string) string {
	text = hesitationRE.ReplaceAllString(text, fillerMark)
	text = discourseRE.ReplaceAllString(text, fillerMark+"$1")
	text = leadingSoRE.ReplaceAllString(text, fillerMark+"$1")
	text = dropStrandedCommas(text)
	text = strings.ReplaceAll(text, fillerMark, "")

	text = collapseRepeats(text)

	text = multiSpaceRE.ReplaceAllString(text, " ")
	text = spaceBeforePunctRE.ReplaceAllString(text, "$1")
	text = missingSpaceRE.ReplaceAllString(text, "$1 $2")

	text = sentenceStartRE.ReplaceAllStringFunc(text, func(m string) string {
		return m[:len(m)-1] + strings.ToUpper(m[len(m)-1:])
	})

	text = strings.TrimSpace(text)
	return upperFirst(text)
}

// dropStrandedCommas removes the comma a filler leaves behind when nothing but
// the start of the text or other punctuation precedes it, so "um, yes" loses
// its comma while "we went, um, home" keeps one. Commas in the speaker's own
// text are never touched.
func dropStrandedCommas(text string) string {
	for {
		next := strandedCommaRE.ReplaceAllString(text, "$1$2")
		if next == text {
			return text
		}
		text = next
	}
}

// collapseRepeats drops words that repeat the preceding word (case-insensitive)
// when only whitespace separates them, so "the the the cat" becomes "the cat".
func collapseRepeats(text string) string {
	locs := wordRE.FindAllStringIndex(text, -1)
	if len(locs) < 2 {
		return text
	}
	var sb strings.Builder
	sb.Grow(len(text))
	written := 0
	kept := locs[0]
	lastEnd := locs[0][1]
	for _, cur := range locs[1:] {
		gap := text[lastEnd:cur[0]]
		if isSpace(gap) && strings.EqualFold(text[kept[0]:kept[1]], text[cur[0]:cur[1]]) {
			sb.WriteString(text[written:lastEnd])
			written = cur[1]
		} else {
			kept = cur
		}
		lastEnd = cur[1]
	}
	sb.WriteString(text[written:])
	return sb.String()
}

func isSpace(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
