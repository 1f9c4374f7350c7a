package cleaner

import (
	"regexp"
	"strings"
)

// Correction maps a known mis-transcription to its canonical form.
type Correction struct {
	From string
	To   string
}

// DefaultCorrections are applied in order before any configured extras.
var DefaultCorrections = []Correction{
	{From: "vid sage", To: "VidSage"},
	{From: "vidsage", To: "VidSage"},
	{From: "fast api", To: "FastAPI"},
	{From: "fastapi", To: "FastAPI"},
	{From: "smith kumar", To: "Sumit Kumar"},
	{From: "jyothpur", To: "Jodhpur"},
}

// Dictionary applies an ordered list of case-insensitive literal substitutions.
type Dictionary struct {
	rules []dictRule
}

type dictRule struct {
	re *regexp.Regexp
	to string
}

// NewDictionary compiles DefaultCorrections followed by extra.
func NewDictionary(extra ...Correction) *Dictionary {
	all := make([]Correction, 0, len(DefaultCorrections)+len(extra))
	all = append(all, DefaultCorrections...)
	all = append(all, extra...)

	d := &Dictionary{rules: make([]dictRule, 0, len(all))}
	for _, c := range all {
		if strings.TrimSpace(c.From) == "" {
			continue
		}
		d.rules = append(d.rules, dictRule{
			re: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(c.From)),
			to: c.To,
		})
	}
	return d
}

// Apply runs every substitution over the whole text, in order.
func (d *Dictionary) Apply(text string) string {
	for _, r := range d.rules {
		text = r.re.ReplaceAllLiteralString(text, r.to)
	}
	return text
}
