package export

import (
	"context"
	"fmt"
	"strings"
)

// Markdown writes the cleaned transcript with a short metadata header.
type Markdown struct {
	w fileWriter
}

var _ Exporter = (*Markdown)(nil)

func NewMarkdown(dir, filenameTemplate string) (*Markdown, error) {
	w, err := newFileWriter(dir, filenameTemplate)
	if err != nil {
		return nil, err
	}
	return &Markdown{w: w}, nil
}

func (m *Markdown) Name() string { return FormatMarkdown }

func (m *Markdown) Export(_ context.Context, req Request) (Output, error) {
	path, err := m.w.write(req, ".md", []byte(RenderMarkdown(req)))
	if err != nil {
		return Output{}, err
	}
	return Output{Exporter: FormatMarkdown, Path: path}, nil
}

// RenderMarkdown formats req as a Markdown document.
func RenderMarkdown(req Request) string {
	var sb strings.Builder
	title := req.JobID
	if req.SourceFile != "" {
		title = req.SourceFile
	}
	fmt.Fprintf(&sb, "# Transcript: %s\n\n", title)
	fmt.Fprintf(&sb, "- Job: `%s`\n", req.JobID)
	if req.Language != "" {
		fmt.Fprintf(&sb, "- Language: %s\n", req.Language)
	}
	if len(req.CleaningSteps) > 0 {
		fmt.Fprintf(&sb, "- Cleaning: %s\n", strings.Join(req.CleaningSteps, ", "))
	}
	if !req.Timestamp.IsZero() {
		fmt.Fprintf(&sb, "- Completed: %s\n", req.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	sb.WriteString("\n")
	sb.WriteString(strings.TrimSpace(req.CleanedText))
	sb.WriteString("\n")
	return sb.String()
}
