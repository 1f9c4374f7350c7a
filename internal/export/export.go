// Package export writes finished job transcripts to disk in one or more
// formats.
package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/transcript"
)

// Exporter writes one representation of a finished transcript.
type Exporter interface {
	Name() string
	Export(ctx context.Context, req Request) (Output, error)
}

// Request carries what an exporter needs.
type Request struct {
	JobID         string
	SourceFile    string
	Language      string
	RawText       string
	CleanedText   string
	CleaningSteps []string
	Segments      []transcript.Segment
	Timestamp     time.Time
}

// Output describes where the export landed.
type Output struct {
	Exporter string
	Path     string
}

// Registry holds initialized exporters by name.
type Registry struct {
	log    *slog.Logger
	byName map[string]Exporter
}

func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{log: log, byName: make(map[string]Exporter)}
}

func (r *Registry) Add(e Exporter) {
	r.byName[e.Name()] = e
}

func (r *Registry) Get(name string) (Exporter, bool) {
	e, ok := r.byName[name]
	return e, ok
}

// Names returns the registered exporter names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for k := range r.byName {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ExportAll runs every exporter. Failures are logged and skipped.
func (r *Registry) ExportAll(ctx context.Context, req Request) []Output {
	if r == nil {
		return nil
	}
	var outs []Output
	for _, name := range r.Names() {
		out, err := r.byName[name].Export(ctx, req)
		if err != nil {
			r.log.Warn("export failed", "exporter", name, "job_id", req.JobID, "err", err)
			continue
		}
		r.log.Info("transcript exported", "exporter", name, "job_id", req.JobID, "path", out.Path)
		outs = append(outs, out)
	}
	return outs
}

// FromConfig builds a registry with the named formats writing into dir.
func FromConfig(log *slog.Logger, formats []string, dir, filenameTemplate string) (*Registry, error) {
	reg := NewRegistry(log)
	for _, f := range formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case FormatMarkdown:
			e, err := NewMarkdown(dir, filenameTemplate)
			if err != nil {
				return nil, err
			}
			reg.Add(e)
		case FormatSRT:
			e, err := NewSRT(dir, filenameTemplate)
			if err != nil {
				return nil, err
			}
			reg.Add(e)
		default:
			return nil, fmt.Errorf("unknown export format %q", f)
		}
	}
	return reg, nil
}

const (
	FormatMarkdown = "markdown"
	FormatSRT      = "srt"

	defaultFilenameTemplate = `{{ .Timestamp.Format "20060102-150405" }}-{{ .JobID }}`
)

// fileWriter renders a base name from a template and writes files under dir.
type fileWriter struct {
	dir string
	tpl *template.Template
}

func newFileWriter(dir, tplStr string) (fileWriter, error) {
	tplStr = strings.TrimSpace(tplStr)
	if tplStr == "" {
		tplStr = defaultFilenameTemplate
	}
	tpl, err := template.New("filename").Parse(tplStr)
	if err != nil {
		return fileWriter{}, fmt.Errorf("parse filename template: %w", err)
	}
	return fileWriter{dir: dir, tpl: tpl}, nil
}

func (w fileWriter) baseName(req Request) (string, error) {
	var buf bytes.Buffer
	data := map[string]any{
		"JobID":      req.JobID,
		"Timestamp":  req.Timestamp,
		"Language":   req.Language,
		"SourceFile": strings.TrimSuffix(filepath.Base(req.SourceFile), filepath.Ext(req.SourceFile)),
	}
	if err := w.tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render filename: %w", err)
	}
	name := sanitizeName(strings.TrimSpace(buf.String()))
	if name == "" {
		name = req.JobID
	}
	return name, nil
}

func (w fileWriter) write(req Request, ext string, content []byte) (string, error) {
	base, err := w.baseName(req)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return "", fmt.Errorf("ensure dir: %w", err)
	}
	full := filepath.Join(w.dir, base+ext)
	if err := os.WriteFile(full, content, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return full, nil
}

// sanitizeName keeps rendered names inside the export directory.
func sanitizeName(s string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	return r.Replace(s)
}
