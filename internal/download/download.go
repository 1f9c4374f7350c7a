// Package download extracts the audio track of a video URL with yt-dlp.
package download

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/config"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/runner"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/util"
)

const (
	defaultBinary  = "yt-dlp"
	defaultFormat  = "mp3"
	defaultQuality = "192"
	defaultTimeout = 10 * time.Minute

	stageDownload = "download"
)

// ErrUnsupportedFormat is returned for formats outside AllowedFormats.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// AllowedFormats are the audio containers yt-dlp is asked to produce.
var AllowedFormats = []string{"mp3", "wav", "aac", "m4a"}

// Options selects the output audio.
type Options struct {
	Format  string `json:"output_format"`
	Quality string `json:"quality"`
}

// Result describes a downloaded audio file.
type Result struct {
	VideoID  string  `json:"video_id"`
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
	FilePath string  `json:"file_path"`
	FileSize string  `json:"file_size"`
}

// Downloader runs yt-dlp into a fixed directory.
type Downloader struct {
	log     *slog.Logger
	run     runner.Runner
	binary  string
	dir     string
	format  string
	quality string
	timeout time.Duration
}

// New creates a Downloader. A nil run uses os/exec.
func New(log *slog.Logger, cfg config.DownloadConfig, run runner.Runner) *Downloader {
	if log == nil {
		log = slog.Default()
	}
	if run == nil {
		run = runner.Exec{}
	}
	d := &Downloader{
		log:     log,
		run:     run,
		binary:  cfg.Binary,
		dir:     cfg.Dir,
		format:  cfg.DefaultFormat,
		quality: cfg.DefaultQuality,
		timeout: cfg.Timeout,
	}
	if d.binary == "" {
		d.binary = defaultBinary
	}
	if d.format == "" {
		d.format = defaultFormat
	}
	if d.quality == "" {
		d.quality = defaultQuality
	}
	if d.timeout <= 0 {
		d.timeout = defaultTimeout
	}
	return d
}

// Normalize fills defaults and validates the format.
func (d *Downloader) Normalize(opts Options) (Options, error) {
	opts.Format = strings.ToLower(strings.TrimSpace(opts.Format))
	if opts.Format == "" {
		opts.Format = d.format
	}
	if strings.TrimSpace(opts.Quality) == "" {
		opts.Quality = d.quality
	}
	for _, f := range AllowedFormats {
		if opts.Format == f {
			return opts, nil
		}
	}
	return opts, fmt.Errorf("%w: %q (allowed: %s)", ErrUnsupportedFormat, opts.Format, strings.Join(AllowedFormats, ", "))
}

// Download fetches the best audio stream of url and converts it to opts.Format.
func (d *Downloader) Download(ctx context.Context, url string, opts Options) (*Result, error) {
	opts, err := d.Normalize(opts)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return nil, &runner.Error{Stage: stageDownload, Message: "cannot create download directory", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	args := buildArgs(url, d.dir, opts)
	start := time.Now()
	res, runErr := d.run.Run(ctx, d.binary, args...)
	log := runner.NewLog(d.binary, args, res)
	if runErr != nil {
		return nil, &runner.Error{Stage: stageDownload, Message: "yt-dlp failed", CommandLog: log, Err: runErr}
	}

	info, err := parseInfo(res.Stdout)
	if err != nil {
		return nil, &runner.Error{Stage: stageDownload, Message: "cannot parse yt-dlp metadata", CommandLog: log, Err: err}
	}

	path := filepath.Join(d.dir, info.ID+"."+opts.Format)
	st, err := os.Stat(path)
	if err != nil {
		return nil, &runner.Error{Stage: stageDownload, Message: "yt-dlp finished but audio file is missing", CommandLog: log, Err: err}
	}
	size := util.HumanSize(st.Size())

	d.log.Info("audio downloaded", "video_id", info.ID, "format", opts.Format, "size", size, "duration", time.Since(start))
	return &Result{
		VideoID:  info.ID,
		Title:    info.Title,
		Duration: info.Duration,
		FilePath: path,
		FileSize: size,
	}, nil
}

type videoInfo struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
}

// parseInfo reads the last JSON object yt-dlp printed; warnings may precede it.
func parseInfo(stdout string) (videoInfo, error) {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var info videoInfo
		if err := json.Unmarshal([]byte(line), &info); err != nil {
			return videoInfo{}, err
		}
		if info.ID == "" {
			return videoInfo{}, errors.New("metadata has no id")
		}
		return info, nil
	}
	return videoInfo{}, errors.New("no metadata in yt-dlp output")
}

func buildArgs(url, dir string, opts Options) []string {
	return []string{
		"--format", "bestaudio/best",
		"--extract-audio",
		"--audio-format", opts.Format,
		"--audio-quality", opts.Quality,
		"--output", filepath.Join(dir, "%(id)s.%(ext)s"),
		"--no-playlist",
		"--no-progress",
		"--no-warnings",
		"--dump-json",
		"--no-simulate",
		url,
	}
}
