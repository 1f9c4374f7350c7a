// Package whispercpp transcribes audio locally: ffmpeg converts the input to
// 16 kHz mono PCM, then whisper.cpp writes a JSON transcript.
package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/config"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/runner"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/stt"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/transcript"
)

const (
	StagePreprocessing = "preprocessing"
	StageTranscribing  = "transcribing"
	StageParsing       = "parsing"
)

var _ stt.Transcriber = (*Pipeline)(nil)

// Pipeline runs ffmpeg and whisper.cpp through a runner.Runner.
type Pipeline struct {
	log         *slog.Logger
	run         runner.Runner
	ffmpegPath  string
	whisperPath string
	modelPath   string
	threads     int
	cpuOnly     bool
	language    string
	mkdirTemp   func(dir, pattern string) (string, error)
	removeAll   func(path string) error
	readFile    func(name string) ([]byte, error)
	stat        func(name string) (os.FileInfo, error)
}

// New builds the pipeline. The model file is <modelDir>/ggml-<modelSize>.bin.
// A nil run uses os/exec.
func New(log *slog.Logger, cfg config.TranscriptionConfig, run runner.Runner) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	if run == nil {
		run = runner.Exec{}
	}
	return &Pipeline{
		log:         log,
		run:         run,
		ffmpegPath:  cfg.WhisperCPP.FFmpeg,
		whisperPath: cfg.WhisperCPP.Binary,
		modelPath:   ModelPath(cfg.WhisperCPP.ModelDir, cfg.ModelSize),
		threads:     cfg.WhisperCPP.Threads,
		cpuOnly:     strings.EqualFold(cfg.Device, "cpu"),
		language:    cfg.Language,
		mkdirTemp:   os.MkdirTemp,
		removeAll:   os.RemoveAll,
		readFile:    os.ReadFile,
		stat:        os.Stat,
	}
}

// ModelPath maps a model size such as "base" or "large-v3" to its ggml file.
func ModelPath(dir, size string) string {
	size = strings.TrimSpace(size)
	if size == "" {
		size = "base"
	}
	if strings.HasSuffix(size, ".bin") {
		return filepath.Join(dir, size)
	}
	return filepath.Join(dir, "ggml-"+size+".bin")
}

// Transcribe converts audioPath and runs whisper.cpp on the result. A
// non-empty language overrides the configured one.
func (p *Pipeline) Transcribe(ctx context.Context, audioPath, language string) (*transcript.Result, error) {
	if err := stt.CheckAudio(audioPath); err != nil {
		return nil, err
	}
	if _, err := p.stat(p.modelPath); err != nil {
		return nil, &runner.Error{Stage: StageTranscribing, Message: "whisper model not found: " + p.modelPath, Err: err}
	}
	lang := stt.NormalizeLanguage(language)
	if lang == "" {
		lang = stt.NormalizeLanguage(p.language)
	}

	tempDir, err := p.mkdirTemp("", "vidsage-stt-*")
	if err != nil {
		return nil, &runner.Error{Stage: StagePreprocessing, Message: "failed to create temporary workspace", Err: err}
	}
	defer func() { _ = p.removeAll(tempDir) }()

	wavPath := filepath.Join(tempDir, "audio-16k-mono.wav")
	args := buildFFmpegArgs(audioPath, wavPath)
	res, runErr := p.run.Run(ctx, p.ffmpegPath, args...)
	ffLog := runner.NewLog(p.ffmpegPath, args, res)
	if runErr != nil {
		return nil, &runner.Error{Stage: StagePreprocessing, Message: "ffmpeg audio conversion failed", CommandLog: ffLog, Err: runErr}
	}

	outBase := filepath.Join(tempDir, "transcript")
	wArgs := buildWhisperArgs(p.modelPath, wavPath, outBase, lang, p.threads, p.cpuOnly)
	start := time.Now()
	res, runErr = p.run.Run(ctx, p.whisperPath, wArgs...)
	wLog := runner.NewLog(p.whisperPath, wArgs, res)
	if runErr != nil {
		return nil, &runner.Error{Stage: StageTranscribing, Message: "whisper.cpp transcription failed", CommandLog: wLog, Err: runErr}
	}

	data, err := p.readFile(outBase + ".json")
	if err != nil {
		return nil, &runner.Error{Stage: StageParsing, Message: "whisper.cpp completed but the JSON transcript is missing", CommandLog: wLog, Err: err}
	}
	out, err := parseOutput(data)
	if err != nil {
		return nil, &runner.Error{Stage: StageParsing, Message: "cannot parse whisper.cpp JSON", CommandLog: wLog, Err: err}
	}
	if out.LanguageCode == "" {
		out.LanguageCode = lang
	}
	p.log.Info("audio transcribed", "segments", len(out.Segments), "language", out.LanguageCode, "duration", time.Since(start))
	return out, nil
}

// buildFFmpegArgs builds preprocessing CLI args for mono 16k PCM WAV output.
func buildFFmpegArgs(inputPath, outPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outPath,
	}
}

// buildWhisperArgs builds whisper.cpp args for JSON transcript output.
func buildWhisperArgs(modelPath, audioPath, outBase, language string, threads int, cpuOnly bool) []string {
	args := []string{
		"-m", modelPath,
		"-f", audioPath,
		"-of", outBase,
		"-oj",
	}
	if language != "" {
		args = append(args, "-l", language)
	} else {
		args = append(args, "-l", "auto")
	}
	if threads > 0 {
		args = append(args, "-t", strconv.Itoa(threads))
	}
	if cpuOnly {
		args = append(args, "-ng")
	}
	return args
}

type whisperJSON struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func parseOutput(data []byte) (*transcript.Result, error) {
	var wj whisperJSON
	if err := json.Unmarshal(data, &wj); err != nil {
		return nil, err
	}
	res := &transcript.Result{LanguageCode: wj.Result.Language}
	for _, seg := range wj.Transcription {
		res.Segments = append(res.Segments, transcript.Segment{
			Start: float64(seg.Offsets.From) / 1000,
			End:   float64(seg.Offsets.To) / 1000,
			Text:  seg.Text,
		})
	}
	res = stt.Finish(res)
	if len(res.Segments) == 0 {
		return nil, fmt.Errorf("transcript has no speech segments")
	}
	return res, nil
}
