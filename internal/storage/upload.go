package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/common"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/util"
)

var (
	ErrUnsupportedType = errors.New("unsupported audio file type")
	ErrTooLarge        = errors.New("file exceeds maximum upload size")
	ErrNoFile          = errors.New("no file provided")
)

var allowedAudioExts = map[string]struct{}{
	".mp3":  {},
	".wav":  {},
	".m4a":  {},
	".aac":  {},
	".ogg":  {},
	".flac": {},
}

// AllowedExtensions lists accepted upload extensions in a stable order.
func AllowedExtensions() []string {
	return []string{".mp3", ".wav", ".m4a", ".aac", ".ogg", ".flac"}
}

// Uploader streams audio uploads to disk under baseDir/uploads.
type Uploader struct {
	baseDir  string
	maxBytes int64
}

// UploadResult describes a stored upload. Cleanup removes the file.
type UploadResult struct {
	FilePath   string
	FileName   string
	SizeBytes  int64
	FileSizeMB float64
	Cleanup    func() error
}

// NewUploader creates an uploader that stores to baseDir/uploads. A
// non-positive maxBytes falls back to the default limit.
func NewUploader(baseDir string, maxBytes int64) *Uploader {
	if maxBytes <= 0 {
		maxBytes = common.DefaultMaxUploadSize
	}
	return &Uploader{baseDir: filepath.Join(baseDir, common.UploadsDirName), maxBytes: maxBytes}
}

// Dir returns the directory uploads are written to.
func (u *Uploader) Dir() string { return u.baseDir }

// Save validates the extension of name and copies src to a fresh file in
// fixed-size chunks, so memory use does not depend on the upload size. When
// the running size passes the limit the partial file is removed and
// ErrTooLarge is returned.
func (u *Uploader) Save(name string, src io.Reader) (*UploadResult, error) {
	if src == nil || strings.TrimSpace(name) == "" {
		return nil, ErrNoFile
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !IsAllowedExtension(ext) {
		return nil, fmt.Errorf("%w: %q (allowed: %s)", ErrUnsupportedType, ext, strings.Join(AllowedExtensions(), ", "))
	}

	if err := os.MkdirAll(u.baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure uploads dir: %w", err)
	}

	filename := util.NewHexID() + ext
	dstPath := filepath.Join(u.baseDir, filename)
	dst, err := os.OpenFile(dstPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}

	written, err := u.copyBounded(dst, src)
	closeErr := dst.Close()
	if err == nil && closeErr != nil {
		err = fmt.Errorf("close upload file: %w", closeErr)
	}
	if err != nil {
		_ = os.Remove(dstPath)
		return nil, err
	}

	return &UploadResult{
		FilePath:   dstPath,
		FileName:   filename,
		SizeBytes:  written,
		FileSizeMB: util.MegaBytes(written),
		Cleanup:    func() error { return os.Remove(dstPath) },
	}, nil
}

func (u *Uploader) copyBounded(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, common.UploadChunkSize)
	var total int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			total += int64(n)
			if total > u.maxBytes {
				return total, fmt.Errorf("%w: limit is %s", ErrTooLarge, util.HumanSize(u.maxBytes))
			}
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return total, fmt.Errorf("write upload: %w", werr)
			}
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, fmt.Errorf("read upload: %w", rerr)
		}
	}
}

// IsAllowedExtension reports whether ext (with leading dot) is an accepted audio type.
func IsAllowedExtension(ext string) bool {
	_, ok := allowedAudioExts[strings.ToLower(ext)]
	return ok
}
