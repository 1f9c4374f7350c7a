package storage

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestUploader_SaveWav(t *testing.T) {
	tmp := t.TempDir()
	up := NewUploader(tmp, 10*1024*1024)

	payload := bytes.Repeat([]byte{0x52}, 2*1024*1024+17)
	res, err := up.Save("lecture.WAV", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	defer func() { _ = res.Cleanup() }()

	if filepath.Dir(res.FilePath) != filepath.Join(tmp, "uploads") {
		t.Fatalf("unexpected dir: %s", res.FilePath)
	}
	if filepath.Ext(res.FilePath) != ".wav" {
		t.Fatalf("extension not normalized: %s", res.FilePath)
	}
	if res.SizeBytes != int64(len(payload)) {
		t.Fatalf("size = %d", res.SizeBytes)
	}
	if res.FileSizeMB != 2 {
		t.Fatalf("size mb = %v", res.FileSizeMB)
	}
	got, err := os.ReadFile(res.FilePath)
	if err != nil {
		t.Fatalf("read stored: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("stored content differs")
	}

	if err := res.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := os.Stat(res.FilePath); !os.IsNotExist(err) {
		t.Fatalf("file should be removed after cleanup")
	}
}

func TestUploader_RejectsExtension(t *testing.T) {
	up := NewUploader(t.TempDir(), 0)
	for _, name := range []string{"clip.mp4", "notes.txt", "noext"} {
		if _, err := up.Save(name, strings.NewReader("x")); !errors.Is(err, ErrUnsupportedType) {
			t.Fatalf("%s: expected ErrUnsupportedType, got %v", name, err)
		}
	}
}

func TestUploader_AcceptsAllAudioTypes(t *testing.T) {
	up := NewUploader(t.TempDir(), 0)
	for _, ext := range AllowedExtensions() {
		res, err := up.Save("a"+ext, strings.NewReader("data"))
		if err != nil {
			t.Fatalf("%s: %v", ext, err)
		}
		_ = res.Cleanup()
	}
}

func TestUploader_TooLargeRemovesPartialFile(t *testing.T) {
	tmp := t.TempDir()
	up := NewUploader(tmp, 1024)

	_, err := up.Save("big.mp3", bytes.NewReader(make([]byte, 4096)))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	entries, _ := os.ReadDir(filepath.Join(tmp, "uploads"))
	if len(entries) != 0 {
		t.Fatalf("partial file left behind: %d entries", len(entries))
	}
}

func TestUploader_ExactLimitAccepted(t *testing.T) {
	up := NewUploader(t.TempDir(), 1024)
	res, err := up.Save("ok.flac", bytes.NewReader(make([]byte, 1024)))
	if err != nil {
		t.Fatalf("Save at limit: %v", err)
	}
	_ = res.Cleanup()
}

type failingReader struct{ n int }

func (f *failingReader) Read(p []byte) (int, error) {
	if f.n == 0 {
		return 0, io.ErrUnexpectedEOF
	}
	f.n--
	return copy(p, "abc"), nil
}

func TestUploader_ReadErrorCleansUp(t *testing.T) {
	tmp := t.TempDir()
	up := NewUploader(tmp, 0)
	if _, err := up.Save("x.ogg", &failingReader{n: 2}); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected read error, got %v", err)
	}
	entries, _ := os.ReadDir(filepath.Join(tmp, "uploads"))
	if len(entries) != 0 {
		t.Fatalf("partial file left behind")
	}
}

func TestUploader_NoFile(t *testing.T) {
	up := NewUploader(t.TempDir(), 0)
	if _, err := up.Save("", strings.NewReader("x")); !errors.Is(err, ErrNoFile) {
		t.Fatalf("expected ErrNoFile, got %v", err)
	}
}
