package util

import (
	"regexp"
	"testing"
)

func TestNewHexID_Format(t *testing.T) {
	id := NewHexID()
	if !regexp.MustCompile(`^[0-9a-f]{32}$`).MatchString(id) {
		t.Fatalf("NewHexID %q not 32 hex chars", id)
	}
	if NewHexID() == id {
		t.Fatalf("NewHexID returned the same value twice")
	}
}

func TestHumanSize(t *testing.T) {
	cases := map[int64]string{
		0:                      "0.00 B",
		512:                    "512.00 B",
		2048:                   "2.00 KB",
		3 * 1024 * 1024:        "3.00 MB",
		5 * 1024 * 1024 * 1024: "5.00 GB",
	}
	for in, want := range cases {
		if got := HumanSize(in); got != want {
			t.Fatalf("HumanSize(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestMegaBytes(t *testing.T) {
	if got := MegaBytes(1024 * 1024 * 3 / 2); got != 1.5 {
		t.Fatalf("MegaBytes = %v, want 1.5", got)
	}
}
