package util

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewHexID returns a random UUIDv4 without dashes, suitable for file names.
func NewHexID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// HumanSize renders a byte count with binary units and two decimals, e.g. "3.25 MB".
func HumanSize(n int64) string {
	size := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if size < 1024 {
			return fmt.Sprintf("%.2f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.2f TB", size)
}

// MegaBytes converts a byte count to MiB rounded to two decimals.
func MegaBytes(n int64) float64 {
	mb := float64(n) / (1024 * 1024)
	return float64(int64(mb*100+0.5)) / 100
}
