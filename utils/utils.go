package utils

import (
	"crypto/rand"
	"math"
	"math/big"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"
)

// GetUUID returns a new random id for documents.
func GetUUID() string {
	return uuid.NewString()
}

// Session codes avoid characters that are easy to misread at a counter.
var sessionRunes = []rune("ABCDEFGHJKLMNPQRSTUVWXYZ23456789")

// GenerateSessionCode returns a random n-character scan session code.
func GenerateSessionCode(n int) string {
	b := make([]rune, n)
	max := big.NewInt(int64(len(sessionRunes)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			idx = big.NewInt(int64(i % len(sessionRunes)))
		}
		b[i] = sessionRunes[idx.Int64()]
	}
	return string(b)
}

// RoundMoney rounds to paise.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

func SanitizeFilename(name string) string {
	re := regexp.MustCompile(`[^\w.\-]`)
	clean := re.ReplaceAllString(filepath.Base(name), "_")
	if clean == "" {
		return "file"
	}
	return clean
}
