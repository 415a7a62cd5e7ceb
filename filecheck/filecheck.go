// Package filecheck inspects uploaded files before they are stored.
package filecheck

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

var (
	ErrTooLarge    = errors.New("filecheck: file too large")
	ErrUnsupported = errors.New("filecheck: unsupported file type")
	ErrEmpty       = errors.New("filecheck: empty file")
)

// ImageTypes are the content types accepted for product pictures.
var ImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// File is an upload read fully into memory.
type File struct {
	Data        []byte
	ContentType string
	Hash        string
}

func (f *File) Reader() io.Reader {
	return bytes.NewReader(f.Data)
}

// Inspect reads at most maxBytes from src, sniffs its content type and
// hashes it. allowed may be nil to accept any type.
func Inspect(src io.Reader, maxBytes int64, allowed map[string]bool) (*File, error) {
	data, err := io.ReadAll(io.LimitReader(src, maxBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "read upload")
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrTooLarge
	}

	ct := http.DetectContentType(data)
	if allowed != nil && !allowed[ct] {
		return nil, ErrUnsupported
	}
	return &File{Data: data, ContentType: ct, Hash: ComputeHash(data)}, nil
}

// ComputeHash returns the hex SHA-256 of data.
func ComputeHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
