// Package photostore holds the bytes of hoarding images. Records only keep
// the storage key returned by Save.
package photostore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Get and Delete when no file exists for the key.
var ErrNotFound = errors.New("image not found")

type PhotoStore interface {
	// Save writes r under the hoarding's namespace and returns its storage key.
	Save(ctx context.Context, hoardingID int64, mimeType string, r io.Reader) (storageKey string, err error)
	Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, storageKey string) error
}

// ExtForMIME returns the file extension stored images of mimeType get.
func ExtForMIME(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

// MIMEForExt is the inverse of ExtForMIME.
func MIMEForExt(ext string) string {
	switch ext {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
