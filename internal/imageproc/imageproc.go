// Package imageproc validates and normalizes uploaded answer photos into
// the canonical inline form sent to vision models.
package imageproc

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"

	"github.com/daringdolphin/chemcheck/internal/model"
)

// MaxFileSize is the largest accepted upload (10 MiB).
const MaxFileSize = 10 * 1024 * 1024

// JPEG quality used for the canonical re-encode.
const jpegQuality = 90

// Accepted pixel dimensions after re-encoding.
const (
	MinDimension = 100
	MaxDimension = 4096
)

// Validation failures. All are user input errors: the caller should not
// retry, the student should fix the upload.
var (
	ErrUnsupportedType = errors.New("unsupported file type: only JPEG and PNG are accepted")
	ErrEmpty           = errors.New("uploaded file is empty")
	ErrTooLarge        = errors.New("file exceeds the 10MB size limit")
	ErrCorrupt         = errors.New("image data is corrupt or unreadable")
	ErrDimensions      = errors.New("image dimensions must be between 100x100 and 4096x4096 pixels")
)

var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

// AllowedMimeType reports whether a declared MIME type is accepted.
func AllowedMimeType(mime string) bool {
	return allowedMimeTypes[mime]
}

// Process validates an upload and produces its normalized form: rotated
// upright per EXIF orientation, re-encoded as JPEG, and wrapped in a data
// URL. It is a pure transform with no side effects.
func Process(raw []byte, declaredMime string) (*model.NormalizedImage, error) {
	if !allowedMimeTypes[declaredMime] {
		return nil, fmt.Errorf("%w (got %s)", ErrUnsupportedType, declaredMime)
	}
	if len(raw) == 0 {
		return nil, ErrEmpty
	}
	if len(raw) > MaxFileSize {
		return nil, ErrTooLarge
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < MinDimension || height < MinDimension || width > MaxDimension || height > MaxDimension {
		return nil, fmt.Errorf("%w (got %dx%d)", ErrDimensions, width, height)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	data := buf.Bytes()
	return &model.NormalizedImage{
		Data:    data,
		DataURL: DataURL(data, "image/jpeg"),
		Width:   width,
		Height:  height,
	}, nil
}

// DataURL builds a self-contained inline representation of image bytes.
func DataURL(data []byte, mimeType string) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
