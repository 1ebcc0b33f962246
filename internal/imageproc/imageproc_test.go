package imageproc

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestProcessValidImages(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		mime   string
		width  int
		height int
	}{
		{"png", encodePNG(t, 200, 150), "image/png", 200, 150},
		{"jpeg", encodeJPEG(t, 320, 240), "image/jpeg", 320, 240},
		{"jpg alias", encodeJPEG(t, 120, 100), "image/jpg", 120, 100},
		{"min bounds", encodePNG(t, 100, 100), "image/png", 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Process(tt.data, tt.mime)
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if got.Width != tt.width || got.Height != tt.height {
				t.Errorf("dimensions = %dx%d, want %dx%d", got.Width, got.Height, tt.width, tt.height)
			}
			if !strings.HasPrefix(got.DataURL, "data:image/jpeg;base64,") {
				t.Errorf("data URL prefix = %q, want image/jpeg data URL", got.DataURL[:30])
			}
			if len(got.Data) == 0 {
				t.Error("normalized bytes are empty")
			}
			// Output must always decode as JPEG regardless of input format.
			if _, err := jpeg.Decode(bytes.NewReader(got.Data)); err != nil {
				t.Errorf("normalized output is not valid JPEG: %v", err)
			}
		})
	}
}

func TestProcessRejections(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		mime    string
		wantErr error
	}{
		{"unsupported mime", encodePNG(t, 200, 200), "image/gif", ErrUnsupportedType},
		{"webp declared", encodePNG(t, 200, 200), "image/webp", ErrUnsupportedType},
		{"empty", nil, "image/png", ErrEmpty},
		{"oversize", make([]byte, MaxFileSize+1), "image/jpeg", ErrTooLarge},
		{"corrupt", []byte("definitely not an image"), "image/png", ErrCorrupt},
		{"too small", encodePNG(t, 50, 50), "image/png", ErrDimensions},
		{"too narrow", encodePNG(t, 80, 400), "image/png", ErrDimensions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Process(tt.data, tt.mime)
			if got != nil {
				t.Fatal("Process() returned a result alongside an expected failure")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Process() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAllowedMimeType(t *testing.T) {
	for mime, want := range map[string]bool{
		"image/jpeg": true,
		"image/jpg":  true,
		"image/png":  true,
		"image/gif":  false,
		"text/plain": false,
		"":           false,
	} {
		if got := AllowedMimeType(mime); got != want {
			t.Errorf("AllowedMimeType(%q) = %v, want %v", mime, got, want)
		}
	}
}
