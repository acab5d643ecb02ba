package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// MaxUploadBytes is the largest input accepted by LoadFile and the HTTP front end.
const MaxUploadBytes = 10 << 20

// MaxPixels bounds width*height so a small compressed file cannot expand
// into a huge pixel buffer.
const MaxPixels = 40_000_000

// SupportedImageExtensions lists the file extensions accepted for analysis.
var SupportedImageExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

var mimeAliases = map[string]string{
	"image/jpeg":  "image/jpeg",
	"image/jpg":   "image/jpeg",
	"image/pjpeg": "image/jpeg",
	"image/png":   "image/png",
	"image/webp":  "image/webp",
}

// IsSupportedImage reports whether the path has a supported image extension.
func IsSupportedImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedImageExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// MimeTypeFromPath maps a file extension to its MIME type, or "" when unknown.
func MimeTypeFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	}
	return ""
}

// NormalizeMimeType strips parameters, lower-cases and resolves aliases.
// The second return value is false for unsupported types.
func NormalizeMimeType(mimeType string) (string, bool) {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	canonical, ok := mimeAliases[mt]
	return canonical, ok
}

// Decode turns raw JPEG, PNG or WebP bytes into a PixelBuffer. An empty
// mimeType is sniffed from the content.
func Decode(data []byte, mimeType string) (*PixelBuffer, error) {
	if len(data) == 0 {
		return nil, &DecodeError{MimeType: mimeType, Err: errors.New("empty input")}
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	canonical, ok := NormalizeMimeType(mimeType)
	if !ok {
		return nil, &DecodeError{MimeType: mimeType, Err: errors.New("unsupported format")}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{MimeType: canonical, Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, &DecodeError{MimeType: canonical, Err: errors.New("image has no pixels")}
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, &DecodeError{MimeType: canonical, Err: fmt.Errorf("%dx%d: %w", cfg.Width, cfg.Height, ErrTooManyPixels)}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{MimeType: canonical, Err: err}
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, &DecodeError{MimeType: canonical, Err: errors.New("image has no pixels")}
	}
	return FromImage(img), nil
}

// LoadFile reads an image from disk, enforcing MaxUploadBytes, and returns
// its bytes together with the MIME type derived from the extension.
func LoadFile(path string) ([]byte, string, error) {
	if path == "" {
		return nil, "", errors.New("empty path")
	}
	if !IsSupportedImage(path) {
		return nil, "", &DecodeError{Err: fmt.Errorf("unsupported format: %s", filepath.Ext(path))}
	}

	f, err := os.Open(path) //nolint:gosec // G304: reading a user-provided image path is expected
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) > MaxUploadBytes {
		return nil, "", fmt.Errorf("%s: %w", path, ErrTooLarge)
	}
	return data, MimeTypeFromPath(path), nil
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Bounds().Min == (image.Point{}) && n.Stride == n.Bounds().Dx()*4 {
		return n
	}
	return imaging.Clone(img)
}
