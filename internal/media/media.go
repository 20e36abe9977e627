// Package media stores uploaded recipe and avatar images on local disk.
package media

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"

	"chefshare/internal/apperror"
)

const (
	// MaxUploadBytes is the largest accepted upload.
	MaxUploadBytes = 2 << 20
	// MaxWidth is the width images are scaled down to.
	MaxWidth = 800
)

var allowedExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
}

// Store writes images under dir and serves them from publicURL.
type Store struct {
	dir       string
	publicURL string
}

// NewStore creates a Store.
func NewStore(dir, publicURL string) *Store {
	return &Store{dir: dir, publicURL: strings.TrimSuffix(publicURL, "/")}
}

// Dir returns the directory images are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Save validates, resizes and writes an image and returns its public URL.
// Files are named by content hash so re-uploads reuse the same file.
func (s *Store) Save(filename string, data []byte) (string, error) {
	extension := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[extension] {
		return "", apperror.Validation("Invalid file type. Only JPEG, JPG, and PNG images are allowed.")
	}
	if len(data) > MaxUploadBytes {
		return "", apperror.Validation("Image is too large. The limit is 2 MB.")
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", apperror.Validation("Could not read the image file.")
	}
	if img.Bounds().Dx() > MaxWidth {
		img = resize.Resize(MaxWidth, 0, img, resize.Lanczos3)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create images directory: %w", err)
	}

	name := imageHash(data) + extension
	out, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	defer out.Close()

	switch extension {
	case ".jpeg", ".jpg":
		err = jpeg.Encode(out, img, &jpeg.Options{Quality: 85})
	case ".png":
		err = png.Encode(out, img)
	}
	if err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	return s.publicURL + "/" + name, nil
}

// imageHash calculates the SHA256 hash of the image data.
func imageHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
