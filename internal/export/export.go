// Package export writes acquired images to user-chosen locations.
package export

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vbonduro/arogya/internal/domain"
)

// Write saves img to target and returns the path written. When target is an
// existing directory the file is named "<origin>_<unixnano><ext>" inside it.
// A partially written file is removed.
func Write(img *domain.AcquiredImage, target string) (string, error) {
	if img == nil {
		return "", domain.ErrNoImage
	}

	path := target
	if fi, err := os.Stat(target); err == nil && fi.IsDir() {
		name := fmt.Sprintf("%s_%d%s", img.Origin, img.CapturedAt.UnixNano(), ExtFor(img.MIMEType))
		path = filepath.Join(target, name)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(f, bytes.NewReader(img.Data)); err != nil {
		if cerr := f.Close(); cerr != nil {
			slog.Error("failed to close file after write error", "error", cerr)
		}
		if rerr := os.Remove(path); rerr != nil {
			slog.Error("failed to remove file after write error", "error", rerr)
		}
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		if rerr := os.Remove(path); rerr != nil {
			slog.Error("failed to remove file after close error", "error", rerr)
		}
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	return path, nil
}

// ExtFor returns the file extension for an image MIME type.
func ExtFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	default:
		return ".jpg"
	}
}
