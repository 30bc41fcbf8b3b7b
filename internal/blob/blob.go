// Package blob stages raw receipt uploads in object storage.
package blob

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Stager stores an uploaded file and returns the key it was stored under.
type Stager interface {
	Stage(ctx context.Context, userID, filename, contentType string, data []byte) (string, error)
}

// ObjectKey builds receipts/{user}/{yyyy}/{mm}/{uuid}{ext} for an upload.
func ObjectKey(userID, filename string, now time.Time) string {
	return fmt.Sprintf("receipts/%s/%04d/%02d/%s%s",
		sanitizeSegment(userID), now.Year(), int(now.Month()), uuid.New().String(), extensionFromName(filename))
}

// sanitizeSegment keeps a user id from escaping its path segment.
func sanitizeSegment(s string) string {
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", "*", "", "?", "", "\"", "", "<", "", ">", "", "|", "", "..", "")
	result := replacer.Replace(strings.TrimSpace(s))
	if result == "" {
		result = "anonymous"
	}
	if len(result) > 128 {
		result = result[:128]
	}
	return result
}

// extensionFromName returns a short lower-case extension, or ".bin".
func extensionFromName(name string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(name, "\\", "/")))
	if ext == "" || len(ext) > 6 {
		return ".bin"
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ".bin"
		}
	}
	return ext
}
