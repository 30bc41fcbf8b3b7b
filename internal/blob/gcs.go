package blob

import (
	"context"
	"fmt"
	"time"

	gcsstorage "cloud.google.com/go/storage"
)

// GCSStager writes uploads to a Google Cloud Storage bucket.
type GCSStager struct {
	bucket *gcsstorage.BucketHandle
	now    func() time.Time
}

// NewGCSStager stages into bucket.
func NewGCSStager(bucket *gcsstorage.BucketHandle) *GCSStager {
	return &GCSStager{bucket: bucket, now: time.Now}
}

// Stage writes data as a new object. The object is only committed when the
// writer closes cleanly.
func (s *GCSStager) Stage(ctx context.Context, userID, filename, contentType string, data []byte) (string, error) {
	key := ObjectKey(userID, filename, s.now().UTC())

	w := s.bucket.Object(key).If(gcsstorage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{
		"user_id":       userID,
		"original_name": filename,
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("write receipt object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("commit receipt object %s: %w", key, err)
	}
	return key, nil
}
