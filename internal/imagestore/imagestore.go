package imagestore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get when no object lives at the key.
var ErrNotFound = errors.New("imagestore: object not found")

// Store puts and retrieves binary images by key and constructs the public
// retrieval URL for a key.
type Store interface {
	// Put writes data under key, overwriting any existing object, and
	// returns the public URL of the stored object.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Get fetches the object stored under key.
	Get(ctx context.Context, key string) ([]byte, error)
	// URL returns the public retrieval URL for key without touching the store.
	URL(key string) string
}

// ReferenceKey is the deterministic key of a student's enrollment photo.
// Re-enrollment overwrites it, so at most one reference image is live.
func ReferenceKey(studentID string) string {
	return "students/" + studentID + ".jpg"
}

// SubmissionKey scopes a submitted attendance photo to the student and the
// submission time, so submissions are never overwritten.
func SubmissionKey(studentID string, at time.Time) string {
	return fmt.Sprintf("attendance_photos/%s_%d.jpg", studentID, at.Unix())
}
