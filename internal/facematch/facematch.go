// Package facematch abstracts the remote face-comparison service used to
// decide whether a submitted attendance photo shows the enrolled student.
package facematch

import "context"

// Comparison is the outcome of comparing a reference image against a
// submitted photo. Similarity is a 0-100 confidence score.
type Comparison struct {
	Match      bool
	Similarity float64
}

// Matcher compares two face images. Name identifies the matcher in persisted
// records (the verifiedBy field).
type Matcher interface {
	Compare(ctx context.Context, source, target []byte) (Comparison, error)
	Name() string
}
