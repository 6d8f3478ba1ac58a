package attendance

import (
	"errors"
	"fmt"
)

// Kind classifies a submission failure by the pipeline stage that produced
// it. Callers map kinds to transport-level responses in one place.
type Kind string

const (
	KindInvalidRequest   Kind = "invalid_request"
	KindStorage          Kind = "storage_error"
	KindMatchService     Kind = "match_service_error"
	KindPersist          Kind = "persist_error"
	KindReferenceMissing Kind = "reference_image_missing"
)

// Error tags an underlying failure with its kind and the stage it came from.
type Error struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Stage)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or "" when err carries no kind.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}
