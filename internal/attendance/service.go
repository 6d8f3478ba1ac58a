package attendance

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"time"

	"github.com/google/uuid"

	"rollcall/internal/facematch"
	"rollcall/internal/imagestore"
	"rollcall/internal/queue"
)

// Record statuses.
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
)

// Record is one persisted attendance decision. Records are immutable once
// written; every submission produces a new one.
type Record struct {
	ID         string    `json:"id"`
	ClassID    string    `json:"classId"`
	StudentID  string    `json:"studentId"`
	ImageURL   string    `json:"image_url"`
	Similarity float64   `json:"similarity"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	VerifiedBy string    `json:"verifiedBy"`
}

// Result is what the caller gets back from a successful submission.
type Result struct {
	Recognized bool
	Similarity float64
	RecordID   string
}

// RecordStore persists attendance records.
type RecordStore interface {
	InsertRecord(ctx context.Context, rec Record) (Record, error)
}

// Publisher emits absence events after a record is durable.
type Publisher interface {
	Publish(ctx context.Context, evt queue.AbsenceEvent) error
}

// Service is the attendance decision engine: it turns one submitted photo
// into at most one persisted record. It holds no per-request state, so
// concurrent submissions need no coordination.
type Service struct {
	images      imagestore.Store
	matcher     facematch.Matcher
	records     RecordStore
	publisher   Publisher
	threshold   float64
	callTimeout time.Duration
	now         func() time.Time
}

// NewService creates an engine. publisher may be nil, in which case absences
// are recorded but nobody is notified.
func NewService(images imagestore.Store, matcher facematch.Matcher, records RecordStore, publisher Publisher, threshold float64, callTimeout time.Duration) *Service {
	if threshold <= 0 {
		threshold = 80
	}
	if callTimeout <= 0 {
		callTimeout = 15 * time.Second
	}
	return &Service{
		images:      images,
		matcher:     matcher,
		records:     records,
		publisher:   publisher,
		threshold:   threshold,
		callTimeout: callTimeout,
		now:         time.Now,
	}
}

// Submit runs the full decision pipeline for one photo: store it, fetch the
// student's reference image, compare, persist the verdict. The record write
// happens only after every prior step succeeded, so a failed submission
// leaves no record behind.
func (s *Service) Submit(ctx context.Context, studentID, classID string, photo []byte) (Result, error) {
	if studentID == "" || classID == "" {
		return Result{}, s.fail(KindInvalidRequest, "validate", errors.New("studentId and classId required"))
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(photo)); err != nil {
		return Result{}, s.fail(KindInvalidRequest, "validate", errors.New("payload is not a decodable image"))
	}

	now := s.now().UTC()

	putCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	imageURL, err := s.images.Put(putCtx, imagestore.SubmissionKey(studentID, now), photo, "image/jpeg")
	if err != nil {
		return Result{}, s.fail(KindStorage, "store photo", err)
	}

	getCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	reference, err := s.images.Get(getCtx, imagestore.ReferenceKey(studentID))
	if err != nil {
		if errors.Is(err, imagestore.ErrNotFound) {
			// No enrolled photo: the request fails rather than silently
			// marking the student absent without a comparison.
			return Result{}, s.fail(KindReferenceMissing, "fetch reference", err)
		}
		return Result{}, s.fail(KindStorage, "fetch reference", err)
	}

	cmpCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	started := time.Now()
	cmp, err := s.matcher.Compare(cmpCtx, reference, photo)
	compareDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		return Result{}, s.fail(KindMatchService, "compare faces", err)
	}

	recognized := cmp.Match && cmp.Similarity >= s.threshold
	status := StatusAbsent
	if recognized {
		status = StatusPresent
	}

	rec := Record{
		ID:         uuid.NewString(),
		ClassID:    classID,
		StudentID:  studentID,
		ImageURL:   imageURL,
		Similarity: cmp.Similarity,
		Status:     status,
		CreatedAt:  now,
		VerifiedBy: s.matcher.Name(),
	}
	stored, err := s.records.InsertRecord(ctx, rec)
	if err != nil {
		// The comparison succeeded but nothing was recorded; the caller
		// must be told so it can resubmit.
		return Result{}, s.fail(KindPersist, "persist record", err)
	}
	decisionsTotal.WithLabelValues(status).Inc()

	if status == StatusAbsent && s.publisher != nil {
		evt := queue.AbsenceEvent{
			RecordID:   stored.ID,
			StudentID:  studentID,
			ClassID:    classID,
			Similarity: cmp.Similarity,
		}
		if err := s.publisher.Publish(ctx, evt); err != nil {
			// Fire-and-forget: the record is already durable.
			log.Printf("absence publish failed for record %s: %v", stored.ID, err)
		}
	}

	return Result{Recognized: recognized, Similarity: cmp.Similarity, RecordID: stored.ID}, nil
}

func (s *Service) fail(kind Kind, stage string, err error) error {
	failuresTotal.WithLabelValues(string(kind)).Inc()
	return &Error{Kind: kind, Stage: stage, Err: err}
}
