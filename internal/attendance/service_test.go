package attendance

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"
	"time"

	"rollcall/internal/facematch"
	"rollcall/internal/imagestore"
	"rollcall/internal/queue"
)

type fakeImages struct {
	objects map[string][]byte
	putKeys []string
	putErr  error
	getErr  error
}

func newFakeImages() *fakeImages {
	return &fakeImages{objects: map[string][]byte{}}
}

func (f *fakeImages) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	f.objects[key] = data
	f.putKeys = append(f.putKeys, key)
	return "https://img.test/" + key, nil
}

func (f *fakeImages) Get(_ context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, imagestore.ErrNotFound
	}
	return data, nil
}

func (f *fakeImages) URL(key string) string { return "https://img.test/" + key }

type fakeMatcher struct {
	cmp        facematch.Comparison
	err        error
	lastSource []byte
	calls      int
}

func (f *fakeMatcher) Compare(_ context.Context, source, _ []byte) (facematch.Comparison, error) {
	f.calls++
	f.lastSource = source
	if f.err != nil {
		return facematch.Comparison{}, f.err
	}
	return f.cmp, nil
}

func (f *fakeMatcher) Name() string { return "fake-matcher" }

type fakeRecords struct {
	inserted []Record
	err      error
}

func (f *fakeRecords) InsertRecord(_ context.Context, rec Record) (Record, error) {
	if f.err != nil {
		return Record{}, f.err
	}
	f.inserted = append(f.inserted, rec)
	return rec, nil
}

type fakePublisher struct {
	events []queue.AbsenceEvent
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, evt queue.AbsenceEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, evt)
	return nil
}

func testPhoto(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

type fixture struct {
	images  *fakeImages
	matcher *fakeMatcher
	records *fakeRecords
	pub     *fakePublisher
	svc     *Service
}

func newFixture(cmp facematch.Comparison) *fixture {
	f := &fixture{
		images:  newFakeImages(),
		matcher: &fakeMatcher{cmp: cmp},
		records: &fakeRecords{},
		pub:     &fakePublisher{},
	}
	f.svc = NewService(f.images, f.matcher, f.records, f.pub, 80, time.Second)
	f.images.objects[imagestore.ReferenceKey("s1")] = []byte("reference-v1")
	return f
}

func TestSubmit_PresentAboveThreshold(t *testing.T) {
	f := newFixture(facematch.Comparison{Match: true, Similarity: 92})

	res, err := f.svc.Submit(context.Background(), "s1", "c1", testPhoto(t))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if !res.Recognized || res.Similarity != 92 {
		t.Fatalf("got recognized=%v similarity=%v, want true/92", res.Recognized, res.Similarity)
	}
	if len(f.records.inserted) != 1 {
		t.Fatalf("want exactly one record, got %d", len(f.records.inserted))
	}
	rec := f.records.inserted[0]
	if rec.Status != StatusPresent {
		t.Errorf("status = %q, want %q", rec.Status, StatusPresent)
	}
	if rec.Similarity != 92 || rec.ClassID != "c1" || rec.StudentID != "s1" {
		t.Errorf("record fields wrong: %+v", rec)
	}
	if rec.VerifiedBy != "fake-matcher" {
		t.Errorf("verifiedBy = %q, want matcher name", rec.VerifiedBy)
	}
	if rec.ID == "" || res.RecordID != rec.ID {
		t.Errorf("record id not returned: res=%q rec=%q", res.RecordID, rec.ID)
	}
	if len(f.pub.events) != 0 {
		t.Errorf("present submission published %d absence events", len(f.pub.events))
	}
}

func TestSubmit_AbsentBelowThreshold(t *testing.T) {
	f := newFixture(facematch.Comparison{Match: false, Similarity: 45})

	res, err := f.svc.Submit(context.Background(), "s1", "c1", testPhoto(t))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if res.Recognized || res.Similarity != 45 {
		t.Fatalf("got recognized=%v similarity=%v, want false/45", res.Recognized, res.Similarity)
	}
	if len(f.records.inserted) != 1 || f.records.inserted[0].Status != StatusAbsent {
		t.Fatalf("want one absent record, got %+v", f.records.inserted)
	}
	if len(f.pub.events) != 1 {
		t.Fatalf("want one absence event, got %d", len(f.pub.events))
	}
	evt := f.pub.events[0]
	if evt.StudentID != "s1" || evt.ClassID != "c1" || evt.RecordID != res.RecordID {
		t.Errorf("absence event wrong: %+v", evt)
	}
}

func TestSubmit_MatchAboveThresholdRequired(t *testing.T) {
	// A matcher claiming a match below the threshold still counts as absent.
	f := newFixture(facematch.Comparison{Match: true, Similarity: 60})

	res, err := f.svc.Submit(context.Background(), "s1", "c1", testPhoto(t))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if res.Recognized {
		t.Error("similarity 60 under threshold 80 must not be recognized")
	}
	if f.records.inserted[0].Status != StatusAbsent {
		t.Errorf("status = %q, want absent", f.records.inserted[0].Status)
	}
}

func TestSubmit_InvalidInput(t *testing.T) {
	f := newFixture(facematch.Comparison{Match: true, Similarity: 92})
	photo := testPhoto(t)

	cases := []struct {
		name      string
		studentID string
		classID   string
		photo     []byte
	}{
		{"missing student", "", "c1", photo},
		{"missing class", "s1", "", photo},
		{"garbage payload", "s1", "c1", []byte("not an image")},
		{"empty payload", "s1", "c1", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Submit(context.Background(), tc.studentID, tc.classID, tc.photo)
			if KindOf(err) != KindInvalidRequest {
				t.Fatalf("kind = %q, want %q", KindOf(err), KindInvalidRequest)
			}
		})
	}
	// Validation failures must precede every external call.
	if len(f.images.putKeys) != 0 || f.matcher.calls != 0 || len(f.records.inserted) != 0 {
		t.Errorf("invalid requests reached adapters: puts=%v compares=%d records=%d",
			f.images.putKeys, f.matcher.calls, len(f.records.inserted))
	}
}

func TestSubmit_StorageFailureWritesNoRecord(t *testing.T) {
	f := newFixture(facematch.Comparison{Match: true, Similarity: 92})
	f.images.putErr = errors.New("bucket unreachable")

	_, err := f.svc.Submit(context.Background(), "s1", "c1", testPhoto(t))
	if KindOf(err) != KindStorage {
		t.Fatalf("kind = %q, want %q", KindOf(err), KindStorage)
	}
	if len(f.records.inserted) != 0 {
		t.Error("record written despite storage failure")
	}
}

func TestSubmit_ReferenceMissingFailsRequest(t *testing.T) {
	f := newFixture(facematch.Comparison{Match: true, Similarity: 92})
	delete(f.images.objects, imagestore.ReferenceKey("s1"))

	_, err := f.svc.Submit(context.Background(), "s1", "c1", testPhoto(t))
	if KindOf(err) != KindReferenceMissing {
		t.Fatalf("kind = %q, want %q", KindOf(err), KindReferenceMissing)
	}
	if len(f.records.inserted) != 0 {
		t.Error("record written despite missing reference image")
	}
	if f.matcher.calls != 0 {
		t.Error("matcher called despite missing reference image")
	}
}

func TestSubmit_MatchServiceFailureWritesNoRecord(t *testing.T) {
	f := newFixture(facematch.Comparison{})
	f.matcher.err = errors.New("compare timed out")

	_, err := f.svc.Submit(context.Background(), "s1", "c1", testPhoto(t))
	if KindOf(err) != KindMatchService {
		t.Fatalf("kind = %q, want %q", KindOf(err), KindMatchService)
	}
	if len(f.records.inserted) != 0 {
		t.Error("record written despite match service failure")
	}
}

func TestSubmit_PersistFailureReported(t *testing.T) {
	f := newFixture(facematch.Comparison{Match: false, Similarity: 10})
	f.records.err = errors.New("db down")

	_, err := f.svc.Submit(context.Background(), "s1", "c1", testPhoto(t))
	if KindOf(err) != KindPersist {
		t.Fatalf("kind = %q, want %q", KindOf(err), KindPersist)
	}
	if len(f.pub.events) != 0 {
		t.Error("absence published although nothing was recorded")
	}
}

func TestSubmit_PublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(facematch.Comparison{Match: false, Similarity: 10})
	f.pub.err = errors.New("queue gone")

	res, err := f.svc.Submit(context.Background(), "s1", "c1", testPhoto(t))
	if err != nil {
		t.Fatalf("submit failed on publish error: %v", err)
	}
	if len(f.records.inserted) != 1 || res.RecordID == "" {
		t.Error("record should be durable regardless of publish outcome")
	}
}

func TestSubmit_UsesNewestReference(t *testing.T) {
	f := newFixture(facematch.Comparison{Match: true, Similarity: 92})
	// Re-enrollment overwrites the deterministic key.
	f.images.objects[imagestore.ReferenceKey("s1")] = []byte("reference-v2")

	if _, err := f.svc.Submit(context.Background(), "s1", "c1", testPhoto(t)); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if string(f.matcher.lastSource) != "reference-v2" {
		t.Errorf("matcher compared against %q, want newest reference", f.matcher.lastSource)
	}
}

func TestSubmit_SubmissionKeyScopedToStudentAndTime(t *testing.T) {
	f := newFixture(facematch.Comparison{Match: true, Similarity: 92})
	at := time.Date(2024, 5, 10, 8, 30, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return at }

	if _, err := f.svc.Submit(context.Background(), "s1", "c1", testPhoto(t)); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if len(f.images.putKeys) != 1 {
		t.Fatalf("want one stored photo, got %v", f.images.putKeys)
	}
	key := f.images.putKeys[0]
	if key != imagestore.SubmissionKey("s1", at) {
		t.Errorf("submission key = %q", key)
	}
	if !strings.HasPrefix(key, "attendance_photos/s1_") {
		t.Errorf("submission key not scoped to student: %q", key)
	}
	rec := f.records.inserted[0]
	if rec.ImageURL != "https://img.test/"+key {
		t.Errorf("record image url = %q", rec.ImageURL)
	}
	if !rec.CreatedAt.Equal(at) {
		t.Errorf("createdAt = %v, want %v", rec.CreatedAt, at)
	}
}
