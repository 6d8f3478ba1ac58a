package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"rollcall/internal/attendance"
	"rollcall/internal/facematch"
	"rollcall/internal/imagestore"
)

func TestDecodeImagePayload(t *testing.T) {
	raw := []byte{0x01, 0x02, 0x03}
	b64 := base64.StdEncoding.EncodeToString(raw)

	for _, payload := range []string{
		b64,
		"data:image/jpeg;base64," + b64,
		"  " + b64 + "\n",
	} {
		got, err := decodeImagePayload(payload)
		if err != nil {
			t.Errorf("decode %q: %v", payload, err)
			continue
		}
		if !bytes.Equal(got, raw) {
			t.Errorf("decode %q = %v", payload, got)
		}
	}

	if _, err := decodeImagePayload("!!not base64!!"); err == nil {
		t.Error("garbage payload should fail")
	}
}

type memImages struct{ objects map[string][]byte }

func (m *memImages) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	m.objects[key] = data
	return "https://img.test/" + key, nil
}

func (m *memImages) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, imagestore.ErrNotFound
	}
	return data, nil
}

func (m *memImages) URL(key string) string { return "https://img.test/" + key }

type cannedMatcher struct{ cmp facematch.Comparison }

func (c cannedMatcher) Compare(context.Context, []byte, []byte) (facematch.Comparison, error) {
	return c.cmp, nil
}
func (c cannedMatcher) Name() string { return "canned" }

type memRecords struct{ recs []attendance.Record }

func (m *memRecords) InsertRecord(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	m.recs = append(m.recs, rec)
	return rec, nil
}

func newTestServer(cmp facematch.Comparison, enrolled bool) (*Server, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	images := &memImages{objects: map[string][]byte{}}
	if enrolled {
		images.objects[imagestore.ReferenceKey("s1")] = []byte("ref")
	}
	engine := attendance.NewService(images, cannedMatcher{cmp}, &memRecords{}, nil, 80, time.Second)
	s := &Server{Engine: engine}
	r := gin.New()
	r.POST("/attendance", s.submitAttendance)
	return s, r
}

func postAttendance(t *testing.T, r *gin.Engine, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/attendance", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func pngBase64(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestSubmitAttendanceRecognized(t *testing.T) {
	_, r := newTestServer(facematch.Comparison{Match: true, Similarity: 93.4}, true)

	w := postAttendance(t, r, map[string]any{
		"imageBase64": pngBase64(t),
		"studentId":   "s1",
		"classId":     "c1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	var resp struct {
		Recognized bool    `json:"recognized"`
		Similarity float64 `json:"similarity"`
		DocRef     string  `json:"doc_ref"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Recognized || resp.Similarity != 93.4 || resp.DocRef == "" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestSubmitAttendanceLegacyClassField(t *testing.T) {
	_, r := newTestServer(facematch.Comparison{Match: true, Similarity: 90}, true)

	w := postAttendance(t, r, map[string]any{
		"imageBase64": pngBase64(t),
		"studentId":   "s1",
		"ClassId":     "c1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("legacy field rejected: %d %s", w.Code, w.Body)
	}
}

func TestSubmitAttendanceMissingData(t *testing.T) {
	_, r := newTestServer(facematch.Comparison{}, true)

	w := postAttendance(t, r, map[string]any{"studentId": "s1", "classId": "c1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Missing data") {
		t.Errorf("body = %s", w.Body)
	}
}

func TestSubmitAttendanceNoReference(t *testing.T) {
	_, r := newTestServer(facematch.Comparison{Match: true, Similarity: 99}, false)

	w := postAttendance(t, r, map[string]any{
		"imageBase64": pngBase64(t),
		"studentId":   "s1",
		"classId":     "c1",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 when no reference enrolled", w.Code)
	}
}
