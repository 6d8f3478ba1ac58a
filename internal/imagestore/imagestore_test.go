package imagestore

import (
	"crypto/sha1"
	"fmt"
	"testing"
	"time"
)

func TestReferenceKey(t *testing.T) {
	if got := ReferenceKey("stu-42"); got != "students/stu-42.jpg" {
		t.Errorf("got %q", got)
	}
}

func TestSubmissionKey(t *testing.T) {
	at := time.Date(2024, 5, 10, 8, 30, 0, 0, time.UTC)
	want := fmt.Sprintf("attendance_photos/stu-42_%d.jpg", at.Unix())
	if got := SubmissionKey("stu-42", at); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	// Separate timestamps never collide for the same student.
	later := SubmissionKey("stu-42", at.Add(time.Second))
	if later == want {
		t.Error("keys for distinct submissions must differ")
	}
}

func TestPublicIDStripsExtension(t *testing.T) {
	cases := map[string]string{
		"students/s1.jpg":               "students/s1",
		"attendance_photos/s1_1715.jpg": "attendance_photos/s1_1715",
		"noextension":                   "noextension",
	}
	for in, want := range cases {
		if got := publicID(in); got != want {
			t.Errorf("publicID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCloudinarySignature(t *testing.T) {
	c := NewCloudinary("demo", "key123", "secret", "")
	params := map[string]string{
		"timestamp": "1700000000",
		"api_key":   "key123",
		"public_id": "students/s1",
		"overwrite": "true",
	}
	// api_key is excluded, remaining params sorted and joined with the secret.
	payload := "overwrite=true&public_id=students/s1&timestamp=1700000000" + "secret"
	want := fmt.Sprintf("%x", sha1.Sum([]byte(payload)))
	if got := c.sign(params); got != want {
		t.Errorf("signature = %q, want %q", got, want)
	}
}

func TestCloudinaryURL(t *testing.T) {
	c := NewCloudinary("demo", "k", "s", "")
	if got := c.URL("students/s1.jpg"); got != "https://res.cloudinary.com/demo/image/upload/students/s1.jpg" {
		t.Errorf("got %q", got)
	}
	c.Folder = "rollcall"
	if got := c.URL("students/s1.jpg"); got != "https://res.cloudinary.com/demo/image/upload/rollcall/students/s1.jpg" {
		t.Errorf("with folder: got %q", got)
	}
}
