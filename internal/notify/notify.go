// Package notify reacts to persisted absences with a best-effort email.
// Nothing here ever propagates back to the attendance write path.
package notify

import (
	"context"
	"fmt"
	"log"

	"rollcall/internal/directory"
	"rollcall/internal/queue"
)

// UserLookup resolves student ids to user documents.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*directory.User, error)
}

// Notifier consumes absence events and mails the affected student.
type Notifier struct {
	users  UserLookup
	mailer Mailer
}

// New creates a notifier.
func New(users UserLookup, mailer Mailer) *Notifier {
	return &Notifier{users: users, mailer: mailer}
}

// HandleAbsence looks up the student's email and sends the absence notice.
// A missing student or email is logged and dropped; delivery failures are
// logged and swallowed. The error return exists only for tests.
func (n *Notifier) HandleAbsence(ctx context.Context, evt queue.AbsenceEvent) error {
	if evt.StudentID == "" {
		log.Printf("absence event %s has no student id, dropping", evt.RecordID)
		return nil
	}
	u, err := n.users.GetUser(ctx, evt.StudentID)
	if err != nil {
		log.Printf("absence lookup for %s failed: %v", evt.StudentID, err)
		return err
	}
	if u == nil || u.Email == "" {
		log.Printf("no email for student %s, skipping absence notice", evt.StudentID)
		return nil
	}

	name := u.Name
	if name == "" {
		name = evt.StudentID
	}
	subject, body := AbsenceNotice(name, evt.ClassID)
	if err := n.mailer.Send(u.Email, subject, body); err != nil {
		log.Printf("absence notice to %s failed: %v", u.Email, err)
		return err
	}
	log.Printf("absence notice sent to %s for class %s", u.Email, evt.ClassID)
	return nil
}

// AbsenceNotice composes the fixed plain-text absence message.
func AbsenceNotice(studentName, classID string) (subject, body string) {
	subject = "Absence notice"
	body = fmt.Sprintf(
		"Hello %s,\nYou were marked absent in class %s. If you have any questions, please contact your teacher.",
		studentName, classID,
	)
	return subject, body
}
