package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository persists attendance records in Postgres. Records have no update
// or delete path; the attendance collection is append-only.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertRecord writes a new attendance record.
func (r *Repository) InsertRecord(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (id, class_id, student_id, image_url, similarity, status, created_at, verified_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, rec.ID, rec.ClassID, rec.StudentID, rec.ImageURL, rec.Similarity, rec.Status, rec.CreatedAt, rec.VerifiedBy)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// GetRecord returns a single record by id.
func (r *Repository) GetRecord(ctx context.Context, id string) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, class_id, student_id, image_url, similarity, status, created_at, verified_by
		FROM attendance WHERE id = $1
	`, id)
	var rec Record
	if err := row.Scan(&rec.ID, &rec.ClassID, &rec.StudentID, &rec.ImageURL, &rec.Similarity, &rec.Status, &rec.CreatedAt, &rec.VerifiedBy); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// ListRecords returns records filtered by class and/or student, newest first.
func (r *Repository) ListRecords(ctx context.Context, classID, studentID string, limit, offset int) ([]Record, error) {
	if limit <= 0 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT id, class_id, student_id, image_url, similarity, status, created_at, verified_by FROM attendance`
	args := []any{}
	clauses := []string{}
	if classID != "" {
		clauses = append(clauses, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, classID)
	}
	if studentID != "" {
		clauses = append(clauses, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, studentID)
	}
	if len(clauses) > 0 {
		query += " WHERE " + joinClauses(clauses, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.ClassID, &rec.StudentID, &rec.ImageURL, &rec.Similarity, &rec.Status, &rec.CreatedAt, &rec.VerifiedBy); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// CountByStatus returns present/total counts for a class, cheap enough for
// dashboards without pulling whole records.
func (r *Repository) CountByStatus(ctx context.Context, classID string) (present, total int, err error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE status = 'present'), COUNT(*)
		FROM attendance WHERE class_id = $1
	`, classID)
	if err := row.Scan(&present, &total); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	return present, total, nil
}

func joinClauses(parts []string, sep string) string {
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for i := 1; i < len(parts); i++ {
		out += sep + parts[i]
	}
	return out
}
