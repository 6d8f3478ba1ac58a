package directory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// ClassRoom is one class document. The roster (Students) holds student ids
// with dedup-on-insert semantics; membership changes run as single
// conditional updates so concurrent enrollments cannot lose writes.
type ClassRoom struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Code           string         `json:"code"`
	Room           string         `json:"room"`
	Schedule       map[string]any `json:"schedule,omitempty"`
	InstructorID   string         `json:"instructorId,omitempty"`
	InstructorName string         `json:"instructorName,omitempty"`
	Students       []string       `json:"students"`
	NumberStudent  int            `json:"numberStudent"`
	CreatedAt      time.Time      `json:"createdAt"`
}

const classColumns = `id, name, code, room, schedule, instructor_id, instructor_name, students, number_student, created_at`

func scanClass(row interface{ Scan(...any) error }) (*ClassRoom, error) {
	var c ClassRoom
	var schedule []byte
	var students pgtype.FlatArray[string]
	m := pgtype.NewMap()
	err := row.Scan(&c.ID, &c.Name, &c.Code, &c.Room, &schedule, &c.InstructorID, &c.InstructorName,
		m.SQLScanner(&students), &c.NumberStudent, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(schedule) > 0 {
		_ = json.Unmarshal(schedule, &c.Schedule)
	}
	c.Students = []string(students)
	if c.Students == nil {
		c.Students = []string{}
	}
	return &c, nil
}

// CreateClass inserts a class document keyed by its code.
func (r *Repository) CreateClass(ctx context.Context, c ClassRoom) error {
	if c.ID == "" {
		c.ID = c.Code
	}
	if c.ID == "" {
		return fmt.Errorf("%w: class code required", ErrInvalid)
	}
	schedule, err := json.Marshal(c.Schedule)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO classes (id, name, code, room, schedule, instructor_id, instructor_name, students, number_student)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, c.ID, c.Name, c.Code, c.Room, schedule, c.InstructorID, c.InstructorName, stringArray(c.Students), len(c.Students))
	return err
}

// GetClass returns a class by id, or nil when absent.
func (r *Repository) GetClass(ctx context.Context, id string) (*ClassRoom, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+classColumns+` FROM classes WHERE id = $1`, id)
	c, err := scanClass(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// ListClasses returns all classes with instructor names resolved from the
// users collection for classes that reference an instructor by id.
func (r *Repository) ListClasses(ctx context.Context) ([]ClassRoom, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+classColumns+` FROM classes ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var classes []ClassRoom
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		classes = append(classes, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Resolve instructor ids to names, one lookup per distinct id.
	nameCache := map[string]string{}
	for i := range classes {
		c := &classes[i]
		if c.InstructorName != "" || c.InstructorID == "" {
			continue
		}
		name, ok := nameCache[c.InstructorID]
		if !ok {
			u, err := r.GetUser(ctx, c.InstructorID)
			if err != nil {
				return nil, err
			}
			name = c.InstructorID
			if u != nil {
				name = u.Name
			}
			nameCache[c.InstructorID] = name
		}
		c.InstructorName = name
	}
	return classes, nil
}

// ListClassesOfStudent returns the classes whose roster contains studentID.
func (r *Repository) ListClassesOfStudent(ctx context.Context, studentID string) ([]ClassRoom, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+classColumns+` FROM classes WHERE $1 = ANY(students) ORDER BY id`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var classes []ClassRoom
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		classes = append(classes, *c)
	}
	return classes, rows.Err()
}

// classFields are the class columns mutable through updates.
var classFields = map[string]string{
	"name":            "name",
	"room":            "room",
	"instructor_id":   "instructor_id",
	"instructor_name": "instructor_name",
}

// UpdateClassFields applies an allow-listed partial update. Schedule is
// handled separately because it marshals to jsonb.
func (r *Repository) UpdateClassFields(ctx context.Context, id string, fields map[string]any) error {
	sets := []string{}
	args := []any{id}
	for key, val := range fields {
		if key == "schedule" {
			schedule, err := json.Marshal(val)
			if err != nil {
				return err
			}
			args = append(args, schedule)
			sets = append(sets, fmt.Sprintf("schedule = $%d", len(args)))
			continue
		}
		col, ok := classFields[key]
		if !ok {
			continue
		}
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if len(sets) == 0 {
		return nil
	}
	res, err := r.db.ExecContext(ctx, `UPDATE classes SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteClass removes a class document.
func (r *Repository) DeleteClass(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddStudent appends studentID to the roster in one conditional update, so
// the operation is atomic and idempotent under duplicate adds.
func (r *Repository) AddStudent(ctx context.Context, classID, studentID string) error {
	if studentID == "" {
		return fmt.Errorf("%w: student id required", ErrInvalid)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE classes
		SET students = array_append(students, $2), number_student = cardinality(students) + 1
		WHERE id = $1 AND NOT ($2 = ANY(students))
	`, classID, studentID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Already enrolled, or no such class.
		c, err := r.GetClass(ctx, classID)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrNotFound
		}
	}
	return nil
}

// RemoveStudent drops studentID from the roster; a no-op when absent.
func (r *Repository) RemoveStudent(ctx context.Context, classID, studentID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE classes
		SET students = array_remove(students, $2), number_student = GREATEST(cardinality(students) - 1, 0)
		WHERE id = $1 AND $2 = ANY(students)
	`, classID, studentID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		c, err := r.GetClass(ctx, classID)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrNotFound
		}
	}
	return nil
}

// stringArray renders a text[] literal for inserts; parameters are already
// bound, only the braces are constructed here.
func stringArray(values []string) string {
	if len(values) == 0 {
		return "{}"
	}
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = `"` + strings.ReplaceAll(strings.ReplaceAll(v, `\`, `\\`), `"`, `\"`) + `"`
	}
	return "{" + strings.Join(escaped, ",") + "}"
}
