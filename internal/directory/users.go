// Package directory owns the user and classroom collections: registration,
// login lookup, profiles, rosters. It performs no attendance decisions.
package directory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"rollcall/internal/imagestore"
)

// Roles carried on user documents.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

var (
	ErrNotFound       = errors.New("directory: not found")
	ErrEmailTaken     = errors.New("directory: email already registered")
	ErrBadCredentials = errors.New("directory: invalid email or password")
	ErrInvalid        = errors.New("directory: invalid input")
)

// User is one account document. Extra is a bounded extension map for
// forward-compatible attributes the schema does not model.
type User struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	PasswordHash string         `json:"-"`
	AvatarURL    string         `json:"avatar_url"`
	Status       string         `json:"status"`
	FaceEnrolled bool           `json:"face_enrolled"`
	EnrolledAt   *time.Time     `json:"enrolled_at,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// maxExtraFields bounds the extension map so arbitrary payloads cannot grow
// user documents without limit.
const maxExtraFields = 16

// Repository persists users and classrooms in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, name, email, role, password_hash, avatar_url, status, face_enrolled, enrolled_at, extra, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	var extra []byte
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.PasswordHash, &u.AvatarURL, &u.Status, &u.FaceEnrolled, &u.EnrolledAt, &extra, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(extra) > 0 {
		_ = json.Unmarshal(extra, &u.Extra)
	}
	return &u, nil
}

// CreateUser inserts a user document. The unique index on email backs up the
// service-level duplicate check.
func (r *Repository) CreateUser(ctx context.Context, u User) error {
	extra, err := json.Marshal(u.Extra)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, role, password_hash, avatar_url, status, face_enrolled, enrolled_at, extra)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, u.ID, u.Name, u.Email, u.Role, u.PasswordHash, u.AvatarURL, u.Status, u.FaceEnrolled, u.EnrolledAt, extra)
	return err
}

// UpsertUser creates or refreshes a user document keyed by id. Used by
// student enrollment, which may re-register an existing student.
func (r *Repository) UpsertUser(ctx context.Context, u User) error {
	extra, err := json.Marshal(u.Extra)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, role, password_hash, avatar_url, status, face_enrolled, enrolled_at, extra)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			avatar_url = CASE WHEN EXCLUDED.avatar_url <> '' THEN EXCLUDED.avatar_url ELSE users.avatar_url END,
			status = EXCLUDED.status,
			face_enrolled = users.face_enrolled OR EXCLUDED.face_enrolled,
			enrolled_at = COALESCE(EXCLUDED.enrolled_at, users.enrolled_at),
			extra = EXCLUDED.extra,
			updated_at = NOW()
	`, u.ID, u.Name, u.Email, u.Role, u.PasswordHash, u.AvatarURL, u.Status, u.FaceEnrolled, u.EnrolledAt, extra)
	return err
}

// GetUser returns a user by id, or nil when absent.
func (r *Repository) GetUser(ctx context.Context, id string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// GetUserByEmail returns a user by email, or nil when absent.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// ListUsersByRole returns all users with the given role, ordered by id.
func (r *Repository) ListUsersByRole(ctx context.Context, role string) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY id`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// profileFields are the user columns mutable through profile updates.
var profileFields = map[string]string{
	"name":       "name",
	"email":      "email",
	"avatar_url": "avatar_url",
	"status":     "status",
}

// UpdateUserFields applies an allow-listed partial update. Unknown fields
// are ignored rather than rejected, matching the forgiving profile API.
func (r *Repository) UpdateUserFields(ctx context.Context, id string, fields map[string]any) error {
	sets := []string{}
	args := []any{id}
	for key, val := range fields {
		col, ok := profileFields[key]
		if !ok {
			continue
		}
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = NOW()")
	res, err := r.db.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetFaceEnrolled marks a user as having a live reference image.
func (r *Repository) SetFaceEnrolled(ctx context.Context, id string, enrolled bool) error {
	var enrolledAt any
	if enrolled {
		enrolledAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET face_enrolled = $2, enrolled_at = $3, updated_at = NOW() WHERE id = $1
	`, id, enrolled, enrolledAt)
	return err
}

// DeleteUser removes a user document.
func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Users wraps the repository with registration and enrollment flows that
// need hashing and the image store.
type Users struct {
	repo   *Repository
	images imagestore.Store
}

// NewUsers creates the user service. images may be nil when no image store
// is configured; enrollment photos are then rejected.
func NewUsers(repo *Repository, images imagestore.Store) *Users {
	return &Users{repo: repo, images: images}
}

// RegisterInput is the account-creation payload.
type RegisterInput struct {
	FullName string
	Email    string
	UserID   string
	Role     string
	Password string
	Extra    map[string]any
}

// Register creates an account. Email uniqueness is a best-effort
// check-then-create; the unique index catches the race loser.
func (s *Users) Register(ctx context.Context, in RegisterInput) (User, error) {
	if in.FullName == "" || in.Email == "" || in.Role == "" || in.Password == "" {
		return User{}, fmt.Errorf("%w: missing required fields", ErrInvalid)
	}
	if in.Role != RoleStudent && in.Role != RoleTeacher {
		return User{}, fmt.Errorf("%w: unknown role %q", ErrInvalid, in.Role)
	}
	existing, err := s.repo.GetUserByEmail(ctx, in.Email)
	if err != nil {
		return User{}, err
	}
	if existing != nil {
		return User{}, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	id := in.UserID
	if id == "" {
		id = uuid.NewString()
	}
	u := User{
		ID:           id,
		Name:         in.FullName,
		Email:        in.Email,
		Role:         in.Role,
		PasswordHash: string(hash),
		Status:       "active",
		Extra:        boundExtra(in.Extra),
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return User{}, err
	}
	created, err := s.repo.GetUser(ctx, id)
	if err != nil || created == nil {
		return u, err
	}
	return *created, nil
}

// Authenticate checks email/password and returns the account.
func (s *Users) Authenticate(ctx context.Context, email, password string) (User, error) {
	if email == "" || password == "" {
		return User{}, fmt.Errorf("%w: email and password required", ErrInvalid)
	}
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if u == nil {
		return User{}, ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrBadCredentials
	}
	return *u, nil
}

// EnrollInput registers or refreshes a student together with an optional
// reference photo and class membership.
type EnrollInput struct {
	StudentID string
	Name      string
	Email     string
	ClassID   string
	Status    string
	Photo     []byte
}

// EnrollStudent upserts the student document, stores the reference image at
// its deterministic key (replacing any prior one), and optionally adds the
// student to a class roster.
func (s *Users) EnrollStudent(ctx context.Context, in EnrollInput) (User, error) {
	if in.StudentID == "" || in.Name == "" || in.Email == "" {
		return User{}, fmt.Errorf("%w: student_id, name and email required", ErrInvalid)
	}
	if in.Status == "" {
		in.Status = "active"
	}

	var avatarURL string
	var enrolledAt *time.Time
	if len(in.Photo) > 0 {
		if s.images == nil {
			return User{}, fmt.Errorf("%w: image store not configured", ErrInvalid)
		}
		url, err := s.images.Put(ctx, imagestore.ReferenceKey(in.StudentID), in.Photo, "image/jpeg")
		if err != nil {
			return User{}, fmt.Errorf("store reference image: %w", err)
		}
		avatarURL = url
		now := time.Now().UTC()
		enrolledAt = &now
	}

	u := User{
		ID:           in.StudentID,
		Name:         in.Name,
		Email:        in.Email,
		Role:         RoleStudent,
		AvatarURL:    avatarURL,
		Status:       in.Status,
		FaceEnrolled: enrolledAt != nil,
		EnrolledAt:   enrolledAt,
	}
	if err := s.repo.UpsertUser(ctx, u); err != nil {
		return User{}, err
	}

	if in.ClassID != "" {
		if err := s.repo.AddStudent(ctx, in.ClassID, in.StudentID); err != nil && !errors.Is(err, ErrNotFound) {
			return User{}, err
		}
	}

	stored, err := s.repo.GetUser(ctx, in.StudentID)
	if err != nil || stored == nil {
		return u, err
	}
	return *stored, nil
}

// DisplayName returns the name of a user holding the given role.
func (s *Users) DisplayName(ctx context.Context, id, role string) (string, error) {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return "", err
	}
	if u == nil || u.Role != role {
		return "", ErrNotFound
	}
	return u.Name, nil
}

// boundExtra drops reserved keys and caps the extension map.
func boundExtra(extra map[string]any) map[string]any {
	if len(extra) == 0 {
		return nil
	}
	reserved := map[string]bool{
		"id": true, "name": true, "email": true, "role": true,
		"password": true, "password_hash": true, "avatar_url": true,
		"status": true, "createdAt": true, "updatedAt": true,
	}
	out := make(map[string]any, len(extra))
	for k, v := range extra {
		if reserved[k] {
			continue
		}
		if len(out) >= maxExtraFields {
			break
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
