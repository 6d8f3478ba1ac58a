// Package report builds read-only attendance aggregates for reports and
// dashboards. It scans the attendance collection and formats; it never
// writes.
package report

import (
	"context"
	"math"
	"time"

	"rollcall/internal/attendance"
	"rollcall/internal/directory"
)

// Service aggregates attendance records with names resolved from the
// directory.
type Service struct {
	records *attendance.Repository
	dir     *directory.Repository
}

// NewService creates a report service.
func NewService(records *attendance.Repository, dir *directory.Repository) *Service {
	return &Service{records: records, dir: dir}
}

// StudentReport is one row of the per-student attendance report.
type StudentReport struct {
	StudentID      string  `json:"studentId"`
	Name           string  `json:"name"`
	Present        int     `json:"present"`
	Absent         int     `json:"absent"`
	Late           int     `json:"late"`
	AttendanceRate float64 `json:"attendanceRate"`
}

// AttendanceByStudent reports per-student counts and rates, optionally
// scoped to one class.
func (s *Service) AttendanceByStudent(ctx context.Context, classID string) ([]StudentReport, error) {
	records, err := s.records.ListRecords(ctx, classID, "", 0, 0)
	if err != nil {
		return nil, err
	}
	counts := tally(records)

	out := make([]StudentReport, 0, len(counts))
	for _, c := range counts {
		name := c.studentID
		u, err := s.dir.GetUser(ctx, c.studentID)
		if err != nil {
			return nil, err
		}
		if u != nil && u.Name != "" {
			name = u.Name
		}
		out = append(out, StudentReport{
			StudentID:      c.studentID,
			Name:           name,
			Present:        c.present,
			Absent:         c.absent,
			Late:           c.late,
			AttendanceRate: rate(c.present, c.total),
		})
	}
	return out, nil
}

// ClassOverview is one row of the per-class report.
type ClassOverview struct {
	Class          string  `json:"class"`
	AttendanceRate float64 `json:"attendanceRate"`
	StudentCount   int     `json:"studentCount"`
}

// ClassOverviews reports the attendance rate and roster size of every class.
func (s *Service) ClassOverviews(ctx context.Context) ([]ClassOverview, error) {
	classes, err := s.dir.ListClasses(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ClassOverview, 0, len(classes))
	for _, c := range classes {
		present, total, err := s.records.CountByStatus(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, ClassOverview{
			Class:          c.Name,
			AttendanceRate: rate(present, total),
			StudentCount:   len(c.Students),
		})
	}
	return out, nil
}

// ClassSummary is a dashboard line for one class.
type ClassSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Code          string `json:"code"`
	TotalStudents int    `json:"totalStudents"`
	PresentToday  int    `json:"presentToday"`
}

// TeacherDashboard is the teacher landing-page aggregate.
type TeacherDashboard struct {
	TotalStudents    int                 `json:"total_students"`
	PresentToday     int                 `json:"present_today"`
	AbsentToday      int                 `json:"absent_today"`
	AttendanceRate   float64             `json:"attendance_rate"`
	Classes          []ClassSummary      `json:"classes"`
	RecentAttendance []attendance.Record `json:"recent_attendance"`
}

// ForTeacher builds the teacher dashboard.
func (s *Service) ForTeacher(ctx context.Context) (TeacherDashboard, error) {
	classes, err := s.dir.ListClasses(ctx)
	if err != nil {
		return TeacherDashboard{}, err
	}
	recent, err := s.records.ListRecords(ctx, "", "", 200, 0)
	if err != nil {
		return TeacherDashboard{}, err
	}

	midnight := startOfDay(time.Now().UTC())
	presentToday, absentToday := 0, 0
	presentByClass := map[string]int{}
	for _, rec := range recent {
		if rec.CreatedAt.Before(midnight) {
			continue
		}
		if rec.Status == attendance.StatusPresent {
			presentToday++
			presentByClass[rec.ClassID]++
		} else {
			absentToday++
		}
	}

	dash := TeacherDashboard{
		PresentToday:   presentToday,
		AbsentToday:    absentToday,
		AttendanceRate: rate(presentToday, presentToday+absentToday),
	}
	for _, c := range classes {
		dash.TotalStudents += c.NumberStudent
		dash.Classes = append(dash.Classes, ClassSummary{
			ID:            c.ID,
			Name:          c.Name,
			Code:          c.Code,
			TotalStudents: c.NumberStudent,
			PresentToday:  presentByClass[c.ID],
		})
	}
	if len(recent) > 20 {
		recent = recent[:20]
	}
	dash.RecentAttendance = recent
	return dash, nil
}

// StudentDashboard is the student landing-page aggregate.
type StudentDashboard struct {
	TotalClasses      int                   `json:"total_classes"`
	AttendanceRate    float64               `json:"attendance_rate"`
	NextClass         *directory.ClassRoom  `json:"next_class"`
	AttendanceHistory []attendance.Record   `json:"attendance_history"`
	ByClass           []StudentClassHistory `json:"by_class"`
}

// StudentClassHistory is the per-class slice of a student's history.
type StudentClassHistory struct {
	ClassID        string  `json:"classId"`
	Present        int     `json:"present"`
	Absent         int     `json:"absent"`
	AttendanceRate float64 `json:"attendanceRate"`
}

// ForStudent builds the student dashboard.
func (s *Service) ForStudent(ctx context.Context, studentID string) (StudentDashboard, error) {
	classes, err := s.dir.ListClassesOfStudent(ctx, studentID)
	if err != nil {
		return StudentDashboard{}, err
	}
	history, err := s.records.ListRecords(ctx, "", studentID, 100, 0)
	if err != nil {
		return StudentDashboard{}, err
	}

	present, total := 0, 0
	byClass := map[string]*counts{}
	for _, rec := range history {
		total++
		c, ok := byClass[rec.ClassID]
		if !ok {
			c = &counts{studentID: rec.ClassID}
			byClass[rec.ClassID] = c
		}
		c.total++
		if rec.Status == attendance.StatusPresent {
			present++
			c.present++
		} else {
			c.absent++
		}
	}

	dash := StudentDashboard{
		TotalClasses:      len(classes),
		AttendanceRate:    rate(present, total),
		AttendanceHistory: history,
	}
	if len(classes) > 0 {
		dash.NextClass = &classes[0]
	}
	for id, c := range byClass {
		dash.ByClass = append(dash.ByClass, StudentClassHistory{
			ClassID:        id,
			Present:        c.present,
			Absent:         c.absent,
			AttendanceRate: rate(c.present, c.total),
		})
	}
	return dash, nil
}

type counts struct {
	studentID string
	present   int
	absent    int
	late      int
	total     int
}

// tally groups records by student and counts statuses. Records with no
// student id are skipped.
func tally(records []attendance.Record) map[string]*counts {
	out := map[string]*counts{}
	for _, rec := range records {
		if rec.StudentID == "" {
			continue
		}
		c, ok := out[rec.StudentID]
		if !ok {
			c = &counts{studentID: rec.StudentID}
			out[rec.StudentID] = c
		}
		switch rec.Status {
		case attendance.StatusPresent:
			c.present++
		case attendance.StatusAbsent:
			c.absent++
		case "late":
			c.late++
		}
		c.total++
	}
	return out
}

// rate is the percentage of present over total, rounded to two decimals.
func rate(present, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(10000*float64(present)/float64(total)) / 100
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
