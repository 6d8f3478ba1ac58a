// Package httpapi exposes the service over HTTP: the attendance submission
// endpoint plus the directory, report and dashboard routes of the
// management API.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/directory"
	"rollcall/internal/report"
	"rollcall/internal/store"
)

// Server holds handler dependencies.
type Server struct {
	Engine  *attendance.Service
	Users   *directory.Users
	Dir     *directory.Repository
	Reports *report.Service
	Redis   *store.Redis
	DB      *store.DB

	JWTIssuer     string
	JWTSigningKey string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Register mounts all routes on r. Middleware (recovery, logging, CORS,
// rate limiting) is wired by the caller.
func (s *Server) Register(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", s.healthz)

	r.POST("/api/register", s.register)
	r.POST("/api/login", s.login)

	authed := r.Group("/", auth.Required(s.JWTSigningKey, s.JWTIssuer))

	authed.POST("/attendance", s.submitAttendance)

	authed.GET("/api/profile/:userId", s.getProfile)
	authed.PUT("/api/profile/:userId", s.updateProfile)

	authed.GET("/api/students", s.listStudents)
	authed.POST("/api/students", s.enrollStudent)
	authed.PUT("/api/students/:studentId", s.updateStudent)
	authed.DELETE("/api/students/:studentId", s.deleteStudent)
	authed.GET("/api/students/:studentId/displayName", s.studentDisplayName)

	authed.GET("/api/teachers", s.listTeachers)
	authed.GET("/api/teachers/:userId/displayName", s.teacherDisplayName)

	authed.GET("/api/classes", s.listClasses)
	authed.POST("/api/classes", s.createClass)
	authed.PUT("/api/classes/:classId", s.updateClass)
	authed.DELETE("/api/classes/:classId", s.deleteClass)
	authed.POST("/api/classes/:classId/add_student", s.addStudentToClass)
	authed.POST("/api/classes/:classId/remove_student", s.removeStudentFromClass)
	authed.GET("/api/classes/student/:studentId", s.classesOfStudent)

	authed.GET("/api/reports/attendance", s.attendanceReport)
	authed.GET("/api/reports/class", s.classReport)
	authed.GET("/api/dashboard/teacher", s.teacherDashboard)
	authed.GET("/api/dashboard/student", s.studentDashboard)
}

func (s *Server) healthz(c *gin.Context) {
	redisHealthy := s.Redis.Healthy(c.Request.Context())
	dbHealthy := s.DB != nil && s.DB.Client != nil && s.DB.Client.PingContext(c.Request.Context()) == nil
	status := http.StatusOK
	if !redisHealthy || !dbHealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
}
