package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/auth"
)

// attendanceReport returns per-student counts and rates, optionally scoped
// to one class via ?class=.
func (s *Server) attendanceReport(c *gin.Context) {
	rows, err := s.Reports.AttendanceByStudent(c.Request.Context(), c.Query("class"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rows})
}

// classReport returns the per-class attendance overview.
func (s *Server) classReport(c *gin.Context) {
	rows, err := s.Reports.ClassOverviews(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rows})
}

// teacherDashboard returns the teacher landing-page aggregate.
func (s *Server) teacherDashboard(c *gin.Context) {
	dash, err := s.Reports.ForTeacher(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}

// studentDashboard returns the student landing-page aggregate. The student
// id comes from ?uid=, the X-User-Id header, or the caller's own token.
func (s *Server) studentDashboard(c *gin.Context) {
	uid := c.Query("uid")
	if uid == "" {
		uid = c.GetHeader("X-User-Id")
	}
	if uid == "" {
		if claims, ok := auth.FromContext(c); ok {
			uid = claims.UserID
		}
	}
	if uid == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing user id"})
		return
	}

	u, err := s.Dir.GetUser(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	if u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	dash, err := s.Reports.ForStudent(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}
