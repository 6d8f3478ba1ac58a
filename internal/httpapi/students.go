package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/directory"
)

// listStudents returns all users with the student role.
func (s *Server) listStudents(c *gin.Context) {
	students, err := s.Dir.ListUsersByRole(c.Request.Context(), directory.RoleStudent)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "students": students})
}

// enrollStudent registers a student with an optional base64 reference photo
// and optional class membership.
func (s *Server) enrollStudent(c *gin.Context) {
	var req struct {
		StudentID   string `json:"student_id" binding:"required"`
		Name        string `json:"name" binding:"required"`
		Email       string `json:"email" binding:"required"`
		ClassID     string `json:"class_id"`
		Status      string `json:"status"`
		ImageBase64 string `json:"image_base64"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var photo []byte
	if req.ImageBase64 != "" {
		decoded, err := decodeImagePayload(req.ImageBase64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image payload", "details": err.Error()})
			return
		}
		photo = decoded
	}

	u, err := s.Users.EnrollStudent(c.Request.Context(), directory.EnrollInput{
		StudentID: req.StudentID,
		Name:      req.Name,
		Email:     req.Email,
		ClassID:   req.ClassID,
		Status:    req.Status,
		Photo:     photo,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "student": u})
}

// updateStudent applies an allow-listed partial update to a student.
func (s *Server) updateStudent(c *gin.Context) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	if err := s.Dir.UpdateUserFields(c.Request.Context(), c.Param("studentId"), fields); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// deleteStudent removes a student document.
func (s *Server) deleteStudent(c *gin.Context) {
	if err := s.Dir.DeleteUser(c.Request.Context(), c.Param("studentId")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// studentDisplayName returns a student's name.
func (s *Server) studentDisplayName(c *gin.Context) {
	id := c.Param("studentId")
	name, err := s.Users.DisplayName(c.Request.Context(), id, directory.RoleStudent)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user_id": id, "displayName": name})
}

// listTeachers returns all users with the teacher role.
func (s *Server) listTeachers(c *gin.Context) {
	teachers, err := s.Dir.ListUsersByRole(c.Request.Context(), directory.RoleTeacher)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "teachers": teachers})
}

// teacherDisplayName returns a teacher's name.
func (s *Server) teacherDisplayName(c *gin.Context) {
	id := c.Param("userId")
	name, err := s.Users.DisplayName(c.Request.Context(), id, directory.RoleTeacher)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user_id": id, "displayName": name})
}

// getProfile returns a user document.
func (s *Server) getProfile(c *gin.Context) {
	u, err := s.Dir.GetUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		fail(c, err)
		return
	}
	if u == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "profile": u})
}

// updateProfile applies an allow-listed partial update and returns the
// refreshed document.
func (s *Server) updateProfile(c *gin.Context) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	id := c.Param("userId")
	if err := s.Dir.UpdateUserFields(c.Request.Context(), id, fields); err != nil {
		fail(c, err)
		return
	}
	u, err := s.Dir.GetUser(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "profile": u})
}
