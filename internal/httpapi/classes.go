package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/directory"
)

// listClasses returns all classes with instructor names resolved.
func (s *Server) listClasses(c *gin.Context) {
	classes, err := s.Dir.ListClasses(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "classes": classes})
}

// createClass inserts a class keyed by its code.
func (s *Server) createClass(c *gin.Context) {
	var req struct {
		Name           string         `json:"name" binding:"required"`
		Code           string         `json:"code" binding:"required"`
		Room           string         `json:"room"`
		Schedule       map[string]any `json:"schedule"`
		InstructorID   string         `json:"instructorId"`
		InstructorName string         `json:"instructorName"`
		Students       []string       `json:"students"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	class := directory.ClassRoom{
		ID:             req.Code,
		Name:           req.Name,
		Code:           req.Code,
		Room:           req.Room,
		Schedule:       req.Schedule,
		InstructorID:   req.InstructorID,
		InstructorName: req.InstructorName,
		Students:       dedup(req.Students),
	}
	class.NumberStudent = len(class.Students)
	if err := s.Dir.CreateClass(c.Request.Context(), class); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "class": class})
}

// updateClass applies an allow-listed partial update.
func (s *Server) updateClass(c *gin.Context) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	if err := s.Dir.UpdateClassFields(c.Request.Context(), c.Param("classId"), fields); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// deleteClass removes a class document.
func (s *Server) deleteClass(c *gin.Context) {
	if err := s.Dir.DeleteClass(c.Request.Context(), c.Param("classId")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type rosterRequest struct {
	StudentID string `json:"studentId"`
	// Older clients use snake_case.
	StudentIDCompat string `json:"student_id"`
}

func (r rosterRequest) id() string {
	if r.StudentID != "" {
		return r.StudentID
	}
	return r.StudentIDCompat
}

// addStudentToClass enrolls a student into the roster; idempotent under
// duplicate adds.
func (s *Server) addStudentToClass(c *gin.Context) {
	var req rosterRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.id() == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing studentId"})
		return
	}
	classID := c.Param("classId")
	if err := s.Dir.AddStudent(c.Request.Context(), classID, req.id()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "class_id": classID, "student_id": req.id()})
}

// removeStudentFromClass drops a student from the roster.
func (s *Server) removeStudentFromClass(c *gin.Context) {
	var req rosterRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.id() == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing studentId"})
		return
	}
	classID := c.Param("classId")
	if err := s.Dir.RemoveStudent(c.Request.Context(), classID, req.id()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "class_id": classID, "student_id": req.id()})
}

// classesOfStudent returns the classes whose roster contains the student.
func (s *Server) classesOfStudent(c *gin.Context) {
	classes, err := s.Dir.ListClassesOfStudent(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "classes": classes})
}

// dedup drops repeated ids while preserving order.
func dedup(ids []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
