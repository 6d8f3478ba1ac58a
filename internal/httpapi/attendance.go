package httpapi

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type attendanceRequest struct {
	ImageBase64 string `json:"imageBase64"`
	StudentID   string `json:"studentId"`
	ClassID     string `json:"classId"`
	// Older clients send the field capitalized.
	ClassIDCompat string `json:"ClassId"`
}

// submitAttendance runs one photo through the decision engine.
func (s *Server) submitAttendance(c *gin.Context) {
	var req attendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	classID := req.ClassID
	if classID == "" {
		classID = req.ClassIDCompat
	}
	if req.ImageBase64 == "" || req.StudentID == "" || classID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing data"})
		return
	}

	photo, err := decodeImagePayload(req.ImageBase64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image payload", "details": err.Error()})
		return
	}

	result, err := s.Engine.Submit(c.Request.Context(), req.StudentID, classID, photo)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"recognized": result.Recognized,
		"similarity": result.Similarity,
		"doc_ref":    result.RecordID,
	})
}

// decodeImagePayload accepts a data URL or raw base64.
func decodeImagePayload(payload string) ([]byte, error) {
	if i := strings.LastIndex(payload, ","); i >= 0 {
		payload = payload[i+1:]
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
}
