package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/auth"
	"rollcall/internal/directory"
)

// register creates an account. Unknown body fields land in the user's
// bounded extension map instead of being rejected.
func (s *Server) register(c *gin.Context) {
	var body map[string]any
	if err := json.NewDecoder(c.Request.Body).Decode(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	str := func(key string) string {
		v, _ := body[key].(string)
		return v
	}
	userID := str("studentId")
	if userID == "" {
		userID = str("teacherId")
	}
	in := directory.RegisterInput{
		FullName: str("fullName"),
		Email:    str("email"),
		UserID:   userID,
		Role:     str("role"),
		Password: str("password"),
	}
	for _, known := range []string{"fullName", "email", "studentId", "teacherId", "role", "password"} {
		delete(body, known)
	}
	in.Extra = body

	u, err := s.Users.Register(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Registration successful", "user": u})
}

// login checks credentials and issues a token pair.
func (s *Server) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing email or password"})
		return
	}

	u, err := s.Users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	tokens, err := auth.Issue(u.ID, u.Role, s.JWTIssuer, s.JWTSigningKey, s.AccessTTL, s.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"user":          u,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}
