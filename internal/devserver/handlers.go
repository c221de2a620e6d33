package devserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type verifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

type resendOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type updateProfileRequest struct {
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password" binding:"omitempty,min=6"`
}

type userDetail struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type adminUserDetail struct {
	ID            int64  `json:"id"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"email_verified"`
	CreatedAt     string `json:"created_at"`
}

func detail(u *user) userDetail {
	return userDetail{ID: u.ID, Email: u.Email, Role: u.Role}
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and a password of at least 6 characters are required"})
		return
	}

	if req.Role != roleUser && req.Role != roleAdmin {
		req.Role = roleUser
	}

	u, err := s.users.create(req.Email, req.Password, req.Role, !s.opts.RequireVerification)
	if errors.Is(err, errEmailTaken) {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	if s.opts.RequireVerification {
		resp, ok := s.passcodeResponse(c, u.Email, "Registration successful. Please verify your email with the passcode sent to you.")
		if !ok {
			return
		}
		c.JSON(http.StatusCreated, resp)
		return
	}

	token, err := s.tokens.issue(u)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"token":   token,
		"user":    detail(u),
	})
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	u, ok := s.users.authenticate(req.Email, req.Password)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if s.opts.OTPOnLogin || !u.EmailVerified {
		resp, ok := s.passcodeResponse(c, u.Email, "Passcode sent to your email")
		if !ok {
			return
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	s.respondWithToken(c, u, "")
}

func (s *Server) verifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	u, err := s.users.consumeOTP(req.Email, req.Code)
	switch {
	case errors.Is(err, errBadOTP):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid OTP"})
		return
	case errors.Is(err, errOTPUsed):
		c.JSON(http.StatusBadRequest, gin.H{"error": "OTP already used"})
		return
	case errors.Is(err, errOTPExpired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "OTP expired"})
		return
	case err != nil:
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	s.respondWithToken(c, u, "Email verified successfully")
}

func (s *Server) resendOTP(c *gin.Context) {
	var req resendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	u, ok := s.users.byEmail(req.Email)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	resp, ok := s.passcodeResponse(c, u.Email, "OTP sent successfully")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getProfile(c *gin.Context) {
	u, _ := currentUser(c)
	c.JSON(http.StatusOK, detail(u))
}

func (s *Server) updateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	u, _ := currentUser(c)
	err := s.users.update(u.ID, req.Email, req.Password)
	if errors.Is(err, errEmailTaken) {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already in use"})
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to update profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully"})
}

func (s *Server) listUsers(c *gin.Context) {
	users := s.users.list()
	out := make([]adminUserDetail, 0, len(users))
	for _, u := range users {
		out = append(out, adminUserDetail{
			ID:            u.ID,
			Email:         u.Email,
			Role:          u.Role,
			EmailVerified: u.EmailVerified,
			CreatedAt:     u.CreatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) deleteUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	if admin, _ := currentUser(c); admin.ID == id {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete your own account"})
		return
	}

	if !s.users.delete(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

// passcodeResponse issues a passcode for email and builds the pending reply
func (s *Server) passcodeResponse(c *gin.Context, email, message string) (gin.H, bool) {
	issued, err := s.users.issueOTP(email)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate OTP")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate OTP"})
		return nil, false
	}

	s.logger.Info().Str("email", email).Msg("Issued passcode")
	if s.opts.Mailer != nil {
		if err := s.opts.Mailer.SendPasscode(c.Request.Context(), email, issued.Code, issued.ExpiresAt); err != nil {
			// The passcode stays valid; resend-otp can try again
			s.logger.Error().Err(err).Str("email", email).Msg("Failed to queue passcode email")
		}
	}

	resp := gin.H{
		"message":      message,
		"otp_required": true,
	}
	if s.opts.EchoOTP {
		resp["otp"] = issued.Code
	}
	return resp, true
}

func (s *Server) respondWithToken(c *gin.Context, u *user, message string) {
	token, err := s.tokens.issue(u)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	resp := gin.H{
		"token": token,
		"user":  detail(u),
	}
	if message != "" {
		resp["message"] = message
	}
	c.JSON(http.StatusOK, resp)
}
