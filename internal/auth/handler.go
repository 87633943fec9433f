package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/authgate/internal/users"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// HandleLogin は POST /api/auth/login のハンドラーです。
func (m *Manager) HandleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, ErrMissingField)
		return
	}

	result, err := m.Login(c.Request.Context(), sessions.Default(c), req.Username, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.Header(csrfHeader, result.CSRFToken)
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    result.User,
	})
}

// HandleLogout は POST /api/auth/logout のハンドラーです。
func (m *Manager) HandleLogout(c *gin.Context) {
	if err := m.Logout(c.Request.Context(), sessions.Default(c)); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

// HandleCurrentUser は GET /api/auth/me のハンドラーです。
func (m *Manager) HandleCurrentUser(c *gin.Context) {
	user, err := m.CurrentUser(c.Request.Context(), sessions.Default(c))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// HandleProfile は RequireSession の後段で使うハンドラーです。
func (m *Manager) HandleProfile(c *gin.Context) {
	userID := c.GetInt64(ContextUserIDKey)
	user, err := m.store.FindByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			m.discard(sessions.Default(c))
			respondWithError(c, ErrUnauthorized)
			return
		}
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.Public()})
}

// HandleRegister は POST /api/auth/register のハンドラーです。
func (m *Manager) HandleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "All fields required"})
		return
	}

	user, err := m.store.Insert(c.Request.Context(), users.Candidate{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		if errors.Is(err, users.ErrDuplicateUser) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "User already exists"})
			return
		}
		m.logger.ErrorContext(c.Request.Context(), "register failed", "error", err)
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    user.Public(),
	})
}

// HandleSignup は POST /api/auth/signup のハンドラーです。
func (m *Manager) HandleSignup(c *gin.Context) {
	var in users.SignupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		in = users.SignupInput{}
	}

	if errs := in.Validate(); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"errors":  errs,
		})
		return
	}

	ctx := c.Request.Context()
	candidate := in.Candidate()
	if m.exists(ctx, candidate.Username, candidate.Email) {
		respondConflict(c)
		return
	}

	user, err := m.store.Insert(ctx, candidate)
	if err != nil {
		if errors.Is(err, users.ErrDuplicateUser) || errors.Is(err, users.ErrDuplicateEmail) {
			respondConflict(c)
			return
		}
		m.logger.ErrorContext(ctx, "signup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "An error occurred during signup",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Account created successfully",
		"user":    user.Profile(),
	})
}

// HandleCheckExists は GET /api/users/exists のハンドラーです。
func (m *Manager) HandleCheckExists(c *gin.Context) {
	ctx := c.Request.Context()

	if username := c.Query("username"); username != "" {
		_, err := m.store.FindByUsername(ctx, username)
		if err != nil && !errors.Is(err, users.ErrNotFound) {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"username": username, "exists": err == nil})
		return
	}

	if email := c.Query("email"); email != "" {
		_, err := m.store.FindByEmail(ctx, strings.ToLower(email))
		if err != nil && !errors.Is(err, users.ErrNotFound) {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"email": email, "exists": err == nil})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{"message": "Provide username or email to check"})
}

// HandleListUsers は GET /api/users のハンドラーです（検証用）。
func (m *Manager) HandleListUsers(c *gin.Context) {
	list, err := m.store.List(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	profiles := make([]users.Profile, 0, len(list))
	for _, u := range list {
		profiles = append(profiles, u.Profile())
	}
	c.JSON(http.StatusOK, gin.H{"users": profiles})
}

// HandleResetUsers は POST /api/users/reset のハンドラーです（検証用）。
func (m *Manager) HandleResetUsers(c *gin.Context) {
	if err := m.store.Reset(c.Request.Context()); err != nil {
		respondWithError(c, err)
		return
	}
	m.logger.WarnContext(c.Request.Context(), "all users removed")
	c.JSON(http.StatusOK, gin.H{"message": "Users reset successfully"})
}

func (m *Manager) exists(ctx context.Context, username, email string) bool {
	if _, err := m.store.FindByUsername(ctx, username); err == nil {
		return true
	}
	if _, err := m.store.FindByEmail(ctx, email); err == nil {
		return true
	}
	return false
}

func respondConflict(c *gin.Context) {
	c.JSON(http.StatusConflict, gin.H{
		"success": false,
		"message": "Username or email already registered",
	})
}
