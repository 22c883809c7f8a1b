package auth

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookfinder/internal/config"
	"github.com/mrlokans/bookfinder/internal/entities"
)

// AuditLogger receives sign-in and registration outcomes.
type AuditLogger interface {
	LogAuth(identity, action, ipAddr string, success bool)
}

// AuthController serves the JSON authentication endpoints.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	rateLimiter    *RateLimiter
	auditLogger    AuditLogger
}

type registerRequest struct {
	Email       string `json:"email" binding:"required,email,max=254"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name" binding:"max=100"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID          uint              `json:"id"`
	Email       string            `json:"email"`
	DisplayName string            `json:"display_name,omitempty"`
	Role        entities.UserRole `json:"role"`
}

func toUserResponse(u *entities.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, Role: u.Role}
}

func NewAuthController(service *Service, sessionManager *SessionManager, cfg config.Auth) *AuthController {
	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		rateLimiter: NewRateLimiter(RateLimitConfig{
			MaxAttempts:     cfg.MaxLoginAttempts,
			WindowDuration:  cfg.RateLimitWindow,
			LockoutDuration: cfg.LockoutDuration,
		}),
	}
}

// SetAuditLogger enables audit records for register, login and logout.
func (ac *AuthController) SetAuditLogger(l AuditLogger) {
	ac.auditLogger = l
}

func (ac *AuthController) logAuth(c *gin.Context, identity, action string, success bool) {
	if ac.auditLogger != nil {
		ac.auditLogger.LogAuth(identity, action, c.ClientIP(), success)
	}
}

// RegisterRoutes mounts the endpoints on group (normally /api/auth). The
// current-user and token endpoints are wrapped with requireAuth.
func (ac *AuthController) RegisterRoutes(group *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	group.POST("/register", ac.Register)
	group.POST("/login", ac.Login)
	group.POST("/logout", ac.Logout)
	group.GET("/me", requireAuth, ac.Me)
	group.POST("/token", requireAuth, ac.GenerateToken)
	group.DELETE("/token", requireAuth, ac.RevokeToken)
}

// Stop releases the rate limiter's cleanup goroutine.
func (ac *AuthController) Stop() {
	ac.rateLimiter.Stop()
}

// Register creates an account and signs it in.
func (ac *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a valid email and password are required"})
		return
	}

	user, err := ac.service.Register(req.Email, req.Password, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserExists):
			c.JSON(http.StatusConflict, gin.H{"error": "an account with this email already exists"})
		case errors.Is(err, ErrPasswordTooShort),
			errors.Is(err, ErrPasswordTooLong),
			errors.Is(err, ErrEmailInvalid),
			errors.Is(err, ErrEmailRequired),
			errors.Is(err, ErrPasswordRequired):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			log.Printf("[AUTH] ERROR: registration failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create account"})
		}
		return
	}

	if err := ac.sessionManager.CreateSession(c.Request.Context(), user); err != nil {
		log.Printf("[AUTH] ERROR: failed to create session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	ac.logAuth(c, user.Identity(), "register", true)
	c.JSON(http.StatusCreated, gin.H{"user": toUserResponse(user)})
}

// Login checks credentials and starts a session.
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	email := NormalizeEmail(req.Email)
	clientIP := c.ClientIP()

	if allowed, retryAfter := ac.rateLimiter.Allow(clientIP, email); !allowed {
		tooManyAttempts(c, retryAfter)
		return
	}

	user, err := ac.service.Authenticate(email, req.Password)
	if err != nil {
		ac.rateLimiter.RecordFailure(clientIP, email)
		ac.logAuth(c, email, "login", false)
		if errors.Is(err, ErrAccountLocked) {
			c.JSON(http.StatusLocked, gin.H{"error": "account is locked, try again later"})
			return
		}
		if !errors.Is(err, ErrUserNotFound) && !errors.Is(err, ErrInvalidPassword) {
			log.Printf("[AUTH] ERROR: login failed: %v", err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	ac.rateLimiter.RecordSuccess(clientIP, email)

	if err := ac.sessionManager.CreateSession(c.Request.Context(), user); err != nil {
		log.Printf("[AUTH] ERROR: failed to create session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	ac.logAuth(c, user.Identity(), "login", true)
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}

// Logout destroys the session. It succeeds for anonymous callers too.
func (ac *AuthController) Logout(c *gin.Context) {
	if identity, ok := GetIdentity(c); ok {
		ac.logAuth(c, identity, "logout", true)
	}
	if err := ac.sessionManager.DestroySession(c.Request.Context()); err != nil {
		log.Printf("[AUTH] WARNING: failed to destroy session: %v", err)
	}
	c.JSON(http.StatusOK, gin.H{"message": "signed out"})
}

// Me returns the authenticated user.
func (ac *AuthController) Me(c *gin.Context) {
	user, err := ac.service.GetUserByID(GetUserID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":      toUserResponse(user),
		"auth_type": GetAuthType(c),
	})
}

// GenerateToken issues an API token for the authenticated user.
func (ac *AuthController) GenerateToken(c *gin.Context) {
	token, err := ac.service.GenerateToken(GetUserID(c))
	if err != nil {
		log.Printf("[AUTH] ERROR: failed to generate token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"message": "Store this token securely - it will not be shown again",
	})
}

// RevokeToken removes the authenticated user's API token.
func (ac *AuthController) RevokeToken(c *gin.Context) {
	if err := ac.service.RevokeToken(GetUserID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "token revoked"})
}
