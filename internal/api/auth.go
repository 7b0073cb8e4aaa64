package api

import (
	"errors"
	"net/http"                    // HTTP status codes
	"regexp"                      // Regular expressions
	"travel_tax/internal/config"  // Configuration
	"travel_tax/internal/domain"  // Domain models
	"travel_tax/internal/metrics" // Prometheus metrics
	"travel_tax/internal/store"   // Persistence
	"travel_tax/internal/utils"   // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// Request struct for registration
type RegisterRequest struct {
	Username  string  `json:"username" binding:"required"`                               // Username must be provided
	Password  string  `json:"password" binding:"required"`                               // Password must be provided
	Phone     string  `json:"phone"`                                                     // Contact phone
	Email     *string `json:"email" binding:"omitempty,len=0|email"`                     // Optional email
	CitizenID *string `json:"citizen_id" binding:"omitempty,len=0|numeric,len=0|len=13"` // Optional 13-digit citizen ID
}

// Request struct for login; accepts form posts and JSON
type LoginRequest struct {
	Username string `form:"username" json:"username" binding:"required"` // Username must be provided
	Password string `form:"password" json:"password" binding:"required"` // Password must be provided
}

// Response struct for authentication
type TokenResponse struct {
	AccessToken string `json:"access_token"` // JWT token
	TokenType   string `json:"token_type"`   // Always "bearer"
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,64}$`)

// isValidUsername checks the username charset and length
func isValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// isValidPassword checks the password length; bcrypt ignores bytes past 72
func isValidPassword(password string) bool {
	return len(password) >= 6 && len(password) <= 72
}

// RegisterHandler creates an account and returns it without the password hash
func RegisterHandler(st *store.Store, cfg *config.Config, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidRequest(c)
			return
		}
		if !isValidUsername(req.Username) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username must be 3-64 letters, digits, '.', '_' or '-'"})
			return
		}
		if !isValidPassword(req.Password) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be 6-72 characters"})
			return
		}
		role := domain.RoleUser
		if cfg.IsAdminUsername(req.Username) {
			role = domain.RoleAdmin
		}
		user, err := st.RegisterUser(c.Request.Context(), store.NewUser{
			Username:  req.Username,
			Password:  req.Password,
			Phone:     req.Phone,
			Email:     req.Email,
			CitizenID: req.CitizenID,
			Role:      role,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		m.UsersRegistered.Inc()
		logrus.WithFields(logrus.Fields{
			"user_id":  user.ID,
			"username": user.Username,
			"role":     user.Role,
		}).Info("User registered")
		c.JSON(http.StatusCreated, user)
	}
}

// LoginHandler authenticates a user and returns a bearer token
func LoginHandler(st *store.Store, cfg *config.Config, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBind(&req); err != nil {
			invalidRequest(c)
			return
		}
		user, err := st.AuthenticatePassword(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			if errors.Is(err, domain.ErrUnauthorized) {
				m.LoginFailures.Inc()
				logrus.WithField("username", req.Username).Warn("Login failed")
			}
			respondError(c, err)
			return
		}
		token, err := utils.GenerateJWT(user.Username, cfg.JWTSecret, cfg.JWTTTL)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, TokenResponse{AccessToken: token, TokenType: utils.TokenType})
	}
}
