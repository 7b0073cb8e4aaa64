package api

import (
	"net/http"
	"travel_tax/internal/config"
	"travel_tax/internal/domain"
	"travel_tax/internal/metrics"
	"travel_tax/internal/middleware"
	"travel_tax/internal/store"
	"travel_tax/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// UpdateUserRequest carries optional profile fields
type UpdateUserRequest struct {
	Username  *string `json:"username"`
	Password  *string `json:"password"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email" binding:"omitempty,len=0|email"`
	CitizenID *string `json:"citizen_id" binding:"omitempty,len=0|numeric,len=0|len=13"`
}

// CreateUserHandler lets an authenticated user create another account
func CreateUserHandler(st *store.Store, cfg *config.Config, m *metrics.Metrics) gin.HandlerFunc {
	return RegisterHandler(st, cfg, m)
}

// ListUsersHandler returns every user
func ListUsersHandler(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := st.ListUsers(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

// GetUserHandler returns one user
func GetUserHandler(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		user, err := st.GetUser(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// UpdateUserHandler patches a user; only the user or an admin may do so
func UpdateUserHandler(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok || !selfOrAdmin(c, id) {
			return
		}
		var req UpdateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidRequest(c)
			return
		}
		if req.Username != nil && !isValidUsername(*req.Username) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username must be 3-64 letters, digits, '.', '_' or '-'"})
			return
		}
		if req.Password != nil && !isValidPassword(*req.Password) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be 6-72 characters"})
			return
		}
		user, err := st.UpdateUser(c.Request.Context(), id, store.UserUpdate{
			Username:  req.Username,
			Password:  req.Password,
			Phone:     req.Phone,
			Email:     req.Email,
			CitizenID: req.CitizenID,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id":          user.ID,
			"password_changed": req.Password != nil,
		}).Info("User updated")
		c.JSON(http.StatusOK, user)
	}
}

// DeleteUserHandler removes a user and everything they own
func DeleteUserHandler(st *store.Store, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok || !selfOrAdmin(c, id) {
			return
		}
		if err := st.DeleteUser(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		invalidateProvinces(c, cache) // selections went with the user
		logrus.WithField("user_id", id).Info("User deleted")
		c.Status(http.StatusNoContent)
	}
}

// selfOrAdmin aborts with 403 unless the caller is user id or an admin
func selfOrAdmin(c *gin.Context, id uint) bool {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return false
	}
	if user.ID != id && user.Role != domain.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to modify another user"})
		return false
	}
	return true
}
