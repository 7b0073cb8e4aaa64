package api

import (
	"errors"
	"net/http"                   // HTTP status codes
	"strconv"                    // String conversion
	"travel_tax/internal/domain" // Error taxonomy

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// statusFor maps error kinds to HTTP status codes
var statusFor = map[domain.Kind]int{
	domain.KindValidation:   http.StatusBadRequest,
	domain.KindUnauthorized: http.StatusUnauthorized,
	domain.KindConflict:     http.StatusConflict,
	domain.KindNotFound:     http.StatusNotFound,
}

// respondError renders classified errors with their detail; anything else is a 500
func respondError(c *gin.Context, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		c.JSON(statusFor[de.Kind], gin.H{"error": de.Detail})
		return
	}
	logrus.WithFields(logrus.Fields{
		"method": c.Request.Method,
		"path":   c.FullPath(),
		"error":  err.Error(),
	}).Error("Unhandled error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

// invalidRequest answers a request whose body or query could not be bound
func invalidRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
}

// pathID parses a positive numeric path parameter
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}
