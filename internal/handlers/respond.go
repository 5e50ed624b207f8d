package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/securecontrol/backend/internal/errs"
)

// respondError maps service errors onto HTTP status codes. Dependency
// failures are logged server-side and surfaced as a generic 500 so internal
// details never leak to clients.
func respondError(c *gin.Context, err error) {
	switch {
	case errs.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errs.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errs.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errs.IsSecurity(err):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		log.Printf("error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
