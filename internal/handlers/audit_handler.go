package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/securecontrol/backend/internal/audit"
	"github.com/securecontrol/backend/internal/models"
)

// AuditHandler exposes read-only access to the audit trail
type AuditHandler struct {
	logger *audit.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(logger *audit.Logger) *AuditHandler {
	return &AuditHandler{logger: logger}
}

// List returns audit entries matching the query filters, newest first
func (h *AuditHandler) List(c *gin.Context) {
	filter := audit.QueryFilter{
		EntityType: c.Query("entity_type"),
	}

	if raw := c.Query("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		filter.UserID = &id
	}
	if action := c.Query("action"); action != "" {
		filter.Actions = []models.AuditAction{models.AuditAction(action)}
	}
	if raw := c.Query("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start time, expected RFC3339"})
			return
		}
		filter.StartTime = &t
	}
	if raw := c.Query("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end time, expected RFC3339"})
			return
		}
		filter.EndTime = &t
	}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	logs, total, err := h.logger.Query(filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"total": total,
	})
}
