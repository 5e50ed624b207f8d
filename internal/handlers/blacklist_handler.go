package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/securecontrol/backend/internal/blacklist"
	"github.com/securecontrol/backend/internal/middleware"
)

// BlacklistHandler exposes blacklist management to admins
type BlacklistHandler struct {
	service *blacklist.Service
}

// NewBlacklistHandler creates a new blacklist handler
func NewBlacklistHandler(service *blacklist.Service) *BlacklistHandler {
	return &BlacklistHandler{service: service}
}

// AddBlacklistRequest represents the request body for a new entry
type AddBlacklistRequest struct {
	AccountNumber string `json:"account_number" binding:"required"`
	EntityName    string `json:"entity_name"`
	Reason        string `json:"reason" binding:"required"`
}

// UpdateBlacklistRequest represents the request body for toggling an entry
type UpdateBlacklistRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// List returns blacklist entries, optionally only active ones
func (h *BlacklistHandler) List(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	entries, err := h.service.List(activeOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// Add creates a blacklist entry
func (h *BlacklistHandler) Add(c *gin.Context) {
	var req AddBlacklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	entry, err := h.service.Add(actor, req.AccountNumber, req.EntityName, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

// Update toggles an entry's active flag
func (h *BlacklistHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid entry id"})
		return
	}

	var req UpdateBlacklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	entry, err := h.service.SetActive(actor, id, *req.Active)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

// Remove deletes an entry
func (h *BlacklistHandler) Remove(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid entry id"})
		return
	}

	actor, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	if err := h.service.Remove(actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Entry removed"})
}
