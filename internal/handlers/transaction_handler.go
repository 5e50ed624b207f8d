package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/securecontrol/backend/internal/middleware"
	"github.com/securecontrol/backend/internal/models"
	"github.com/securecontrol/backend/internal/workflow"
	"github.com/shopspring/decimal"
)

// TransactionHandler exposes the maker-checker transaction lifecycle
type TransactionHandler struct {
	service *workflow.Service
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(service *workflow.Service) *TransactionHandler {
	return &TransactionHandler{service: service}
}

// CreateTransactionRequest represents the request body for submission
type CreateTransactionRequest struct {
	Type               models.TransactionType `json:"transaction_type" binding:"required"`
	Amount             decimal.Decimal        `json:"amount" binding:"required"`
	Currency           string                 `json:"currency" binding:"required,len=3"`
	SourceAccount      string                 `json:"source_account" binding:"required"`
	DestinationAccount string                 `json:"destination_account" binding:"required"`
	Description        string                 `json:"description"`
}

// ReviewRequest represents the request body for a review decision
type ReviewRequest struct {
	Notes string `json:"notes"`
}

// Create submits a transaction for review. The response carries the stored
// record plus the screening result so the maker sees any violations
// immediately.
func (h *TransactionHandler) Create(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	tx, analysis, err := h.service.Create(workflow.CreateInput{
		Type:               req.Type,
		Amount:             req.Amount,
		Currency:           req.Currency,
		SourceAccount:      req.SourceAccount,
		DestinationAccount: req.DestinationAccount,
		Description:        req.Description,
		CreatedBy:          userID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response := gin.H{"transaction": tx}
	if analysis != nil {
		response["risk_score"] = analysis.RiskScore
		response["violations"] = analysis.Violations
		response["recommendations"] = analysis.Recommendations
	}
	c.JSON(http.StatusCreated, response)
}

// List returns transactions matching the query filters
func (h *TransactionHandler) List(c *gin.Context) {
	filter := workflow.ListFilter{}

	if status := c.Query("status"); status != "" {
		filter.Statuses = []models.TransactionStatus{models.TransactionStatus(status)}
	}
	if mine := c.Query("mine"); mine == "true" {
		if userID, ok := middleware.CurrentUserID(c); ok {
			filter.CreatedBy = &userID
		}
	}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "25"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	transactions, total, err := h.service.List(filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": transactions,
		"total":        total,
	})
}

// Get returns one transaction with its violations
func (h *TransactionHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction id"})
		return
	}

	tx, err := h.service.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// Approve records an approval decision
func (h *TransactionHandler) Approve(c *gin.Context) {
	h.review(c, models.StatusApproved)
}

// Reject records a rejection decision
func (h *TransactionHandler) Reject(c *gin.Context) {
	h.review(c, models.StatusRejected)
}

func (h *TransactionHandler) review(c *gin.Context, decision models.TransactionStatus) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction id"})
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil && decision == models.StatusRejected {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reviewer, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	if decision == models.StatusApproved {
		err = h.service.Approve(id, reviewer, req.Notes)
	} else {
		err = h.service.Reject(id, reviewer, req.Notes)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Transaction " + string(decision),
		"status":  decision,
	})
}
