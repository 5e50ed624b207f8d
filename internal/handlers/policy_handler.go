package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/securecontrol/backend/internal/middleware"
	"github.com/securecontrol/backend/internal/models"
	"github.com/securecontrol/backend/internal/policy"
	"github.com/shopspring/decimal"
)

// PolicyHandler exposes rule management and ad-hoc screening
type PolicyHandler struct {
	rules  *policy.RuleService
	engine *policy.Engine
}

// NewPolicyHandler creates a new policy handler
func NewPolicyHandler(rules *policy.RuleService, engine *policy.Engine) *PolicyHandler {
	return &PolicyHandler{rules: rules, engine: engine}
}

// CreateRuleRequest represents the request body for a new rule
type CreateRuleRequest struct {
	Name        string           `json:"name" binding:"required"`
	Type        models.RuleType  `json:"rule_type" binding:"required"`
	Threshold   *decimal.Decimal `json:"threshold"`
	Active      bool             `json:"active"`
	Description string           `json:"description"`
}

// UpdateRuleRequest represents the request body for a rule update
type UpdateRuleRequest struct {
	Active    *bool            `json:"active"`
	Threshold *decimal.Decimal `json:"threshold"`
}

// AnalyzeRequest represents the request body for a screening preview
type AnalyzeRequest struct {
	Type               models.TransactionType `json:"transaction_type" binding:"required"`
	Amount             decimal.Decimal        `json:"amount" binding:"required"`
	Currency           string                 `json:"currency" binding:"required,len=3"`
	SourceAccount      string                 `json:"source_account" binding:"required"`
	DestinationAccount string                 `json:"destination_account" binding:"required"`
}

// List returns all policy rules
func (h *PolicyHandler) List(c *gin.Context) {
	rules, err := h.rules.List()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

// Create adds a policy rule
func (h *PolicyHandler) Create(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	rule, err := h.rules.Create(actor, policy.RuleInput{
		Name:        req.Name,
		Type:        req.Type,
		Threshold:   req.Threshold,
		Active:      req.Active,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"rule": rule})
}

// Update changes a rule's active flag or threshold
func (h *PolicyHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rule id"})
		return
	}

	var req UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Active == nil && req.Threshold == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	actor, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var rule *models.PolicyRule
	if req.Threshold != nil {
		rule, err = h.rules.UpdateThreshold(actor, id, *req.Threshold)
		if err != nil {
			respondError(c, err)
			return
		}
	}
	if req.Active != nil {
		rule, err = h.rules.SetActive(actor, id, *req.Active)
		if err != nil {
			respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"rule": rule})
}

// Analyze screens a prospective transaction without persisting anything.
// Makers use this to preview violations before submitting.
func (h *PolicyHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.engine.Analyze(models.Transaction{
		Type:               req.Type,
		Amount:             req.Amount,
		Currency:           req.Currency,
		SourceAccount:      req.SourceAccount,
		DestinationAccount: req.DestinationAccount,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"risk_score":      result.RiskScore,
		"violations":      result.Violations,
		"recommendations": result.Recommendations,
	})
}
