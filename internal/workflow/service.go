package workflow

import (
	"errors"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/securecontrol/backend/internal/audit"
	"github.com/securecontrol/backend/internal/errs"
	"github.com/securecontrol/backend/internal/models"
	"github.com/securecontrol/backend/internal/policy"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Analyzer screens a transaction against the active policy rules
type Analyzer interface {
	Analyze(tx models.Transaction) (*policy.Result, error)
}

// Notifier broadcasts review-queue events to checkers. Failures are
// non-fatal for the workflow.
type Notifier interface {
	TransactionSubmitted(tx models.Transaction, flagged bool)
}

// Service owns the maker-checker transaction lifecycle
type Service struct {
	store      Store
	analyzer   Analyzer
	violations policy.ViolationStore
	auditor    audit.Recorder
	notifier   Notifier
}

// NewService creates a new workflow service
func NewService(store Store, analyzer Analyzer, violations policy.ViolationStore, auditor audit.Recorder, notifier Notifier) *Service {
	return &Service{
		store:      store,
		analyzer:   analyzer,
		violations: violations,
		auditor:    auditor,
		notifier:   notifier,
	}
}

// CreateInput carries maker-supplied transaction fields
type CreateInput struct {
	Type               models.TransactionType
	Amount             decimal.Decimal
	Currency           string
	SourceAccount      string
	DestinationAccount string
	Description        string
	CreatedBy          uuid.UUID
}

// validate checks the input shape before anything is persisted
func (in CreateInput) validate() error {
	if !models.ValidTransactionType(in.Type) {
		return errs.Validation("transaction_type", "unknown transaction type")
	}
	if !in.Amount.IsPositive() {
		return errs.Validation("amount", "amount must be positive")
	}
	if strings.TrimSpace(in.Currency) == "" {
		return errs.Validation("currency", "currency is required")
	}
	if strings.TrimSpace(in.SourceAccount) == "" {
		return errs.Validation("source_account", "source account is required")
	}
	if strings.TrimSpace(in.DestinationAccount) == "" {
		return errs.Validation("destination_account", "destination account is required")
	}
	if in.CreatedBy == uuid.Nil {
		return errs.Validation("created_by", "creator is required")
	}
	return nil
}

// Create persists a transaction as pending, screens it synchronously, saves
// any violations, and auto-flags when the risk score reaches the threshold.
// The created record is returned regardless of the flagging outcome. When
// screening itself fails the transaction stays pending and unscreened; a
// human review is still required before any approval, so nothing is
// auto-approved on that path.
func (s *Service) Create(input CreateInput) (*models.Transaction, *policy.Result, error) {
	if err := input.validate(); err != nil {
		return nil, nil, err
	}

	tx := models.Transaction{
		Type:               input.Type,
		Amount:             input.Amount,
		Currency:           strings.ToUpper(strings.TrimSpace(input.Currency)),
		SourceAccount:      strings.TrimSpace(input.SourceAccount),
		DestinationAccount: strings.TrimSpace(input.DestinationAccount),
		Description:        strings.TrimSpace(input.Description),
		Status:             models.StatusPending,
		CreatedBy:          input.CreatedBy,
	}
	if err := s.store.Insert(&tx); err != nil {
		return nil, nil, errs.Dependency("persist transaction", err)
	}

	analysis, err := s.analyzer.Analyze(tx)
	if err != nil {
		// Could not screen. The transaction stays pending so a checker
		// still has to look before anything is approved.
		log.Printf("warning: policy screening failed for transaction %s: %v", tx.ID, err)
		s.recordCreated(tx, nil)
		return &tx, nil, nil
	}

	if len(analysis.Violations) > 0 {
		if err := s.violations.SaveViolations(analysis.Violations); err != nil {
			log.Printf("error: failed to save %d violation(s) for transaction %s: %v",
				len(analysis.Violations), tx.ID, err)
		}
	}

	flagged := false
	if analysis.RiskScore >= policy.FlagThreshold {
		applied, err := s.store.Flag(tx.ID)
		if err != nil {
			log.Printf("warning: failed to flag transaction %s: %v", tx.ID, err)
		} else if applied {
			tx.Status = models.StatusFlagged
			flagged = true
		}
	}

	s.recordCreated(tx, analysis)

	if s.notifier != nil {
		s.notifier.TransactionSubmitted(tx, flagged)
	}
	return &tx, analysis, nil
}

// Approve records a checker's approval. Fails with NotFoundError when the
// transaction does not exist and ConflictError when it has already reached
// a terminal status, including losing a concurrent review race.
func (s *Service) Approve(transactionID, reviewer uuid.UUID, notes string) error {
	return s.review(transactionID, reviewer, models.StatusApproved, notes)
}

// Reject records a checker's rejection. Notes are mandatory so every
// rejection carries a documented reason.
func (s *Service) Reject(transactionID, reviewer uuid.UUID, notes string) error {
	if strings.TrimSpace(notes) == "" {
		return errs.Validation("notes", "rejection notes are required")
	}
	return s.review(transactionID, reviewer, models.StatusRejected, notes)
}

func (s *Service) review(transactionID, reviewer uuid.UUID, decision models.TransactionStatus, notes string) error {
	tx, err := s.store.GetByID(transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NotFound("transaction", transactionID.String())
		}
		return errs.Dependency("load transaction", err)
	}

	if tx.Status.Terminal() {
		return errs.Conflict("transaction has already been reviewed")
	}

	// Dual-control gap: the current contract does not forbid a maker
	// reviewing their own transaction. Surfaced in the log until the
	// intended guarantee is confirmed.
	if tx.CreatedBy == reviewer {
		log.Printf("warning: reviewer %s is the creator of transaction %s", reviewer, transactionID)
	}

	applied, err := s.store.ApplyReview(transactionID, decision, reviewer, notes)
	if err != nil {
		return errs.Dependency("apply review decision", err)
	}
	if !applied {
		return errs.Conflict("transaction has already been reviewed")
	}

	action := models.ActionTransactionApproved
	if decision == models.StatusRejected {
		action = models.ActionTransactionRejected
	}
	auditErr := s.auditor.Record(audit.Entry{
		Actor:      reviewer,
		Action:     action,
		EntityType: "transaction",
		EntityID:   transactionID.String(),
		OldValues:  models.JSON{"status": string(tx.Status)},
		NewValues:  models.JSON{"status": string(decision), "checker_notes": notes},
	})
	if auditErr != nil {
		log.Printf("warning: audit write failed for %s on transaction %s: %v", action, transactionID, auditErr)
	}
	return nil
}

// Get loads a single transaction with its violations
func (s *Service) Get(transactionID uuid.UUID) (*models.Transaction, error) {
	tx, err := s.store.GetByID(transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("transaction", transactionID.String())
		}
		return nil, errs.Dependency("load transaction", err)
	}
	return tx, nil
}

// List returns transactions matching the filter
func (s *Service) List(filter ListFilter) ([]models.Transaction, int64, error) {
	txs, count, err := s.store.List(filter)
	if err != nil {
		return nil, 0, errs.Dependency("list transactions", err)
	}
	return txs, count, nil
}

// recordCreated writes the single audit entry for a creation, including the
// screening outcome when available
func (s *Service) recordCreated(tx models.Transaction, analysis *policy.Result) {
	newVals := models.JSON{
		"status":              string(tx.Status),
		"transaction_type":    string(tx.Type),
		"amount":              tx.Amount.String(),
		"currency":            tx.Currency,
		"destination_account": tx.DestinationAccount,
	}
	if analysis != nil {
		newVals["risk_score"] = analysis.RiskScore
		newVals["violation_count"] = len(analysis.Violations)
	}
	err := s.auditor.Record(audit.Entry{
		Actor:      tx.CreatedBy,
		Action:     models.ActionTransactionCreated,
		EntityType: "transaction",
		EntityID:   tx.ID.String(),
		NewValues:  newVals,
	})
	if err != nil {
		log.Printf("warning: audit write failed for TRANSACTION_CREATED on %s: %v", tx.ID, err)
	}
}
