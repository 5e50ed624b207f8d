package policy

import (
	"fmt"
	"strings"
	"time"

	"github.com/securecontrol/backend/internal/errs"
	"github.com/securecontrol/backend/internal/models"
	"github.com/shopspring/decimal"
)

// DuplicateWindowHours is the trailing window for duplicate detection
const DuplicateWindowHours = 24

// FlagThreshold is the aggregate risk score at or above which the caller
// should move a transaction to flagged
const FlagThreshold = 40

// maxRiskScore caps the aggregate risk score
const maxRiskScore = 100

// Fixed recommendation texts, emitted in this order
const (
	recommendManualReview   = "Review transaction details carefully before approval"
	recommendEscalation     = "Escalate to senior management for approval"
	recommendVerifyIdentity = "Verify beneficiary identity before processing"
)

// BusinessHours configures the time_based rule
type BusinessHours struct {
	StartHour   int // inclusive
	EndHour     int // exclusive
	WorkingDays map[time.Weekday]bool
}

// DefaultBusinessHours is Mon-Fri 09:00-18:00
func DefaultBusinessHours() BusinessHours {
	return BusinessHours{
		StartHour: 9,
		EndHour:   18,
		WorkingDays: map[time.Weekday]bool{
			time.Monday:    true,
			time.Tuesday:   true,
			time.Wednesday: true,
			time.Thursday:  true,
			time.Friday:    true,
		},
	}
}

// RuleSource provides the active policy rules at evaluation time
type RuleSource interface {
	ActiveRules() ([]models.PolicyRule, error)
}

// HistorySource counts recent transactions similar to the one under
// analysis, excluding the transaction itself
type HistorySource interface {
	CountSimilar(exclude models.Transaction, since time.Time) (int64, error)
}

// BlacklistSource looks up an active blacklist entry matching any of the
// given account numbers. A nil entry means no match.
type BlacklistSource interface {
	FindActiveMatch(accounts ...string) (*models.BlacklistEntry, error)
}

// Result is the outcome of screening one transaction
type Result struct {
	Violations      []models.PolicyViolation `json:"violations"`
	RiskScore       int                      `json:"risk_score"`
	Recommendations []string                 `json:"recommendations"`
}

// Engine evaluates all active policy rules against a transaction. It is
// pure with respect to its inputs apart from the three source reads and
// performs no persistence itself; SaveViolations is a separate step.
type Engine struct {
	rules     RuleSource
	history   HistorySource
	blacklist BlacklistSource
	hours     BusinessHours
	now       func() time.Time
}

// NewEngine creates a policy engine with default business hours
func NewEngine(rules RuleSource, history HistorySource, blacklist BlacklistSource) *Engine {
	return &Engine{
		rules:     rules,
		history:   history,
		blacklist: blacklist,
		hours:     DefaultBusinessHours(),
		now:       time.Now,
	}
}

// Analyze screens one transaction against all active rules. A source
// failure fails the whole analysis; there are no partial results.
func (e *Engine) Analyze(tx models.Transaction) (*Result, error) {
	rules, err := e.rules.ActiveRules()
	if err != nil {
		return nil, errs.Dependency("load policy rules", err)
	}

	result := &Result{
		Violations:      []models.PolicyViolation{},
		Recommendations: []string{},
	}

	for _, rule := range rules {
		violation, err := e.evaluate(rule, tx)
		if err != nil {
			return nil, err
		}
		if violation != nil {
			result.Violations = append(result.Violations, *violation)
			result.RiskScore += models.SeverityScore[violation.Severity]
		}
	}

	if result.RiskScore > maxRiskScore {
		result.RiskScore = maxRiskScore
	}
	result.Recommendations = recommendations(result.Violations)

	return result, nil
}

// evaluate dispatches on the closed rule type set. Every RuleType constant
// must have a case here; an unknown value is an error, not a no-op.
func (e *Engine) evaluate(rule models.PolicyRule, tx models.Transaction) (*models.PolicyViolation, error) {
	switch rule.Type {
	case models.RuleAmountThreshold:
		return e.checkAmountThreshold(rule, tx), nil
	case models.RuleDuplicateDetection:
		return e.checkDuplicate(rule, tx)
	case models.RuleBlacklistCheck:
		return e.checkBlacklist(rule, tx)
	case models.RuleTimeBased:
		return e.checkTimeBased(rule, tx), nil
	default:
		return nil, fmt.Errorf("unknown policy rule type %q", rule.Type)
	}
}

func (e *Engine) checkAmountThreshold(rule models.PolicyRule, tx models.Transaction) *models.PolicyViolation {
	if rule.Threshold == nil || rule.Threshold.IsZero() || !tx.Amount.GreaterThan(*rule.Threshold) {
		return nil
	}
	return &models.PolicyViolation{
		TransactionID: tx.ID,
		RuleID:        rule.ID,
		Details: fmt.Sprintf("Transaction amount (%s) exceeds threshold of %s",
			formatAmount(tx.Amount, tx.Currency), formatAmount(*rule.Threshold, tx.Currency)),
		Severity: severityByRatio(tx.Amount, *rule.Threshold),
	}
}

func (e *Engine) checkDuplicate(rule models.PolicyRule, tx models.Transaction) (*models.PolicyViolation, error) {
	cutoff := e.now().Add(-DuplicateWindowHours * time.Hour)
	matches, err := e.history.CountSimilar(tx, cutoff)
	if err != nil {
		return nil, errs.Dependency("count similar transactions", err)
	}
	if matches == 0 {
		return nil, nil
	}

	severity := models.SeverityMedium
	if matches > 2 {
		severity = models.SeverityHigh
	}
	return &models.PolicyViolation{
		TransactionID: tx.ID,
		RuleID:        rule.ID,
		Details: fmt.Sprintf("Potential duplicate: %d similar transaction(s) found in the last %d hours to the same account with the same amount",
			matches, DuplicateWindowHours),
		Severity: severity,
	}, nil
}

func (e *Engine) checkBlacklist(rule models.PolicyRule, tx models.Transaction) (*models.PolicyViolation, error) {
	match, err := e.blacklist.FindActiveMatch(tx.DestinationAccount, tx.SourceAccount)
	if err != nil {
		return nil, errs.Dependency("check blacklist", err)
	}
	if match == nil {
		return nil, nil
	}

	entity := match.EntityName
	if entity == "" {
		entity = "Unknown"
	}
	reason := match.Reason
	if reason == "" {
		reason = "Not specified"
	}
	return &models.PolicyViolation{
		TransactionID: tx.ID,
		RuleID:        rule.ID,
		Details: fmt.Sprintf("Account %s is on the blacklist. Entity: %s. Reason: %s",
			match.AccountNumber, entity, reason),
		Severity: models.SeverityCritical,
	}, nil
}

func (e *Engine) checkTimeBased(rule models.PolicyRule, tx models.Transaction) *models.PolicyViolation {
	created := tx.CreatedAt
	if created.IsZero() {
		// Pre-submission screening of a transaction that has not been
		// persisted yet: judge it by the current time
		created = e.now()
	}
	hour := created.Hour()

	offDay := !e.hours.WorkingDays[created.Weekday()]
	afterHours := hour < e.hours.StartHour || hour >= e.hours.EndHour

	if !offDay && !afterHours {
		return nil
	}
	return &models.PolicyViolation{
		TransactionID: tx.ID,
		RuleID:        rule.ID,
		Details: fmt.Sprintf("Transaction created outside business hours (%s). Weekend: %t, After hours: %t",
			created.Format("2006-01-02 15:04:05"), offDay, afterHours),
		Severity: models.SeverityLow,
	}
}

// recommendations produces the fixed, ordered recommendation list
func recommendations(violations []models.PolicyViolation) []string {
	recs := []string{}
	if len(violations) == 0 {
		return recs
	}

	recs = append(recs, recommendManualReview)

	for _, v := range violations {
		if v.Severity == models.SeverityCritical || v.Severity == models.SeverityHigh {
			recs = append(recs, recommendEscalation)
			break
		}
	}
	for _, v := range violations {
		if strings.Contains(v.Details, "blacklist") {
			recs = append(recs, recommendVerifyIdentity)
			break
		}
	}
	return recs
}

// severityByRatio picks a severity from the amount/threshold ratio
func severityByRatio(amount, threshold decimal.Decimal) models.Severity {
	ratio := amount.Div(threshold)
	switch {
	case ratio.GreaterThan(decimal.NewFromInt(10)):
		return models.SeverityCritical
	case ratio.GreaterThan(decimal.NewFromInt(5)):
		return models.SeverityHigh
	case ratio.GreaterThan(decimal.NewFromInt(2)):
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// formatAmount renders a monetary value with thousands separators,
// e.g. "USD 150,000.00"
func formatAmount(amount decimal.Decimal, currency string) string {
	fixed := amount.StringFixed(2)

	neg := strings.HasPrefix(fixed, "-")
	if neg {
		fixed = fixed[1:]
	}

	parts := strings.SplitN(fixed, ".", 2)
	whole := parts[0]

	var grouped strings.Builder
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(digit)
	}

	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%s %s%s.%s", currency, sign, grouped.String(), parts[1])
}
