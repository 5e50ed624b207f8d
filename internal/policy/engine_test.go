package policy

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/securecontrol/backend/internal/errs"
	"github.com/securecontrol/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRuleSource struct {
	rules []models.PolicyRule
	err   error
}

func (f *fakeRuleSource) ActiveRules() ([]models.PolicyRule, error) {
	return f.rules, f.err
}

type fakeHistorySource struct {
	count int64
	err   error
}

func (f *fakeHistorySource) CountSimilar(exclude models.Transaction, since time.Time) (int64, error) {
	return f.count, f.err
}

type fakeBlacklistSource struct {
	match *models.BlacklistEntry
	err   error
}

func (f *fakeBlacklistSource) FindActiveMatch(accounts ...string) (*models.BlacklistEntry, error) {
	return f.match, f.err
}

func newTestEngine(rules []models.PolicyRule, history *fakeHistorySource, bl *fakeBlacklistSource) *Engine {
	if history == nil {
		history = &fakeHistorySource{}
	}
	if bl == nil {
		bl = &fakeBlacklistSource{}
	}
	return NewEngine(&fakeRuleSource{rules: rules}, history, bl)
}

func amountRule(threshold string) models.PolicyRule {
	t := decimal.RequireFromString(threshold)
	return models.PolicyRule{
		ID:        uuid.New(),
		Name:      "Large Transaction Alert",
		Type:      models.RuleAmountThreshold,
		Threshold: &t,
		Active:    true,
	}
}

func makeTx(amount string) models.Transaction {
	tx := models.Transaction{
		Type:               models.TypeFundTransfer,
		Amount:             decimal.RequireFromString(amount),
		Currency:           "USD",
		SourceAccount:      "ACC-1001",
		DestinationAccount: "ACC-2002",
		Status:             models.StatusPending,
	}
	tx.ID = uuid.New()
	// Tuesday 10:30, inside business hours
	tx.CreatedAt = time.Date(2025, 6, 3, 10, 30, 0, 0, time.UTC)
	return tx
}

func TestAnalyzeNoActiveRules(t *testing.T) {
	engine := newTestEngine(nil, nil, nil)

	result, err := engine.Analyze(makeTx("500000"))
	require.NoError(t, err)

	assert.Empty(t, result.Violations)
	assert.Equal(t, 0, result.RiskScore)
	assert.Empty(t, result.Recommendations)
}

func TestAmountThresholdSeverityTiers(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		severity models.Severity
		score    int
	}{
		{"just above threshold", "10000.01", models.SeverityLow, 5},
		{"double is still low", "20000", models.SeverityLow, 5},
		{"above 2x", "20000.01", models.SeverityMedium, 15},
		{"above 5x", "50000.01", models.SeverityHigh, 25},
		{"above 10x", "150000", models.SeverityCritical, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine([]models.PolicyRule{amountRule("10000")}, nil, nil)

			result, err := engine.Analyze(makeTx(tt.amount))
			require.NoError(t, err)
			require.Len(t, result.Violations, 1)

			assert.Equal(t, tt.severity, result.Violations[0].Severity)
			assert.Equal(t, tt.score, result.RiskScore)
		})
	}
}

func TestAmountThresholdNotExceeded(t *testing.T) {
	engine := newTestEngine([]models.PolicyRule{amountRule("10000")}, nil, nil)

	// Exactly at the threshold does not violate
	result, err := engine.Analyze(makeTx("10000"))
	require.NoError(t, err)
	assert.Empty(t, result.Violations)
	assert.Equal(t, 0, result.RiskScore)
}

func TestAmountThresholdDetailFormat(t *testing.T) {
	engine := newTestEngine([]models.PolicyRule{amountRule("10000")}, nil, nil)

	result, err := engine.Analyze(makeTx("150000"))
	require.NoError(t, err)
	require.Len(t, result.Violations, 1)

	assert.Equal(t,
		"Transaction amount (USD 150,000.00) exceeds threshold of USD 10,000.00",
		result.Violations[0].Details)
}

func TestDuplicateDetectionSeverity(t *testing.T) {
	rule := models.PolicyRule{ID: uuid.New(), Type: models.RuleDuplicateDetection, Active: true}

	t.Run("few matches are medium", func(t *testing.T) {
		engine := newTestEngine([]models.PolicyRule{rule}, &fakeHistorySource{count: 2}, nil)

		result, err := engine.Analyze(makeTx("100"))
		require.NoError(t, err)
		require.Len(t, result.Violations, 1)
		assert.Equal(t, models.SeverityMedium, result.Violations[0].Severity)
		assert.Equal(t,
			"Potential duplicate: 2 similar transaction(s) found in the last 24 hours to the same account with the same amount",
			result.Violations[0].Details)
	})

	t.Run("many matches are high", func(t *testing.T) {
		engine := newTestEngine([]models.PolicyRule{rule}, &fakeHistorySource{count: 3}, nil)

		result, err := engine.Analyze(makeTx("100"))
		require.NoError(t, err)
		require.Len(t, result.Violations, 1)
		assert.Equal(t, models.SeverityHigh, result.Violations[0].Severity)
	})

	t.Run("no matches no violation", func(t *testing.T) {
		engine := newTestEngine([]models.PolicyRule{rule}, &fakeHistorySource{count: 0}, nil)

		result, err := engine.Analyze(makeTx("100"))
		require.NoError(t, err)
		assert.Empty(t, result.Violations)
	})
}

func TestBlacklistMatchIsCritical(t *testing.T) {
	rule := models.PolicyRule{ID: uuid.New(), Type: models.RuleBlacklistCheck, Active: true}
	entry := &models.BlacklistEntry{
		AccountNumber: "ACC-2002",
		EntityName:    "Shell Corp Ltd",
		Reason:        "Sanctions match",
	}
	engine := newTestEngine([]models.PolicyRule{rule}, nil, &fakeBlacklistSource{match: entry})

	result, err := engine.Analyze(makeTx("100"))
	require.NoError(t, err)
	require.Len(t, result.Violations, 1)

	assert.Equal(t, models.SeverityCritical, result.Violations[0].Severity)
	assert.Equal(t, 40, result.RiskScore)
	assert.Equal(t,
		"Account ACC-2002 is on the blacklist. Entity: Shell Corp Ltd. Reason: Sanctions match",
		result.Violations[0].Details)
}

func TestBlacklistMatchWithMissingFields(t *testing.T) {
	rule := models.PolicyRule{ID: uuid.New(), Type: models.RuleBlacklistCheck, Active: true}
	entry := &models.BlacklistEntry{AccountNumber: "ACC-2002"}
	engine := newTestEngine([]models.PolicyRule{rule}, nil, &fakeBlacklistSource{match: entry})

	result, err := engine.Analyze(makeTx("100"))
	require.NoError(t, err)
	require.Len(t, result.Violations, 1)
	assert.Equal(t,
		"Account ACC-2002 is on the blacklist. Entity: Unknown. Reason: Not specified",
		result.Violations[0].Details)
}

func TestTimeBasedRule(t *testing.T) {
	rule := models.PolicyRule{ID: uuid.New(), Type: models.RuleTimeBased, Active: true}

	tests := []struct {
		name     string
		created  time.Time
		violates bool
	}{
		{"weekday inside hours", time.Date(2025, 6, 3, 10, 30, 0, 0, time.UTC), false},
		{"weekday start of window", time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC), false},
		{"weekday before opening", time.Date(2025, 6, 3, 8, 59, 0, 0, time.UTC), true},
		{"weekday at closing is outside", time.Date(2025, 6, 3, 18, 0, 0, 0, time.UTC), true},
		{"saturday inside hours", time.Date(2025, 6, 7, 11, 0, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine([]models.PolicyRule{rule}, nil, nil)
			tx := makeTx("100")
			tx.CreatedAt = tt.created

			result, err := engine.Analyze(tx)
			require.NoError(t, err)

			if tt.violates {
				require.Len(t, result.Violations, 1)
				assert.Equal(t, models.SeverityLow, result.Violations[0].Severity)
			} else {
				assert.Empty(t, result.Violations)
			}
		})
	}
}

func TestTimeBasedRuleOnUnsavedTransaction(t *testing.T) {
	rule := models.PolicyRule{ID: uuid.New(), Type: models.RuleTimeBased, Active: true}

	t.Run("screened during business hours", func(t *testing.T) {
		engine := newTestEngine([]models.PolicyRule{rule}, nil, nil)
		engine.now = func() time.Time { return time.Date(2025, 6, 3, 10, 30, 0, 0, time.UTC) }

		tx := makeTx("100")
		tx.CreatedAt = time.Time{}

		result, err := engine.Analyze(tx)
		require.NoError(t, err)
		assert.Empty(t, result.Violations)
	})

	t.Run("screened on a weekend", func(t *testing.T) {
		engine := newTestEngine([]models.PolicyRule{rule}, nil, nil)
		engine.now = func() time.Time { return time.Date(2025, 6, 7, 11, 0, 0, 0, time.UTC) }

		tx := makeTx("100")
		tx.CreatedAt = time.Time{}

		result, err := engine.Analyze(tx)
		require.NoError(t, err)
		require.Len(t, result.Violations, 1)
		assert.Equal(t, models.SeverityLow, result.Violations[0].Severity)
	})
}

func TestRiskScoreIsCapped(t *testing.T) {
	// Three independent threshold rules, each tripped at critical
	rules := []models.PolicyRule{amountRule("10"), amountRule("20"), amountRule("30")}
	engine := newTestEngine(rules, nil, nil)

	result, err := engine.Analyze(makeTx("1000000"))
	require.NoError(t, err)
	require.Len(t, result.Violations, 3)
	assert.Equal(t, 100, result.RiskScore)
}

func TestRecommendationsOrdering(t *testing.T) {
	blRule := models.PolicyRule{ID: uuid.New(), Type: models.RuleBlacklistCheck, Active: true}
	entry := &models.BlacklistEntry{AccountNumber: "ACC-2002"}
	engine := newTestEngine(
		[]models.PolicyRule{amountRule("10000"), blRule},
		nil,
		&fakeBlacklistSource{match: entry},
	)

	result, err := engine.Analyze(makeTx("150000"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Review transaction details carefully before approval",
		"Escalate to senior management for approval",
		"Verify beneficiary identity before processing",
	}, result.Recommendations)
}

func TestRecommendationsLowSeverityOnly(t *testing.T) {
	engine := newTestEngine([]models.PolicyRule{amountRule("10000")}, nil, nil)

	result, err := engine.Analyze(makeTx("10001"))
	require.NoError(t, err)
	require.Len(t, result.Violations, 1)

	assert.Equal(t, []string{"Review transaction details carefully before approval"}, result.Recommendations)
}

func TestAnalyzeIsRepeatable(t *testing.T) {
	engine := newTestEngine([]models.PolicyRule{amountRule("10000")}, &fakeHistorySource{count: 1}, nil)
	tx := makeTx("150000")

	first, err := engine.Analyze(tx)
	require.NoError(t, err)
	second, err := engine.Analyze(tx)
	require.NoError(t, err)

	assert.Equal(t, first.RiskScore, second.RiskScore)
	assert.Equal(t, len(first.Violations), len(second.Violations))
	assert.Equal(t, first.Recommendations, second.Recommendations)
}

func TestUnknownRuleTypeFailsAnalysis(t *testing.T) {
	rules := []models.PolicyRule{{ID: uuid.New(), Type: models.RuleType("geo_fence"), Active: true}}
	engine := newTestEngine(rules, nil, nil)

	result, err := engine.Analyze(makeTx("100"))
	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestSourceFailureFailsAnalysis(t *testing.T) {
	t.Run("rule source", func(t *testing.T) {
		engine := NewEngine(&fakeRuleSource{err: errors.New("db down")}, &fakeHistorySource{}, &fakeBlacklistSource{})

		result, err := engine.Analyze(makeTx("100"))
		assert.True(t, errs.IsDependency(err))
		assert.Nil(t, result)
	})

	t.Run("history source", func(t *testing.T) {
		rule := models.PolicyRule{ID: uuid.New(), Type: models.RuleDuplicateDetection, Active: true}
		engine := newTestEngine([]models.PolicyRule{rule}, &fakeHistorySource{err: errors.New("db down")}, nil)

		result, err := engine.Analyze(makeTx("100"))
		assert.True(t, errs.IsDependency(err))
		assert.Nil(t, result)
	})

	t.Run("blacklist source", func(t *testing.T) {
		rule := models.PolicyRule{ID: uuid.New(), Type: models.RuleBlacklistCheck, Active: true}
		engine := newTestEngine([]models.PolicyRule{rule}, nil, &fakeBlacklistSource{err: errors.New("db down")})

		result, err := engine.Analyze(makeTx("100"))
		assert.True(t, errs.IsDependency(err))
		assert.Nil(t, result)
	})
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "USD 150,000.00", formatAmount(decimal.RequireFromString("150000"), "USD"))
	assert.Equal(t, "USD 999.99", formatAmount(decimal.RequireFromString("999.99"), "USD"))
	assert.Equal(t, "EUR 1,234,567.89", formatAmount(decimal.RequireFromString("1234567.89"), "EUR"))
	assert.Equal(t, "USD -1,500.00", formatAmount(decimal.RequireFromString("-1500"), "USD"))
}
