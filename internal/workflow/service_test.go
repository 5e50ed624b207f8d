package workflow

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/securecontrol/backend/internal/audit"
	"github.com/securecontrol/backend/internal/errs"
	"github.com/securecontrol/backend/internal/models"
	"github.com/securecontrol/backend/internal/policy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeStore struct {
	transactions map[uuid.UUID]*models.Transaction
	applyResult  bool
	applyErr     error
	flagResult   bool
	flagged      []uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		transactions: make(map[uuid.UUID]*models.Transaction),
		applyResult:  true,
		flagResult:   true,
	}
}

func (f *fakeStore) Insert(tx *models.Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	copied := *tx
	f.transactions[tx.ID] = &copied
	return nil
}

func (f *fakeStore) GetByID(id uuid.UUID) (*models.Transaction, error) {
	tx, ok := f.transactions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *tx
	return &copied, nil
}

func (f *fakeStore) List(filter ListFilter) ([]models.Transaction, int64, error) {
	var out []models.Transaction
	for _, tx := range f.transactions {
		out = append(out, *tx)
	}
	return out, int64(len(out)), nil
}

func (f *fakeStore) ApplyReview(id uuid.UUID, decision models.TransactionStatus, reviewer uuid.UUID, notes string) (bool, error) {
	if f.applyErr != nil {
		return false, f.applyErr
	}
	if !f.applyResult {
		return false, nil
	}
	tx, ok := f.transactions[id]
	if !ok {
		return false, nil
	}
	tx.Status = decision
	tx.CheckedBy = &reviewer
	tx.CheckerNotes = notes
	return true, nil
}

func (f *fakeStore) Flag(id uuid.UUID) (bool, error) {
	if !f.flagResult {
		return false, nil
	}
	f.flagged = append(f.flagged, id)
	if tx, ok := f.transactions[id]; ok {
		tx.Status = models.StatusFlagged
	}
	return true, nil
}

type fakeAnalyzer struct {
	result *policy.Result
	err    error
}

func (f *fakeAnalyzer) Analyze(tx models.Transaction) (*policy.Result, error) {
	return f.result, f.err
}

type fakeViolationStore struct {
	saved [][]models.PolicyViolation
	err   error
}

func (f *fakeViolationStore) SaveViolations(violations []models.PolicyViolation) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, violations)
	return nil
}

type fakeRecorder struct {
	entries []audit.Entry
	err     error
}

func (f *fakeRecorder) Record(entry audit.Entry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeRecorder) actions() []models.AuditAction {
	var out []models.AuditAction
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

type fakeNotifier struct {
	submitted []bool
}

func (f *fakeNotifier) TransactionSubmitted(tx models.Transaction, flagged bool) {
	f.submitted = append(f.submitted, flagged)
}

func cleanInput() CreateInput {
	return CreateInput{
		Type:               models.TypeFundTransfer,
		Amount:             decimal.RequireFromString("500"),
		Currency:           "usd",
		SourceAccount:      "ACC-1001",
		DestinationAccount: "ACC-2002",
		Description:        "vendor payment",
		CreatedBy:          uuid.New(),
	}
}

func newTestService(store *fakeStore, analyzer *fakeAnalyzer, recorder *fakeRecorder) (*Service, *fakeViolationStore, *fakeNotifier) {
	violations := &fakeViolationStore{}
	notifier := &fakeNotifier{}
	return NewService(store, analyzer, violations, recorder, notifier), violations, notifier
}

func TestCreateValidation(t *testing.T) {
	store := newFakeStore()
	service, _, _ := newTestService(store, &fakeAnalyzer{result: &policy.Result{}}, &fakeRecorder{})

	tests := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"unknown type", func(in *CreateInput) { in.Type = "wire_out" }},
		{"zero amount", func(in *CreateInput) { in.Amount = decimal.Zero }},
		{"negative amount", func(in *CreateInput) { in.Amount = decimal.RequireFromString("-5") }},
		{"blank currency", func(in *CreateInput) { in.Currency = "  " }},
		{"blank source", func(in *CreateInput) { in.SourceAccount = "" }},
		{"blank destination", func(in *CreateInput) { in.DestinationAccount = "" }},
		{"missing creator", func(in *CreateInput) { in.CreatedBy = uuid.Nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := cleanInput()
			tt.mutate(&input)

			tx, _, err := service.Create(input)
			assert.True(t, errs.IsValidation(err))
			assert.Nil(t, tx)
		})
	}
	assert.Empty(t, store.transactions, "nothing should be persisted on validation failure")
}

func TestCreateCleanTransactionStaysPending(t *testing.T) {
	store := newFakeStore()
	recorder := &fakeRecorder{}
	service, violations, notifier := newTestService(store, &fakeAnalyzer{result: &policy.Result{
		Violations:      []models.PolicyViolation{},
		RiskScore:       0,
		Recommendations: []string{},
	}}, recorder)

	tx, analysis, err := service.Create(cleanInput())
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, tx.Status)
	assert.Equal(t, "USD", tx.Currency)
	assert.Equal(t, 0, analysis.RiskScore)
	assert.Empty(t, store.flagged)
	assert.Empty(t, violations.saved)
	assert.Equal(t, []models.AuditAction{models.ActionTransactionCreated}, recorder.actions())
	assert.Equal(t, []bool{false}, notifier.submitted)
}

func TestCreateAutoFlagsAtThreshold(t *testing.T) {
	store := newFakeStore()
	recorder := &fakeRecorder{}
	violation := models.PolicyViolation{Severity: models.SeverityCritical, Details: "x"}
	service, violations, notifier := newTestService(store, &fakeAnalyzer{result: &policy.Result{
		Violations: []models.PolicyViolation{violation},
		RiskScore:  policy.FlagThreshold,
	}}, recorder)

	tx, _, err := service.Create(cleanInput())
	require.NoError(t, err)

	assert.Equal(t, models.StatusFlagged, tx.Status)
	assert.Len(t, store.flagged, 1)
	assert.Len(t, violations.saved, 1)
	// Creation and auto-flag are one logical mutation, one audit entry
	require.Len(t, recorder.entries, 1)
	assert.Equal(t, models.ActionTransactionCreated, recorder.entries[0].Action)
	assert.Equal(t, policy.FlagThreshold, recorder.entries[0].NewValues["risk_score"])
	assert.Equal(t, []bool{true}, notifier.submitted)
}

func TestCreateBelowThresholdNotFlagged(t *testing.T) {
	store := newFakeStore()
	service, _, _ := newTestService(store, &fakeAnalyzer{result: &policy.Result{
		Violations: []models.PolicyViolation{{Severity: models.SeverityHigh}},
		RiskScore:  policy.FlagThreshold - 1,
	}}, &fakeRecorder{})

	tx, _, err := service.Create(cleanInput())
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, tx.Status)
	assert.Empty(t, store.flagged)
}

func TestCreateSurvivesScreeningFailure(t *testing.T) {
	store := newFakeStore()
	recorder := &fakeRecorder{}
	service, _, _ := newTestService(store, &fakeAnalyzer{err: errors.New("rules table unreachable")}, recorder)

	tx, analysis, err := service.Create(cleanInput())
	require.NoError(t, err)

	assert.Nil(t, analysis)
	assert.Equal(t, models.StatusPending, tx.Status)
	assert.Empty(t, store.flagged)
	require.Len(t, recorder.entries, 1)
	_, hasScore := recorder.entries[0].NewValues["risk_score"]
	assert.False(t, hasScore)
}

func TestApproveHappyPath(t *testing.T) {
	store := newFakeStore()
	recorder := &fakeRecorder{}
	service, _, _ := newTestService(store, &fakeAnalyzer{result: &policy.Result{}}, recorder)

	tx, _, err := service.Create(cleanInput())
	require.NoError(t, err)

	reviewer := uuid.New()
	require.NoError(t, service.Approve(tx.ID, reviewer, "looks fine"))

	stored, err := service.Get(tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, stored.Status)
	assert.Equal(t, reviewer, *stored.CheckedBy)
	assert.Contains(t, recorder.actions(), models.ActionTransactionApproved)
}

func TestApproveFlaggedTransaction(t *testing.T) {
	store := newFakeStore()
	service, _, _ := newTestService(store, &fakeAnalyzer{result: &policy.Result{
		Violations: []models.PolicyViolation{{Severity: models.SeverityCritical}},
		RiskScore:  80,
	}}, &fakeRecorder{})

	tx, _, err := service.Create(cleanInput())
	require.NoError(t, err)
	require.Equal(t, models.StatusFlagged, tx.Status)

	// Flagged is a waypoint, not a terminal state
	require.NoError(t, service.Approve(tx.ID, uuid.New(), ""))
	stored, err := service.Get(tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, stored.Status)
}

func TestRejectRequiresNotes(t *testing.T) {
	store := newFakeStore()
	service, _, _ := newTestService(store, &fakeAnalyzer{result: &policy.Result{}}, &fakeRecorder{})

	tx, _, err := service.Create(cleanInput())
	require.NoError(t, err)

	err = service.Reject(tx.ID, uuid.New(), "   ")
	assert.True(t, errs.IsValidation(err))

	stored, _ := service.Get(tx.ID)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestReviewTerminalStatusConflicts(t *testing.T) {
	store := newFakeStore()
	service, _, _ := newTestService(store, &fakeAnalyzer{result: &policy.Result{}}, &fakeRecorder{})

	tx, _, err := service.Create(cleanInput())
	require.NoError(t, err)
	require.NoError(t, service.Approve(tx.ID, uuid.New(), ""))

	err = service.Reject(tx.ID, uuid.New(), "changed my mind")
	assert.True(t, errs.IsConflict(err))

	err = service.Approve(tx.ID, uuid.New(), "")
	assert.True(t, errs.IsConflict(err))
}

func TestReviewMissingTransaction(t *testing.T) {
	service, _, _ := newTestService(newFakeStore(), &fakeAnalyzer{result: &policy.Result{}}, &fakeRecorder{})

	err := service.Approve(uuid.New(), uuid.New(), "")
	assert.True(t, errs.IsNotFound(err))
}

func TestConcurrentReviewLoserGetsConflict(t *testing.T) {
	store := newFakeStore()
	recorder := &fakeRecorder{}
	service, _, _ := newTestService(store, &fakeAnalyzer{result: &policy.Result{}}, recorder)

	tx, _, err := service.Create(cleanInput())
	require.NoError(t, err)

	// Another reviewer's decision lands between our read and our update
	store.applyResult = false
	err = service.Approve(tx.ID, uuid.New(), "")
	assert.True(t, errs.IsConflict(err))
	assert.NotContains(t, recorder.actions(), models.ActionTransactionApproved)
}

func TestAuditFailureDoesNotBlockDecision(t *testing.T) {
	store := newFakeStore()
	recorder := &fakeRecorder{err: errors.New("audit table full")}
	service, _, _ := newTestService(store, &fakeAnalyzer{result: &policy.Result{}}, recorder)

	tx, _, err := service.Create(cleanInput())
	require.NoError(t, err)

	require.NoError(t, service.Approve(tx.ID, uuid.New(), ""))
	stored, _ := service.Get(tx.ID)
	assert.Equal(t, models.StatusApproved, stored.Status)
}

func TestViolationSaveFailureDoesNotBlockCreate(t *testing.T) {
	store := newFakeStore()
	service, violations, _ := newTestService(store, &fakeAnalyzer{result: &policy.Result{
		Violations: []models.PolicyViolation{{Severity: models.SeverityMedium}},
		RiskScore:  15,
	}}, &fakeRecorder{})
	violations.err = errors.New("disk full")

	tx, analysis, err := service.Create(cleanInput())
	require.NoError(t, err)
	assert.NotNil(t, tx)
	assert.Equal(t, 15, analysis.RiskScore)
}

func TestMakerReviewingOwnTransactionIsAllowed(t *testing.T) {
	store := newFakeStore()
	service, _, _ := newTestService(store, &fakeAnalyzer{result: &policy.Result{}}, &fakeRecorder{})

	input := cleanInput()
	tx, _, err := service.Create(input)
	require.NoError(t, err)

	// Permitted for now; the gap is only logged
	require.NoError(t, service.Approve(tx.ID, input.CreatedBy, ""))
}
