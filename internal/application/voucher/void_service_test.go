package voucher

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tesoreria/backend/internal/domain/ledger"
	"github.com/tesoreria/backend/internal/domain/shared"
	"github.com/tesoreria/backend/internal/infrastructure/printing"
	"github.com/tesoreria/backend/internal/infrastructure/storage"
)

type mockRecordRepo struct {
	mock.Mock
}

func (m *mockRecordRepo) Create(ctx context.Context, record *ledger.LedgerRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockRecordRepo) FindByID(ctx context.Context, kind ledger.RecordKind, id uuid.UUID) (*ledger.LedgerRecord, error) {
	args := m.Called(ctx, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.LedgerRecord), args.Error(1)
}

func (m *mockRecordRepo) FindBySequence(ctx context.Context, kind ledger.RecordKind, sequenceNumber int64) (*ledger.LedgerRecord, error) {
	args := m.Called(ctx, kind, sequenceNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.LedgerRecord), args.Error(1)
}

func (m *mockRecordRepo) FindAll(ctx context.Context, filter ledger.RecordFilter) ([]*ledger.LedgerRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.LedgerRecord), args.Error(1)
}

func (m *mockRecordRepo) MarkVoided(ctx context.Context, kind ledger.RecordKind, id uuid.UUID) error {
	args := m.Called(ctx, kind, id)
	return args.Error(0)
}

func (m *mockRecordRepo) UpdateDocumentURL(ctx context.Context, kind ledger.RecordKind, id uuid.UUID, url string) error {
	args := m.Called(ctx, kind, id, url)
	return args.Error(0)
}

type mockCounterpartyRepo struct {
	mock.Mock
}

func (m *mockCounterpartyRepo) Create(ctx context.Context, counterparty *ledger.Counterparty) error {
	args := m.Called(ctx, counterparty)
	return args.Error(0)
}

func (m *mockCounterpartyRepo) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Counterparty, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Counterparty), args.Error(1)
}

func (m *mockCounterpartyRepo) FindByIdentifier(ctx context.Context, identifier string) (*ledger.Counterparty, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Counterparty), args.Error(1)
}

// failingRenderer always errors, standing in for a crashed browser.
type failingRenderer struct{}

func (failingRenderer) Render(context.Context, *printing.RenderRequest) (*printing.RenderResult, error) {
	return nil, printing.NewRenderError(printing.ErrCodeRenderFailed, "browser crashed", nil)
}

func (failingRenderer) Close() error { return nil }

type voidFixture struct {
	records        *mockRecordRepo
	counterparties *mockCounterpartyRepo
	store          *storage.MemoryDocumentStore
	cache          *Cache
	service        *VoidService
}

func newVoidFixture(t *testing.T, renderer printing.PDFRenderer) *voidFixture {
	t.Helper()
	gen, err := NewGenerator(renderer, testOrg, zaptest.NewLogger(t))
	require.NoError(t, err)

	f := &voidFixture{
		records:        new(mockRecordRepo),
		counterparties: new(mockCounterpartyRepo),
		store:          storage.NewMemoryDocumentStore(),
		cache:          NewCache(),
	}
	f.service = NewVoidService(f.records, f.counterparties, gen, f.store, f.cache, testBuckets, zaptest.NewLogger(t))
	return f
}

func TestVoid_PermissionDeniedBeforeAnyIO(t *testing.T) {
	f := newVoidFixture(t, htmlRenderer{})

	_, err := f.service.Void(context.Background(), readOnly, ledger.KindExpense, uuid.New())
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
	f.records.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything, mock.Anything)
}

func TestVoid_AlreadyVoidedIsBenignNoOp(t *testing.T) {
	f := newVoidFixture(t, htmlRenderer{})

	rec := expenseRecord(t, "2975-2024", 5)
	rec.Voided = true
	f.records.On("FindByID", mock.Anything, ledger.KindExpense, rec.ID).Return(rec, nil)

	result, err := f.service.Void(context.Background(), accountant, ledger.KindExpense, rec.ID)
	require.NoError(t, err)
	assert.True(t, result.AlreadyVoided)
	assert.True(t, result.Record.Voided)
	f.records.AssertNotCalled(t, "MarkVoided", mock.Anything, mock.Anything, mock.Anything)
}

func TestVoid_ZeroRowsFailsWholeTransition(t *testing.T) {
	f := newVoidFixture(t, htmlRenderer{})

	rec := expenseRecord(t, "2975-2024", 5)
	f.records.On("FindByID", mock.Anything, ledger.KindExpense, rec.ID).Return(rec, nil)
	f.records.On("MarkVoided", mock.Anything, ledger.KindExpense, rec.ID).Return(shared.ErrNoRowsUpdated)

	_, err := f.service.Void(context.Background(), accountant, ledger.KindExpense, rec.ID)
	require.Error(t, err)

	// No document was regenerated.
	names, listErr := f.store.List(context.Background(), "expenses", "signed/2975-2024")
	require.NoError(t, listErr)
	assert.Empty(t, names)
}

func TestVoid_ExpenseRegeneratesSignedWithWatermark(t *testing.T) {
	f := newVoidFixture(t, htmlRenderer{})
	ctx := context.Background()

	rec := expenseRecord(t, "2975-2024", 5)
	rec.CounterpartyIdentifier = "1144099888"
	f.records.On("FindByID", mock.Anything, ledger.KindExpense, rec.ID).Return(rec, nil)
	f.records.On("MarkVoided", mock.Anything, ledger.KindExpense, rec.ID).Return(nil)
	f.counterparties.On("FindByIdentifier", mock.Anything, "1144099888").Return(testCounterparty(t), nil)

	result, err := f.service.Void(ctx, accountant, ledger.KindExpense, rec.ID)
	require.NoError(t, err)
	assert.True(t, result.Record.Voided)
	assert.Empty(t, result.RegenWarning)

	data, err := f.store.Download(ctx, "expenses", "signed/2975-2024/expense_5.pdf")
	require.NoError(t, err)
	assert.Contains(t, string(data), "ANULADO")

	// The regenerated document's cache entry was refreshed.
	assert.True(t, f.cache.Get("expenses", "signed/2975-2024/expense_5.pdf").IsAvailable())
}

func TestVoid_IncomeSkipsRegeneration(t *testing.T) {
	f := newVoidFixture(t, htmlRenderer{})

	rec := incomeRecord(t, "3065-2025", 9)
	f.records.On("FindByID", mock.Anything, ledger.KindIncome, rec.ID).Return(rec, nil)
	f.records.On("MarkVoided", mock.Anything, ledger.KindIncome, rec.ID).Return(nil)

	result, err := f.service.Void(context.Background(), accountant, ledger.KindIncome, rec.ID)
	require.NoError(t, err)
	assert.True(t, result.Record.Voided)
	assert.Empty(t, result.RegenWarning)

	names, err := f.store.List(context.Background(), "incomes", "3065-2025")
	require.NoError(t, err)
	assert.Empty(t, names, "income vouchers are rendered on demand, not on void")
}

func TestVoid_RegenerationFailureIsNonFatal(t *testing.T) {
	f := newVoidFixture(t, failingRenderer{})
	ctx := context.Background()

	// A pre-void signed document is already in place.
	staleSigned := []byte("%PDF-1.4 pre-void signed")
	require.NoError(t, f.store.Upload(ctx, "expenses", "signed/2975-2024/expense_5.pdf", staleSigned, "application/pdf"))

	rec := expenseRecord(t, "2975-2024", 5)
	f.records.On("FindByID", mock.Anything, ledger.KindExpense, rec.ID).Return(rec, nil)
	f.records.On("MarkVoided", mock.Anything, ledger.KindExpense, rec.ID).Return(nil)

	result, err := f.service.Void(ctx, accountant, ledger.KindExpense, rec.ID)
	require.NoError(t, err, "the void itself has committed")
	assert.True(t, result.Record.Voided)
	assert.NotEmpty(t, result.RegenWarning)

	// The stale signed document is still retrievable, unchanged.
	data, err := f.store.Download(ctx, "expenses", "signed/2975-2024/expense_5.pdf")
	require.NoError(t, err)
	assert.Equal(t, staleSigned, data)
}

func TestVoid_CounterpartyLookupFailureDegradesToRecordData(t *testing.T) {
	f := newVoidFixture(t, htmlRenderer{})
	ctx := context.Background()

	rec := expenseRecord(t, "2975-2024", 5)
	rec.CounterpartyIdentifier = "1144099888"
	rec.CounterpartyName = "Nombre Denormalizado"
	f.records.On("FindByID", mock.Anything, ledger.KindExpense, rec.ID).Return(rec, nil)
	f.records.On("MarkVoided", mock.Anything, ledger.KindExpense, rec.ID).Return(nil)
	f.counterparties.On("FindByIdentifier", mock.Anything, "1144099888").
		Return(nil, errors.New("db down"))

	result, err := f.service.Void(ctx, accountant, ledger.KindExpense, rec.ID)
	require.NoError(t, err)
	assert.Empty(t, result.RegenWarning)

	data, err := f.store.Download(ctx, "expenses", "signed/2975-2024/expense_5.pdf")
	require.NoError(t, err)
	assert.Contains(t, string(data), "Nombre Denormalizado")
}
