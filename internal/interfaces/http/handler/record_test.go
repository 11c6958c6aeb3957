package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	ledgerapp "github.com/tesoreria/backend/internal/application/ledger"
	"github.com/tesoreria/backend/internal/application/voucher"
	"github.com/tesoreria/backend/internal/domain/ledger"
	"github.com/tesoreria/backend/internal/domain/shared"
	"github.com/tesoreria/backend/internal/infrastructure/printing"
	"github.com/tesoreria/backend/internal/infrastructure/storage"
	"github.com/tesoreria/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockRecordRepository implements ledger.RecordRepository for testing
type MockRecordRepository struct {
	mock.Mock
}

func (m *MockRecordRepository) Create(ctx context.Context, record *ledger.LedgerRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockRecordRepository) FindByID(ctx context.Context, kind ledger.RecordKind, id uuid.UUID) (*ledger.LedgerRecord, error) {
	args := m.Called(ctx, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.LedgerRecord), args.Error(1)
}

func (m *MockRecordRepository) FindBySequence(ctx context.Context, kind ledger.RecordKind, sequenceNumber int64) (*ledger.LedgerRecord, error) {
	args := m.Called(ctx, kind, sequenceNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.LedgerRecord), args.Error(1)
}

func (m *MockRecordRepository) FindAll(ctx context.Context, filter ledger.RecordFilter) ([]*ledger.LedgerRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.LedgerRecord), args.Error(1)
}

func (m *MockRecordRepository) MarkVoided(ctx context.Context, kind ledger.RecordKind, id uuid.UUID) error {
	args := m.Called(ctx, kind, id)
	return args.Error(0)
}

func (m *MockRecordRepository) UpdateDocumentURL(ctx context.Context, kind ledger.RecordKind, id uuid.UUID, url string) error {
	args := m.Called(ctx, kind, id, url)
	return args.Error(0)
}

// MockCounterpartyRepository implements ledger.CounterpartyRepository for testing
type MockCounterpartyRepository struct {
	mock.Mock
}

func (m *MockCounterpartyRepository) Create(ctx context.Context, counterparty *ledger.Counterparty) error {
	args := m.Called(ctx, counterparty)
	return args.Error(0)
}

func (m *MockCounterpartyRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Counterparty, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Counterparty), args.Error(1)
}

func (m *MockCounterpartyRepository) FindByIdentifier(ctx context.Context, identifier string) (*ledger.Counterparty, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Counterparty), args.Error(1)
}

// MockAgreementRepository implements ledger.AgreementRepository for testing
type MockAgreementRepository struct {
	mock.Mock
}

func (m *MockAgreementRepository) Create(ctx context.Context, agreement *ledger.Agreement) error {
	args := m.Called(ctx, agreement)
	return args.Error(0)
}

func (m *MockAgreementRepository) FindByCode(ctx context.Context, code string) (*ledger.Agreement, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Agreement), args.Error(1)
}

func (m *MockAgreementRepository) FindAll(ctx context.Context, activeOnly bool) ([]*ledger.Agreement, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Agreement), args.Error(1)
}

// passthroughRenderer returns the rendered HTML as the "PDF" bytes
type passthroughRenderer struct{}

func (passthroughRenderer) Render(_ context.Context, req *printing.RenderRequest) (*printing.RenderResult, error) {
	return &printing.RenderResult{PDFData: []byte(req.HTML)}, nil
}

func (passthroughRenderer) Close() error { return nil }

type recordFixture struct {
	records        *MockRecordRepository
	counterparties *MockCounterpartyRepository
	agreements     *MockAgreementRepository
	store          *storage.MemoryDocumentStore
	router         *gin.Engine
}

var fixtureBuckets = voucher.Buckets{Expense: "egresos", Income: "ingresos"}

func newRecordFixture(t *testing.T, identity shared.Identity) *recordFixture {
	t.Helper()

	records := new(MockRecordRepository)
	counterparties := new(MockCounterpartyRepository)
	agreements := new(MockAgreementRepository)
	store := storage.NewMemoryDocumentStore()
	cache := voucher.NewCache()
	logger := zaptest.NewLogger(t)

	gen, err := voucher.NewGenerator(passthroughRenderer{}, voucher.Organization{
		Name:  "Fundación Cultural del Pacífico",
		TaxID: "900123456-7",
		City:  "Cali",
	}, logger)
	require.NoError(t, err)

	uploads := voucher.NewUploadService(store, cache, fixtureBuckets, logger)
	resolver := voucher.NewResolver(store, cache, fixtureBuckets, 1, logger)
	voids := voucher.NewVoidService(records, counterparties, gen, store, cache, fixtureBuckets, logger)
	recordService := ledgerapp.NewRecordService(records, counterparties, agreements, gen, uploads, resolver, logger)

	h := NewRecordHandler(recordService, uploads, voids)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.IdentityKey, identity)
		c.Next()
	})
	api := router.Group("/api/v1")
	{
		api.GET("/records", h.ListRecords)
		api.GET("/records/:kind/:id", h.GetRecord)
		api.POST("/records/expenses", h.CreateExpense)
		api.POST("/records/incomes", h.CreateIncome)
		api.POST("/records/:kind/:id/void", h.VoidRecord)
		api.PUT("/records/expenses/:id/signed", h.UploadSignedExpense)
		api.PUT("/records/incomes/:id/receipt", h.UploadIncomeReceipt)
		api.POST("/records/incomes/:id/voucher", h.RenderIncomeVoucher)
		api.GET("/agreements", h.ListAgreements)
	}

	return &recordFixture{
		records:        records,
		counterparties: counterparties,
		agreements:     agreements,
		store:          store,
		router:         router,
	}
}

func accountantIdentity() shared.Identity {
	return shared.Identity{Subject: "u1", Role: shared.RoleAccountant}
}

func testAgreement(t *testing.T, code string) *ledger.Agreement {
	t.Helper()
	agreement, err := ledger.NewAgreement(code, "Convenio de prueba")
	require.NoError(t, err)
	return agreement
}

func fixtureExpense(t *testing.T, code string, seq int64) *ledger.LedgerRecord {
	t.Helper()
	rec, err := ledger.NewExpenseRecord(code, "Honorarios",
		time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC),
		decimal.NewFromInt(10), decimal.NewFromInt(100000), decimal.NewFromFloat(2.5),
		ledger.PaymentTransfer)
	require.NoError(t, err)
	rec.SequenceNumber = seq
	return rec
}

func fixtureIncome(t *testing.T, code string, seq int64) *ledger.LedgerRecord {
	t.Helper()
	rec, err := ledger.NewIncomeRecord(code, "Desembolso",
		time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC),
		decimal.NewFromInt(5000000), decimal.NewFromFloat(1.1))
	require.NoError(t, err)
	rec.SequenceNumber = seq
	return rec
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRecordHandler_CreateExpense(t *testing.T) {
	f := newRecordFixture(t, accountantIdentity())

	f.agreements.On("FindByCode", mock.Anything, "2975-2024").
		Return(testAgreement(t, "2975-2024"), nil)
	f.counterparties.On("FindByIdentifier", mock.Anything, "1144099888").
		Return(nil, shared.ErrNotFound)
	f.counterparties.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.records.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(1).(*ledger.LedgerRecord).SequenceNumber = 7
		}).
		Return(nil)
	f.records.On("UpdateDocumentURL", mock.Anything, ledger.KindExpense, mock.Anything, mock.Anything).
		Return(nil)

	rec := doJSON(t, f.router, http.MethodPost, "/api/v1/records/expenses", gin.H{
		"agreement":               "2975-2024 — Convenio de prueba",
		"concept":                 "Honorarios",
		"date":                    "2025-10-31T00:00:00Z",
		"quantity":                "10",
		"unit_price":              "100000",
		"retention_percent":       "2.5",
		"payment_method":          "transfer",
		"counterparty_identifier": "1144099888",
		"counterparty_name":       "Andrés Perea",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Success bool           `json:"success"`
		Data    RecordResponse `json:"data"`
		Warning string         `json:"warning"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Warning)
	assert.Equal(t, int64(7), resp.Data.SequenceNumber)
	assert.Equal(t, "2975-2024", resp.Data.AgreementCode)
	assert.Equal(t, "25000", resp.Data.Amounts.Retained)

	// The rendered voucher landed at the deterministic key.
	data, err := f.store.Download(context.Background(), fixtureBuckets.Expense, "2975-2024/expense_7.pdf")
	require.NoError(t, err)
	assert.Contains(t, string(data), "Comprobante de Egreso")
}

func TestRecordHandler_CreateExpense_UnknownAgreement(t *testing.T) {
	f := newRecordFixture(t, accountantIdentity())

	f.agreements.On("FindByCode", mock.Anything, "9999-0000").
		Return(nil, shared.ErrNotFound)

	rec := doJSON(t, f.router, http.MethodPost, "/api/v1/records/expenses", gin.H{
		"agreement":      "9999-0000",
		"concept":        "Honorarios",
		"date":           "2025-10-31T00:00:00Z",
		"quantity":       "1",
		"unit_price":     "50000",
		"payment_method": "cash",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_INVALID_INPUT")
}

func TestRecordHandler_CreateExpense_ReadOnlyRoleForbidden(t *testing.T) {
	f := newRecordFixture(t, shared.Identity{Subject: "u2", Role: shared.RoleOther})

	rec := doJSON(t, f.router, http.MethodPost, "/api/v1/records/expenses", gin.H{
		"agreement":      "2975-2024",
		"concept":        "Honorarios",
		"date":           "2025-10-31T00:00:00Z",
		"quantity":       "1",
		"unit_price":     "50000",
		"payment_method": "cash",
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_FORBIDDEN")
}

func TestRecordHandler_CreateIncome(t *testing.T) {
	f := newRecordFixture(t, accountantIdentity())

	f.agreements.On("FindByCode", mock.Anything, "3065-2025").
		Return(testAgreement(t, "3065-2025"), nil)
	f.records.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(1).(*ledger.LedgerRecord).SequenceNumber = 4
		}).
		Return(nil)

	rec := doJSON(t, f.router, http.MethodPost, "/api/v1/records/incomes", gin.H{
		"agreement":         "3065-2025",
		"concept":           "Desembolso",
		"date":              "2025-10-31T00:00:00Z",
		"gross_amount":      "5000000",
		"tax_percent":       "1.1",
		"counterparty_name": "Ministerio de Cultura",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Data RecordResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "income", resp.Data.Kind)
	assert.Equal(t, int64(4), resp.Data.SequenceNumber)
	assert.Equal(t, "55000", resp.Data.Amounts.Retained)
}

func TestRecordHandler_ListRecords_WithDocuments(t *testing.T) {
	f := newRecordFixture(t, accountantIdentity())

	exp := fixtureExpense(t, "2975-2024", 5)
	require.NoError(t, f.store.Upload(context.Background(), fixtureBuckets.Expense,
		"2975-2024/expense_5.pdf", []byte("%PDF-original"), "application/pdf"))

	f.records.On("FindAll", mock.Anything, ledger.RecordFilter{Kind: ledger.KindExpense}).
		Return([]*ledger.LedgerRecord{exp}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records?kind=expense&with_documents=true", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data []RecordResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.NotNil(t, resp.Data[0].Documents)
	assert.Equal(t, "AVAILABLE", resp.Data[0].Documents.Original.State)
	assert.NotEmpty(t, resp.Data[0].Documents.Original.URL)
	assert.True(t, strings.HasSuffix(resp.Data[0].Documents.Original.DownloadName, ".pdf"),
		"download name %q", resp.Data[0].Documents.Original.DownloadName)
	assert.Equal(t, "MISSING", resp.Data[0].Documents.Attached.State)
	assert.Empty(t, resp.Data[0].Documents.Attached.DownloadName)
}

func TestRecordHandler_ListRecords_SearchAndDateRange(t *testing.T) {
	f := newRecordFixture(t, accountantIdentity())

	f.records.On("FindAll", mock.Anything, ledger.RecordFilter{
		Kind:   ledger.KindExpense,
		Search: "honorarios",
		From:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:     time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	}).Return([]*ledger.LedgerRecord{fixtureExpense(t, "2975-2024", 9)}, nil)

	rec := doJSON(t, f.router, http.MethodGet,
		"/api/v1/records?kind=expense&search=honorarios&from=2024-01-01&to=2024-12-31", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data []RecordResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, int64(9), resp.Data[0].SequenceNumber)
	f.records.AssertExpectations(t)
}

func TestRecordHandler_GetRecord_InvalidKind(t *testing.T) {
	f := newRecordFixture(t, accountantIdentity())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records/refund/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordHandler_VoidRecord(t *testing.T) {
	f := newRecordFixture(t, accountantIdentity())

	exp := fixtureExpense(t, "2975-2024", 5)
	f.records.On("FindByID", mock.Anything, ledger.KindExpense, exp.ID).Return(exp, nil)
	f.records.On("MarkVoided", mock.Anything, ledger.KindExpense, exp.ID).Return(nil)

	rec := doJSON(t, f.router, http.MethodPost, "/api/v1/records/expense/"+exp.ID.String()+"/void", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data    VoidRecordResponse `json:"data"`
		Warning string             `json:"warning"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Record.Voided)
	assert.False(t, resp.Data.AlreadyVoided)
	assert.Empty(t, resp.Warning)

	// The signed voucher was regenerated with the annulment overlay.
	data, err := f.store.Download(context.Background(), fixtureBuckets.Expense, "signed/2975-2024/expense_5.pdf")
	require.NoError(t, err)
	assert.Contains(t, string(data), "ANULADO")
}

func TestRecordHandler_VoidRecord_NotFound(t *testing.T) {
	f := newRecordFixture(t, accountantIdentity())

	id := uuid.New()
	f.records.On("FindByID", mock.Anything, ledger.KindIncome, id).
		Return(nil, shared.ErrNotFound)

	rec := doJSON(t, f.router, http.MethodPost, "/api/v1/records/income/"+id.String()+"/void", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_NOT_FOUND")
}

func TestRecordHandler_UploadSignedExpense(t *testing.T) {
	f := newRecordFixture(t, accountantIdentity())

	exp := fixtureExpense(t, "2975-2024", 5)
	f.records.On("FindByID", mock.Anything, ledger.KindExpense, exp.ID).Return(exp, nil)

	req := httptest.NewRequest(http.MethodPut,
		"/api/v1/records/expenses/"+exp.ID.String()+"/signed",
		bytes.NewReader([]byte("%PDF-1.7 signed")))
	req.Header.Set("Content-Type", "application/pdf")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	data, err := f.store.Download(context.Background(), fixtureBuckets.Expense, "signed/2975-2024/expense_5.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 signed", string(data))
}

func TestRecordHandler_UploadIncomeReceipt_UnsupportedType(t *testing.T) {
	f := newRecordFixture(t, accountantIdentity())

	inc := fixtureIncome(t, "3065-2025", 4)
	f.records.On("FindByID", mock.Anything, ledger.KindIncome, inc.ID).Return(inc, nil)

	req := httptest.NewRequest(http.MethodPut,
		"/api/v1/records/incomes/"+inc.ID.String()+"/receipt",
		bytes.NewReader([]byte("GIF89a...")))
	req.Header.Set("Content-Type", "image/gif")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_UNSUPPORTED_TYPE")
}

func TestRecordHandler_RenderIncomeVoucher(t *testing.T) {
	f := newRecordFixture(t, accountantIdentity())

	inc := fixtureIncome(t, "3065-2025", 4)
	inc.CounterpartyName = "Ministerio de Cultura"
	f.records.On("FindByID", mock.Anything, ledger.KindIncome, inc.ID).Return(inc, nil)
	f.records.On("UpdateDocumentURL", mock.Anything, ledger.KindIncome, inc.ID, mock.Anything).
		Return(nil)

	rec := doJSON(t, f.router, http.MethodPost, "/api/v1/records/incomes/"+inc.ID.String()+"/voucher", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data SignedURLData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Data.URL)

	names, err := f.store.List(context.Background(), fixtureBuckets.Income, "3065-2025")
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.Contains(t, names[0], "_income_4.pdf")
}

func TestRecordHandler_ListAgreements(t *testing.T) {
	f := newRecordFixture(t, accountantIdentity())

	f.agreements.On("FindAll", mock.Anything, true).
		Return([]*ledger.Agreement{testAgreement(t, "2975-2024")}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/agreements", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data []AgreementResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "2975-2024", resp.Data[0].Code)
	assert.Equal(t, "2975-2024 — Convenio de prueba", resp.Data[0].Label)
}
