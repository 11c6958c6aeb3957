package voucher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tesoreria/backend/internal/domain/document"
	"github.com/tesoreria/backend/internal/domain/ledger"
	"github.com/tesoreria/backend/internal/infrastructure/storage"
)

var testBuckets = Buckets{Expense: "expenses", Income: "incomes"}

func expenseRecord(t *testing.T, code string, seq int64) *ledger.LedgerRecord {
	t.Helper()
	rec, err := ledger.NewExpenseRecord(code, "Honorarios",
		time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC),
		decimal.NewFromInt(10), decimal.NewFromInt(100000), decimal.NewFromFloat(2.5),
		ledger.PaymentTransfer)
	require.NoError(t, err)
	rec.SequenceNumber = seq
	return rec
}

func incomeRecord(t *testing.T, code string, seq int64) *ledger.LedgerRecord {
	t.Helper()
	rec, err := ledger.NewIncomeRecord(code, "Desembolso",
		time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC),
		decimal.NewFromInt(5000000), decimal.NewFromFloat(1.1))
	require.NoError(t, err)
	rec.SequenceNumber = seq
	return rec
}

func TestResolver_ExpenseBothDocuments(t *testing.T) {
	store := storage.NewMemoryDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.Upload(ctx, "expenses", "2975-2024/expense_3.pdf", []byte("orig"), "application/pdf"))
	require.NoError(t, store.Upload(ctx, "expenses", "signed/2975-2024/expense_3.pdf", []byte("signed"), "application/pdf"))

	cache := NewCache()
	resolver := NewResolver(store, cache, testBuckets, 1, zaptest.NewLogger(t))

	rec := expenseRecord(t, "2975-2024", 3)
	resolver.Resolve(ctx, []*ledger.LedgerRecord{rec})

	res := resolver.Lookup(rec)
	assert.True(t, res.Original.IsAvailable())
	assert.True(t, res.Attached.IsAvailable())
}

func TestResolver_ExpenseMissingSigned(t *testing.T) {
	store := storage.NewMemoryDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.Upload(ctx, "expenses", "2975-2024/expense_4.pdf", []byte("orig"), "application/pdf"))

	cache := NewCache()
	resolver := NewResolver(store, cache, testBuckets, 1, zaptest.NewLogger(t))

	rec := expenseRecord(t, "2975-2024", 4)
	resolver.Resolve(ctx, []*ledger.LedgerRecord{rec})

	res := resolver.Lookup(rec)
	assert.True(t, res.Original.IsAvailable())
	assert.Equal(t, document.StateMissing, res.Attached.State)
}

func TestResolver_IncomeOriginalDiscoveredBySuffix(t *testing.T) {
	store := storage.NewMemoryDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.Upload(ctx, "incomes",
		"3065-2025/ministerio_20251031_income_12.pdf", []byte("orig"), "application/pdf"))

	cache := NewCache()
	resolver := NewResolver(store, cache, testBuckets, 1, zaptest.NewLogger(t))

	rec := incomeRecord(t, "3065-2025 — Ministerio de las Culturas", 12)
	resolver.Resolve(ctx, []*ledger.LedgerRecord{rec})

	key, found := cache.IncomeOriginalKey("3065-2025", 12)
	require.True(t, found)
	assert.Equal(t, "3065-2025/ministerio_20251031_income_12.pdf", key)
	assert.True(t, resolver.Lookup(rec).Original.IsAvailable())
}

func TestResolver_IncomeOriginalAbsent(t *testing.T) {
	store := storage.NewMemoryDocumentStore()
	cache := NewCache()
	resolver := NewResolver(store, cache, testBuckets, 1, zaptest.NewLogger(t))

	rec := incomeRecord(t, "3065-2025", 7)
	resolver.Resolve(context.Background(), []*ledger.LedgerRecord{rec})

	_, found := cache.IncomeOriginalKey("3065-2025", 7)
	assert.False(t, found)
	assert.Equal(t, document.StateMissing, resolver.Lookup(rec).Original.State)
}

func TestResolver_ReceiptExtensionPrecedence(t *testing.T) {
	store := storage.NewMemoryDocumentStore()
	ctx := context.Background()
	// Both a png and a pdf exist; only the pdf may ever surface.
	require.NoError(t, store.Upload(ctx, "incomes", "receipts/3065-2025/income_5.png", []byte("png"), "image/png"))
	require.NoError(t, store.Upload(ctx, "incomes", "receipts/3065-2025/income_5.pdf", []byte("pdf"), "application/pdf"))

	cache := NewCache()
	resolver := NewResolver(store, cache, testBuckets, 1, zaptest.NewLogger(t))

	rec := incomeRecord(t, "3065-2025", 5)
	resolver.Resolve(ctx, []*ledger.LedgerRecord{rec})

	res := resolver.Lookup(rec)
	require.True(t, res.Attached.IsAvailable())
	assert.Contains(t, res.Attached.URL, "income_5.pdf")

	// The lower-precedence object was never written into the cache.
	assert.NotEqual(t, document.StateAvailable,
		cache.Get("incomes", "receipts/3065-2025/income_5.png").State)
}

func TestResolver_ReceiptDeletionSurvivesAcrossRuns(t *testing.T) {
	store := storage.NewMemoryDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.Upload(ctx, "incomes", "receipts/3065-2025/income_8.pdf", []byte("pdf"), "application/pdf"))

	cache := NewCache()
	resolver := NewResolver(store, cache, testBuckets, 1, zaptest.NewLogger(t))

	rec := incomeRecord(t, "3065-2025", 8)
	resolver.Resolve(ctx, []*ledger.LedgerRecord{rec})
	require.True(t, resolver.Lookup(rec).Attached.IsAvailable())

	// The receipt is removed from storage; the next run must overwrite the
	// stale entry instead of letting it keep surfacing.
	require.NoError(t, store.Delete(ctx, "incomes", "receipts/3065-2025/income_8.pdf"))
	resolver.Resolve(ctx, []*ledger.LedgerRecord{rec})

	assert.Equal(t, document.StateMissing, resolver.Lookup(rec).Attached.State)
	assert.Equal(t, document.StateMissing,
		cache.Get("incomes", "receipts/3065-2025/income_8.pdf").State)
}

// errorStore fails every call, standing in for a broken storage backend.
type errorStore struct{}

func (errorStore) Upload(context.Context, string, string, []byte, string) error {
	return errors.New("storage down")
}
func (errorStore) SignedURL(context.Context, string, string) (string, error) {
	return "", errors.New("storage down")
}
func (errorStore) Exists(context.Context, string, string) (bool, error) {
	return false, errors.New("storage down")
}
func (errorStore) List(context.Context, string, string) ([]string, error) {
	return nil, errors.New("storage down")
}
func (errorStore) Download(context.Context, string, string) ([]byte, error) {
	return nil, errors.New("storage down")
}

func TestResolver_ProbeErrorsDegradeToMissing(t *testing.T) {
	cache := NewCache()
	resolver := NewResolver(errorStore{}, cache, testBuckets, 1, zaptest.NewLogger(t))

	expense := expenseRecord(t, "2975-2024", 1)
	income := incomeRecord(t, "3065-2025", 2)
	resolver.Resolve(context.Background(), []*ledger.LedgerRecord{expense, income})

	// Both records were processed; no error aborted the set.
	res := resolver.Lookup(expense)
	assert.Equal(t, document.StateMissing, res.Original.State)
	assert.Equal(t, document.StateMissing, res.Attached.State)

	res = resolver.Lookup(income)
	assert.Equal(t, document.StateMissing, res.Original.State)
	assert.Equal(t, document.StateMissing, res.Attached.State)
}

// gatedStore blocks SignedURL calls until released, letting a test hold a
// resolution run in flight.
type gatedStore struct {
	*storage.MemoryDocumentStore
	gate    chan struct{}
	blockMu sync.Mutex
	block   bool
}

func (g *gatedStore) SignedURL(ctx context.Context, bucket, key string) (string, error) {
	g.blockMu.Lock()
	blocked := g.block
	g.blockMu.Unlock()
	if blocked {
		<-g.gate
	}
	return g.MemoryDocumentStore.SignedURL(ctx, bucket, key)
}

func TestResolver_SupersededRunIsDiscarded(t *testing.T) {
	mem := storage.NewMemoryDocumentStore()
	ctx := context.Background()
	require.NoError(t, mem.Upload(ctx, "expenses", "2975-2024/expense_1.pdf", []byte("x"), "application/pdf"))
	require.NoError(t, mem.Upload(ctx, "expenses", "signed/2975-2024/expense_1.pdf", []byte("x"), "application/pdf"))

	gated := &gatedStore{MemoryDocumentStore: mem, gate: make(chan struct{})}
	cache := NewCache()
	resolver := NewResolver(gated, cache, testBuckets, 1, zaptest.NewLogger(t))

	rec := expenseRecord(t, "2975-2024", 1)

	// Run A blocks inside its first probe.
	gated.blockMu.Lock()
	gated.block = true
	gated.blockMu.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		resolver.Resolve(ctx, []*ledger.LedgerRecord{rec})
	}()

	// Wait for run A to reach the blocking probe.
	time.Sleep(50 * time.Millisecond)

	// Run B starts and completes while A is still in flight.
	gated.blockMu.Lock()
	gated.block = false
	gated.blockMu.Unlock()
	tokenB := resolver.Resolve(ctx, []*ledger.LedgerRecord{rec})

	urlAfterB := resolver.Lookup(rec).Original.URL
	require.NotEmpty(t, urlAfterB)

	// Release run A; its late results must not replace B's.
	close(gated.gate)
	wg.Wait()

	assert.True(t, cache.Current(tokenB))
	assert.Equal(t, urlAfterB, resolver.Lookup(rec).Original.URL,
		"superseded run must not overwrite the fresh run's cache entries")
}
