package voucher

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tesoreria/backend/internal/domain/shared"
	"github.com/tesoreria/backend/internal/infrastructure/storage"
)

var (
	accountant = shared.Identity{Subject: "u1", Role: shared.RoleAccountant}
	readOnly   = shared.Identity{Subject: "u2", Role: shared.RoleOther}
)

func TestUploadExpenseSigned(t *testing.T) {
	store := storage.NewMemoryDocumentStore()
	cache := NewCache()
	svc := NewUploadService(store, cache, testBuckets, zaptest.NewLogger(t))
	ctx := context.Background()

	rec := expenseRecord(t, "2975-2024", 8)
	require.NoError(t, svc.UploadExpenseSigned(ctx, accountant, rec, []byte("%PDF-1.4 signed")))

	key := "signed/2975-2024/expense_8.pdf"
	data, err := store.Download(ctx, "expenses", key)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4 signed"), data)
	assert.Equal(t, "application/pdf", store.ContentType("expenses", key))

	// The upload refreshed its own cache entry.
	assert.True(t, cache.Get("expenses", key).IsAvailable())
}

func TestUploadExpenseSigned_RoleGate(t *testing.T) {
	store := storage.NewMemoryDocumentStore()
	svc := NewUploadService(store, NewCache(), testBuckets, zaptest.NewLogger(t))

	rec := expenseRecord(t, "2975-2024", 8)
	err := svc.UploadExpenseSigned(context.Background(), readOnly, rec, []byte("x"))
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	// Rejected before any I/O.
	exists, _ := store.Exists(context.Background(), "expenses", "signed/2975-2024/expense_8.pdf")
	assert.False(t, exists)
}

func TestUploadExpenseSigned_KindMismatch(t *testing.T) {
	svc := NewUploadService(storage.NewMemoryDocumentStore(), NewCache(), testBuckets, zaptest.NewLogger(t))

	rec := incomeRecord(t, "3065-2025", 1)
	err := svc.UploadExpenseSigned(context.Background(), accountant, rec, []byte("x"))
	require.Error(t, err)
}

func TestUpload_OverwriteIsIdempotent(t *testing.T) {
	store := storage.NewMemoryDocumentStore()
	svc := NewUploadService(store, NewCache(), testBuckets, zaptest.NewLogger(t))
	ctx := context.Background()

	rec := expenseRecord(t, "2975-2024", 8)
	payload := []byte("%PDF-1.4 same bytes")
	require.NoError(t, svc.UploadExpenseSigned(ctx, accountant, rec, payload))
	require.NoError(t, svc.UploadExpenseSigned(ctx, accountant, rec, payload))

	names, err := store.List(ctx, "expenses", "signed/2975-2024")
	require.NoError(t, err)
	assert.Len(t, names, 1, "exactly one object must exist at the key")
}

// blockingStore parks Upload calls until released.
type blockingStore struct {
	*storage.MemoryDocumentStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingStore) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	b.once.Do(func() {
		close(b.entered)
		<-b.release
	})
	return b.MemoryDocumentStore.Upload(ctx, bucket, key, data, contentType)
}

func TestUpload_SecondConcurrentUploadRejectedBusy(t *testing.T) {
	blocking := &blockingStore{
		MemoryDocumentStore: storage.NewMemoryDocumentStore(),
		entered:             make(chan struct{}),
		release:             make(chan struct{}),
	}
	svc := NewUploadService(blocking, NewCache(), testBuckets, zaptest.NewLogger(t))
	ctx := context.Background()
	rec := expenseRecord(t, "2975-2024", 8)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, svc.UploadExpenseSigned(ctx, accountant, rec, []byte("first")))
	}()

	<-blocking.entered

	err := svc.UploadExpenseSigned(ctx, accountant, rec, []byte("second"))
	assert.ErrorIs(t, err, shared.ErrUploadInFlight)

	close(blocking.release)
	wg.Wait()

	// After the first completes, the key is free again.
	assert.NoError(t, svc.UploadExpenseSigned(ctx, accountant, rec, []byte("third")))
}

func TestUploadIncomeReceipt_TypeHandling(t *testing.T) {
	ctx := context.Background()
	pngHeader := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

	t.Run("declared type wins", func(t *testing.T) {
		store := storage.NewMemoryDocumentStore()
		svc := NewUploadService(store, NewCache(), testBuckets, zaptest.NewLogger(t))

		rec := incomeRecord(t, "3065-2025", 4)
		require.NoError(t, svc.UploadIncomeReceipt(ctx, accountant, rec, pngHeader, "image/png"))

		exists, _ := store.Exists(ctx, "incomes", "receipts/3065-2025/income_4.png")
		assert.True(t, exists)
		assert.Equal(t, "image/png", store.ContentType("incomes", "receipts/3065-2025/income_4.png"))
	})

	t.Run("pdf magic sniffed without declared type", func(t *testing.T) {
		store := storage.NewMemoryDocumentStore()
		svc := NewUploadService(store, NewCache(), testBuckets, zaptest.NewLogger(t))

		rec := incomeRecord(t, "3065-2025", 4)
		require.NoError(t, svc.UploadIncomeReceipt(ctx, accountant, rec, []byte("%PDF-1.7 body"), ""))

		exists, _ := store.Exists(ctx, "incomes", "receipts/3065-2025/income_4.pdf")
		assert.True(t, exists)
	})

	t.Run("unrecognized bytes rejected", func(t *testing.T) {
		svc := NewUploadService(storage.NewMemoryDocumentStore(), NewCache(), testBuckets, zaptest.NewLogger(t))

		rec := incomeRecord(t, "3065-2025", 4)
		err := svc.UploadIncomeReceipt(ctx, accountant, rec, []byte("just some text"), "")
		require.Error(t, err)
	})
}

func TestUploadIncomeOriginal_RemembersKey(t *testing.T) {
	store := storage.NewMemoryDocumentStore()
	cache := NewCache()
	svc := NewUploadService(store, cache, testBuckets, zaptest.NewLogger(t))
	ctx := context.Background()

	rec := incomeRecord(t, "3065-2025 — Ministerio", 12)
	key, err := svc.UploadIncomeOriginal(ctx, rec, "Ministerio de Cultura", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "3065-2025/ministerio_de_cultura_20251031_income_12.pdf", key)

	cached, found := cache.IncomeOriginalKey("3065-2025", 12)
	require.True(t, found)
	assert.Equal(t, key, cached)
}

func TestClassifyContent(t *testing.T) {
	assert.Equal(t, "image/png", ClassifyContent(nil, "image/png"))
	assert.Equal(t, "application/pdf", ClassifyContent(nil, "Application/PDF; charset=binary"))
	assert.Equal(t, "application/pdf", ClassifyContent([]byte("%PDF-1.5"), ""))
	assert.Equal(t, "text/plain", ClassifyContent([]byte("hello world"), ""))
}
