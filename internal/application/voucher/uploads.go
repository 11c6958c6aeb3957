package voucher

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/tesoreria/backend/internal/domain/document"
	"github.com/tesoreria/backend/internal/domain/ledger"
	"github.com/tesoreria/backend/internal/domain/shared"
	"github.com/tesoreria/backend/internal/infrastructure/telemetry"
)

var pdfMagic = []byte("%PDF-")

// UploadService writes signed expense vouchers and income receipts into
// storage. Uploads are upserts: a second upload to the same key replaces the
// object. Per key, only one upload may be in flight; a concurrent second
// request is rejected with shared.ErrUploadInFlight instead of racing.
type UploadService struct {
	store   DocumentStore
	cache   *Cache
	buckets Buckets
	logger  *zap.Logger
	metrics *telemetry.LedgerMetrics

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewUploadService creates an upload service
func NewUploadService(store DocumentStore, cache *Cache, buckets Buckets, logger *zap.Logger) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadService{
		store:    store,
		cache:    cache,
		buckets:  buckets,
		logger:   logger,
		inFlight: make(map[string]struct{}),
	}
}

// SetMetrics attaches business metrics emission for rejected uploads.
func (s *UploadService) SetMetrics(metrics *telemetry.LedgerMetrics) {
	s.metrics = metrics
}

func (s *UploadService) rejected(ctx context.Context, kind ledger.RecordKind, reason string) {
	if s.metrics != nil {
		s.metrics.UploadRejected(ctx, kind.String(), reason)
	}
}

func (s *UploadService) acquire(bucket, key string) error {
	id := document.CacheKey(bucket, key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[id]; busy {
		return shared.ErrUploadInFlight
	}
	s.inFlight[id] = struct{}{}
	return nil
}

func (s *UploadService) release(bucket, key string) {
	id := document.CacheKey(bucket, key)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
}

// UploadExpenseSigned stores the signed voucher of an expense record at its
// deterministic key. The content type is always application/pdf.
func (s *UploadService) UploadExpenseSigned(ctx context.Context, identity shared.Identity, rec *ledger.LedgerRecord, data []byte) error {
	if !identity.Role.CanManageDocuments() {
		return shared.ErrPermissionDenied
	}
	if rec.Kind != ledger.KindExpense {
		return shared.NewDomainError("INVALID_KIND", "signed vouchers exist for expense records only")
	}
	if len(data) == 0 {
		return shared.NewDomainError("EMPTY_UPLOAD", "upload body is empty")
	}

	key := document.ExpenseSignedKey(rec.AgreementCode, rec.SequenceNumber)
	if err := s.upload(ctx, s.buckets.Expense, key, data, "application/pdf"); err != nil {
		if errors.Is(err, shared.ErrUploadInFlight) {
			s.rejected(ctx, rec.Kind, "busy")
		}
		return err
	}
	return nil
}

// UploadIncomeReceipt stores the payment receipt of an income record. The
// extension is derived from the declared content type, falling back to byte
// sniffing, and must land in the fixed receipt extension set.
func (s *UploadService) UploadIncomeReceipt(ctx context.Context, identity shared.Identity, rec *ledger.LedgerRecord, data []byte, declaredType string) error {
	if !identity.Role.CanManageDocuments() {
		return shared.ErrPermissionDenied
	}
	if rec.Kind != ledger.KindIncome {
		return shared.NewDomainError("INVALID_KIND", "receipts exist for income records only")
	}
	if len(data) == 0 {
		return shared.NewDomainError("EMPTY_UPLOAD", "upload body is empty")
	}

	contentType := ClassifyContent(data, declaredType)
	ext, ok := receiptExtensionFor(contentType)
	if !ok {
		s.rejected(ctx, rec.Kind, "unsupported_type")
		return shared.NewDomainError("UNSUPPORTED_TYPE", "receipt must be a PDF or a png/jpg/webp image")
	}

	key := document.IncomeReceiptKey(rec.AgreementCode, rec.SequenceNumber, ext)
	if err := s.upload(ctx, s.buckets.Income, key, data, contentType); err != nil {
		if errors.Is(err, shared.ErrUploadInFlight) {
			s.rejected(ctx, rec.Kind, "busy")
		}
		return err
	}
	return nil
}

// UploadIncomeOriginal stores a freshly rendered income voucher under the
// naming convention resolution discovers by, and remembers the exact key.
func (s *UploadService) UploadIncomeOriginal(ctx context.Context, rec *ledger.LedgerRecord, entityName string, data []byte) (string, error) {
	if rec.Kind != ledger.KindIncome {
		return "", shared.NewDomainError("INVALID_KIND", "income originals exist for income records only")
	}

	key := document.IncomeOriginalKey(rec.AgreementCode, entityName, rec.CompactDate(), rec.SequenceNumber)
	if err := s.upload(ctx, s.buckets.Income, key, data, "application/pdf"); err != nil {
		return "", err
	}
	s.cache.RememberIncomeOriginalKey(document.IncomeFolder(rec.AgreementCode), rec.SequenceNumber, key)
	return key, nil
}

// UploadExpenseOriginal stores a rendered expense voucher at its
// deterministic key, replacing any previous render.
func (s *UploadService) UploadExpenseOriginal(ctx context.Context, rec *ledger.LedgerRecord, data []byte) (string, error) {
	if rec.Kind != ledger.KindExpense {
		return "", shared.NewDomainError("INVALID_KIND", "expense originals exist for expense records only")
	}

	key := document.ExpenseOriginalKey(rec.AgreementCode, rec.SequenceNumber)
	if err := s.upload(ctx, s.buckets.Expense, key, data, "application/pdf"); err != nil {
		return "", err
	}
	return key, nil
}

// upload performs the single-flight guarded write and refreshes this key's
// cache entry with a fresh signed URL. No other entries are touched.
func (s *UploadService) upload(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	if err := s.acquire(bucket, key); err != nil {
		return err
	}
	defer s.release(bucket, key)

	if err := s.store.Upload(ctx, bucket, key, data, contentType); err != nil {
		return err
	}

	url, err := s.store.SignedURL(ctx, bucket, key)
	if err != nil {
		// The object landed; a failed refresh only delays the URL until the
		// next resolution pass.
		s.logger.Warn("signed URL refresh after upload failed",
			zap.String("bucket", bucket),
			zap.String("key", key),
			zap.Error(err))
		return nil
	}
	s.cache.Refresh(bucket, key, document.Available(url))
	return nil
}

// ClassifyContent picks the content type for an upload: the declared type
// when one is given, otherwise detection from the leading bytes, defaulting
// to a generic binary type.
func ClassifyContent(data []byte, declaredType string) string {
	declaredType = strings.TrimSpace(strings.ToLower(declaredType))
	if declaredType != "" && declaredType != "application/octet-stream" {
		// Strip parameters like "; charset=binary".
		if i := strings.Index(declaredType, ";"); i >= 0 {
			declaredType = strings.TrimSpace(declaredType[:i])
		}
		return declaredType
	}

	if bytes.HasPrefix(data, pdfMagic) {
		return "application/pdf"
	}
	detected := http.DetectContentType(data)
	if i := strings.Index(detected, ";"); i >= 0 {
		detected = strings.TrimSpace(detected[:i])
	}
	return detected
}

func receiptExtensionFor(contentType string) (string, bool) {
	switch contentType {
	case "application/pdf":
		return "pdf", true
	case "image/png":
		return "png", true
	case "image/jpeg", "image/jpg":
		return "jpg", true
	case "image/webp":
		return "webp", true
	}
	return "", false
}
