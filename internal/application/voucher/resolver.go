package voucher

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/tesoreria/backend/internal/domain/document"
	"github.com/tesoreria/backend/internal/domain/ledger"
	"github.com/tesoreria/backend/internal/infrastructure/storage"
)

// Resolution is the pair of document references attached to one record:
// the original voucher and the signed variant (expense) or payment receipt
// (income).
type Resolution struct {
	Original document.Reference
	Attached document.Reference
}

// Resolver locates the stored documents for a set of ledger records and
// publishes signed URLs into the shared cache.
//
// Records are processed with bounded concurrency, 1 by default, which keeps
// probe traffic against the storage provider sequential. Raising the bound
// is a configuration change only.
type Resolver struct {
	store       DocumentStore
	cache       *Cache
	buckets     Buckets
	concurrency int
	logger      *zap.Logger
}

// NewResolver creates a resolver
func NewResolver(store DocumentStore, cache *Cache, buckets Buckets, concurrency int, logger *zap.Logger) *Resolver {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		store:       store,
		cache:       cache,
		buckets:     buckets,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Resolve runs one resolution pass over the record set and returns the
// generation token the pass wrote under. A later call supersedes this one:
// in-flight probes finish, but their results are discarded instead of being
// written to the cache.
//
// Probe failures degrade to MISSING for that document only and never abort
// the rest of the set.
func (r *Resolver) Resolve(ctx context.Context, records []*ledger.LedgerRecord) uint64 {
	token := r.cache.Begin()

	// Publish PENDING for every document up front so the view layer can
	// distinguish "not probed yet" from "probed and absent".
	for _, rec := range records {
		for _, key := range r.keysOf(rec) {
			r.cache.Put(token, key.bucket, key.key, document.Pending())
		}
	}

	sem := make(chan struct{}, r.concurrency)
	done := make(chan struct{})
	for _, rec := range records {
		rec := rec
		sem <- struct{}{}
		go func() {
			defer func() { <-sem }()
			if !r.cache.Current(token) {
				return
			}
			r.resolveRecord(ctx, token, rec)
		}()
	}
	go func() {
		for i := 0; i < cap(sem); i++ {
			sem <- struct{}{}
		}
		close(done)
	}()
	<-done

	return token
}

type bucketKey struct {
	bucket string
	key    string
}

// keysOf returns the derivable document addresses of a record. Income
// originals are excluded: their keys are discovered, not derived.
func (r *Resolver) keysOf(rec *ledger.LedgerRecord) []bucketKey {
	if rec.Kind == ledger.KindExpense {
		return []bucketKey{
			{r.buckets.Expense, document.ExpenseOriginalKey(rec.AgreementCode, rec.SequenceNumber)},
			{r.buckets.Expense, document.ExpenseSignedKey(rec.AgreementCode, rec.SequenceNumber)},
		}
	}
	return nil
}

func (r *Resolver) resolveRecord(ctx context.Context, token uint64, rec *ledger.LedgerRecord) {
	if rec.Kind == ledger.KindExpense {
		r.resolveExpense(ctx, token, rec)
		return
	}
	r.resolveIncome(ctx, token, rec)
}

func (r *Resolver) resolveExpense(ctx context.Context, token uint64, rec *ledger.LedgerRecord) {
	original := document.ExpenseOriginalKey(rec.AgreementCode, rec.SequenceNumber)
	signed := document.ExpenseSignedKey(rec.AgreementCode, rec.SequenceNumber)

	r.cache.Put(token, r.buckets.Expense, original, r.probe(ctx, r.buckets.Expense, original))
	r.cache.Put(token, r.buckets.Expense, signed, r.probe(ctx, r.buckets.Expense, signed))
}

func (r *Resolver) resolveIncome(ctx context.Context, token uint64, rec *ledger.LedgerRecord) {
	folder := document.IncomeFolder(rec.AgreementCode)

	// Original: reuse a previously discovered key, otherwise discover it by
	// listing the folder and matching the filename suffix.
	key, ok := r.cache.IncomeOriginalKey(folder, rec.SequenceNumber)
	if !ok {
		key = r.discoverIncomeOriginal(ctx, folder, rec.SequenceNumber)
		if key != "" {
			r.cache.PutIncomeOriginalKey(token, folder, rec.SequenceNumber, key)
		}
	}
	if key != "" {
		r.cache.Put(token, r.buckets.Income, key, r.probe(ctx, r.buckets.Income, key))
	}

	// Receipt: fixed extension precedence, first hit wins. Absent extensions
	// are written as MISSING so an entry cached by an earlier run cannot
	// outlive the object it pointed at.
	for _, ext := range document.ReceiptExtensions {
		receiptKey := document.IncomeReceiptKey(rec.AgreementCode, rec.SequenceNumber, ext)
		if !r.exists(ctx, r.buckets.Income, receiptKey) {
			r.cache.Put(token, r.buckets.Income, receiptKey, document.Missing())
			continue
		}
		r.cache.Put(token, r.buckets.Income, receiptKey, r.probe(ctx, r.buckets.Income, receiptKey))
		return
	}
}

// exists checks object presence without signing a URL. Storage errors degrade
// to absent for this probe only.
func (r *Resolver) exists(ctx context.Context, bucket, key string) bool {
	ok, err := r.store.Exists(ctx, bucket, key)
	if err != nil {
		r.logger.Warn("storage existence probe failed, treating as absent",
			zap.String("bucket", bucket),
			zap.String("key", key),
			zap.Error(err))
		return false
	}
	return ok
}

// discoverIncomeOriginal lists the agreement folder and returns the first
// entry carrying the income-original suffix, or "".
func (r *Resolver) discoverIncomeOriginal(ctx context.Context, folder string, sequenceNumber int64) string {
	names, err := r.store.List(ctx, r.buckets.Income, folder)
	if err != nil {
		r.logger.Warn("income original listing failed, treating as absent",
			zap.String("folder", folder),
			zap.Int64("sequence", sequenceNumber),
			zap.Error(err))
		return ""
	}
	for _, name := range names {
		if document.MatchesIncomeOriginal(name, sequenceNumber) {
			return folder + "/" + name
		}
	}
	return ""
}

// probe checks one object and returns Available(url) or Missing. Storage
// errors degrade to Missing for this probe only.
func (r *Resolver) probe(ctx context.Context, bucket, key string) document.Reference {
	url, err := r.store.SignedURL(ctx, bucket, key)
	if err != nil {
		if !errors.Is(err, storage.ErrObjectNotFound) {
			r.logger.Warn("storage probe failed, treating as absent",
				zap.String("bucket", bucket),
				zap.String("key", key),
				zap.Error(err))
		}
		return document.Missing()
	}
	return document.Available(url)
}

// SignedURLFor issues a signed URL for a stored object of the given record
// kind, returning "" when the object is absent or the probe fails.
func (r *Resolver) SignedURLFor(ctx context.Context, kind ledger.RecordKind, key string) string {
	bucket := r.buckets.Income
	if kind == ledger.KindExpense {
		bucket = r.buckets.Expense
	}
	ref := r.probe(ctx, bucket, key)
	if !ref.IsAvailable() {
		return ""
	}
	return ref.URL
}

// Lookup assembles the current cached resolution for a record without
// touching storage.
func (r *Resolver) Lookup(rec *ledger.LedgerRecord) Resolution {
	if rec.Kind == ledger.KindExpense {
		return Resolution{
			Original: r.cache.Get(r.buckets.Expense, document.ExpenseOriginalKey(rec.AgreementCode, rec.SequenceNumber)),
			Attached: r.cache.Get(r.buckets.Expense, document.ExpenseSignedKey(rec.AgreementCode, rec.SequenceNumber)),
		}
	}

	folder := document.IncomeFolder(rec.AgreementCode)
	res := Resolution{Original: document.Missing(), Attached: document.Missing()}
	if key, ok := r.cache.IncomeOriginalKey(folder, rec.SequenceNumber); ok {
		res.Original = r.cache.Get(r.buckets.Income, key)
	}
	for _, ext := range document.ReceiptExtensions {
		ref := r.cache.Get(r.buckets.Income, document.IncomeReceiptKey(rec.AgreementCode, rec.SequenceNumber, ext))
		if ref.IsAvailable() {
			res.Attached = ref
			break
		}
	}
	return res
}
