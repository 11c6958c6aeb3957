package voucher

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/tesoreria/backend/internal/domain/document"
	"github.com/tesoreria/backend/internal/domain/ledger"
	"github.com/tesoreria/backend/internal/domain/shared"
	"github.com/tesoreria/backend/internal/infrastructure/telemetry"
)

// VoidResult reports the outcome of a void transition. RegenWarning is set
// when the record was durably voided but the voucher regeneration failed;
// the stale signed document stays visible until a later render succeeds.
type VoidResult struct {
	Record        *ledger.LedgerRecord
	AlreadyVoided bool
	RegenWarning  string
}

// VoidService drives the irreversible void transition: durable database
// write first, then best-effort regeneration of the expense voucher with the
// ANULADO overlay.
type VoidService struct {
	records        ledger.RecordRepository
	counterparties ledger.CounterpartyRepository
	generator      *Generator
	store          DocumentStore
	cache          *Cache
	buckets        Buckets
	logger         *zap.Logger
	metrics        *telemetry.LedgerMetrics
}

// NewVoidService creates a void service
func NewVoidService(
	records ledger.RecordRepository,
	counterparties ledger.CounterpartyRepository,
	generator *Generator,
	store DocumentStore,
	cache *Cache,
	buckets Buckets,
	logger *zap.Logger,
) *VoidService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VoidService{
		records:        records,
		counterparties: counterparties,
		generator:      generator,
		store:          store,
		cache:          cache,
		buckets:        buckets,
		logger:         logger,
	}
}

// SetMetrics attaches business metrics emission. Without it the service
// stays silent.
func (s *VoidService) SetMetrics(metrics *telemetry.LedgerMetrics) {
	s.metrics = metrics
}

// Void marks a record as annulled.
//
// The database write is the transition: if it fails or touches zero rows the
// whole operation fails and nothing is regenerated. The expense voucher
// regeneration that follows is best-effort; its failure leaves the record
// voided and surfaces as a warning on the result.
func (s *VoidService) Void(ctx context.Context, identity shared.Identity, kind ledger.RecordKind, id uuid.UUID) (result *VoidResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "ledger_record.void",
		attribute.String(telemetry.SpanAttrRecordID, id.String()),
		attribute.String(telemetry.SpanAttrRecordKind, kind.String()))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	if !identity.Role.CanManageDocuments() {
		return nil, shared.ErrPermissionDenied
	}

	rec, err := s.records.FindByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	// Voiding twice is benign: report the record as-is, touch nothing.
	if rec.Voided {
		return &VoidResult{Record: rec, AlreadyVoided: true}, nil
	}

	if err := s.records.MarkVoided(ctx, kind, id); err != nil {
		if errors.Is(err, shared.ErrNoRowsUpdated) {
			return nil, shared.NewDomainError("VOID_FAILED", "record was not updated; it may have been removed")
		}
		return nil, err
	}
	rec.Voided = true

	result = &VoidResult{Record: rec}

	// Income vouchers are rendered on demand, so the next render picks up
	// the flag without a regeneration step here.
	if rec.Kind != ledger.KindExpense {
		s.recordVoided(ctx, rec.Kind, telemetry.VoidOutcomeClean)
		return result, nil
	}

	if err := s.regenerateSigned(ctx, rec); err != nil {
		s.logger.Warn("voided record kept, voucher regeneration failed",
			zap.String("record_id", id.String()),
			zap.Int64("sequence", rec.SequenceNumber),
			zap.Error(err))
		result.RegenWarning = fmt.Sprintf("record voided, but the voucher could not be regenerated: %v", err)
		s.recordVoided(ctx, rec.Kind, telemetry.VoidOutcomePartial)
		return result, nil
	}

	s.recordVoided(ctx, rec.Kind, telemetry.VoidOutcomeClean)
	return result, nil
}

func (s *VoidService) recordVoided(ctx context.Context, kind ledger.RecordKind, outcome telemetry.VoidOutcome) {
	if s.metrics != nil {
		s.metrics.RecordVoided(ctx, kind.String(), outcome)
	}
}

// regenerateSigned renders the expense voucher with the void overlay and
// overwrites the signed document at its deterministic key.
func (s *VoidService) regenerateSigned(ctx context.Context, rec *ledger.LedgerRecord) error {
	counterparty := s.lookupCounterparty(ctx, rec)

	// The flag is passed explicitly; the generator never reads it off the
	// record.
	pdf, err := s.generator.Render(ctx, rec, counterparty, true)
	if err != nil {
		return err
	}

	key := document.ExpenseSignedKey(rec.AgreementCode, rec.SequenceNumber)
	if err := s.store.Upload(ctx, s.buckets.Expense, key, pdf, "application/pdf"); err != nil {
		return err
	}

	if url, err := s.store.SignedURL(ctx, s.buckets.Expense, key); err == nil {
		s.cache.Refresh(s.buckets.Expense, key, document.Available(url))
	}

	return nil
}

// lookupCounterparty prefers the values denormalized onto the record and
// backfills the rest from the counterparty store. A failed lookup degrades
// to the record's own data.
func (s *VoidService) lookupCounterparty(ctx context.Context, rec *ledger.LedgerRecord) *ledger.Counterparty {
	if rec.CounterpartyIdentifier == "" {
		return nil
	}

	counterparty, err := s.counterparties.FindByIdentifier(ctx, rec.CounterpartyIdentifier)
	if err != nil {
		s.logger.Warn("counterparty lookup failed, rendering with record data",
			zap.String("identifier", rec.CounterpartyIdentifier),
			zap.Error(err))
		return nil
	}
	return counterparty
}
