// Package ledger contains the application services that drive record
// creation and listing, composing the domain aggregates with voucher
// rendering and document storage.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/tesoreria/backend/internal/application/voucher"
	"github.com/tesoreria/backend/internal/domain/ledger"
	"github.com/tesoreria/backend/internal/domain/shared"
	"github.com/tesoreria/backend/internal/infrastructure/telemetry"
)

// CreateExpenseInput carries the fields of a new expense record. Agreement
// holds either the bare code or the display label; only the leading code
// token is stored.
type CreateExpenseInput struct {
	Agreement        string
	Concept          string
	Description      string
	Date             time.Time
	Quantity         decimal.Decimal
	UnitPrice        decimal.Decimal
	RetentionPercent decimal.Decimal
	RetentionCode    string
	PaymentMethod    ledger.PaymentMethod
	Bank             string
	Account          string

	CounterpartyIdentifier string
	CounterpartyName       string
	CounterpartyAddress    string
	CounterpartyPhone      string
}

// CreateIncomeInput carries the fields of a new income record.
type CreateIncomeInput struct {
	Agreement   string
	Concept     string
	Description string
	Date        time.Time
	GrossAmount decimal.Decimal
	TaxPercent  decimal.Decimal
	Bank        string
	Account     string

	CounterpartyIdentifier string
	CounterpartyName       string
}

// CreateResult is a created record plus an advisory warning when the voucher
// could not be rendered or stored. The record itself is always durable once
// the result is returned without error.
type CreateResult struct {
	Record         *ledger.LedgerRecord
	VoucherWarning string
}

// RecordService creates and lists ledger records. Creation persists the
// record first; voucher rendering and upload happen after the fact and never
// roll the record back.
type RecordService struct {
	records        ledger.RecordRepository
	counterparties ledger.CounterpartyRepository
	agreements     ledger.AgreementRepository
	generator      *voucher.Generator
	uploads        *voucher.UploadService
	resolver       *voucher.Resolver
	logger         *zap.Logger
	metrics        *telemetry.LedgerMetrics
}

// NewRecordService creates a record service
func NewRecordService(
	records ledger.RecordRepository,
	counterparties ledger.CounterpartyRepository,
	agreements ledger.AgreementRepository,
	generator *voucher.Generator,
	uploads *voucher.UploadService,
	resolver *voucher.Resolver,
	logger *zap.Logger,
) *RecordService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordService{
		records:        records,
		counterparties: counterparties,
		agreements:     agreements,
		generator:      generator,
		uploads:        uploads,
		resolver:       resolver,
		logger:         logger,
	}
}

// SetMetrics attaches business metrics emission. A nil receiver argument
// leaves the service silent, which is the default for tests.
func (s *RecordService) SetMetrics(metrics *telemetry.LedgerMetrics) {
	s.metrics = metrics
}

// CreateExpense persists a new expense record, then renders its voucher and
// stores it at the deterministic key. A render or upload failure surfaces as
// a warning on the result, never as an error.
func (s *RecordService) CreateExpense(ctx context.Context, identity shared.Identity, input CreateExpenseInput) (result *CreateResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "ledger_record.create",
		attribute.String(telemetry.SpanAttrRecordKind, ledger.KindExpense.String()))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	if !identity.Role.CanManageDocuments() {
		return nil, shared.ErrPermissionDenied
	}

	code, err := s.resolveAgreementCode(ctx, input.Agreement)
	if err != nil {
		return nil, err
	}

	rec, err := ledger.NewExpenseRecord(code, input.Concept, input.Date,
		input.Quantity, input.UnitPrice, input.RetentionPercent, input.PaymentMethod)
	if err != nil {
		return nil, err
	}
	rec.Description = input.Description
	rec.RetentionCode = input.RetentionCode
	rec.Bank = input.Bank
	rec.Account = input.Account

	counterparty, err := s.attachCounterparty(ctx, rec,
		input.CounterpartyIdentifier, input.CounterpartyName,
		input.CounterpartyAddress, input.CounterpartyPhone)
	if err != nil {
		return nil, err
	}

	if err := s.records.Create(ctx, rec); err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64(telemetry.SpanAttrSequenceNumber, rec.SequenceNumber),
		attribute.String(telemetry.SpanAttrAgreementCode, rec.AgreementCode),
	)
	if s.metrics != nil {
		s.metrics.RecordCreatedWithAmount(ctx, rec.Kind.String(), rec.AgreementCode, rec.Amounts().Net)
	}

	result = &CreateResult{Record: rec}
	if warning := s.storeExpenseVoucher(ctx, rec, counterparty); warning != "" {
		result.VoucherWarning = warning
	}
	return result, nil
}

// CreateIncome persists a new income record. The income voucher is rendered
// on demand through RenderIncomeVoucher, not at creation time.
func (s *RecordService) CreateIncome(ctx context.Context, identity shared.Identity, input CreateIncomeInput) (result *CreateResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "ledger_record.create",
		attribute.String(telemetry.SpanAttrRecordKind, ledger.KindIncome.String()))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	if !identity.Role.CanManageDocuments() {
		return nil, shared.ErrPermissionDenied
	}

	code, err := s.resolveAgreementCode(ctx, input.Agreement)
	if err != nil {
		return nil, err
	}

	rec, err := ledger.NewIncomeRecord(code, input.Concept, input.Date,
		input.GrossAmount, input.TaxPercent)
	if err != nil {
		return nil, err
	}
	rec.Description = input.Description
	rec.Bank = input.Bank
	rec.Account = input.Account

	if _, err := s.attachCounterparty(ctx, rec,
		input.CounterpartyIdentifier, input.CounterpartyName, "", ""); err != nil {
		return nil, err
	}

	if err := s.records.Create(ctx, rec); err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64(telemetry.SpanAttrSequenceNumber, rec.SequenceNumber),
		attribute.String(telemetry.SpanAttrAgreementCode, rec.AgreementCode),
	)
	if s.metrics != nil {
		s.metrics.RecordCreatedWithAmount(ctx, rec.Kind.String(), rec.AgreementCode, rec.Amounts().Net)
	}
	return &CreateResult{Record: rec}, nil
}

// RenderIncomeVoucher renders the income voucher, uploads it under the
// discoverable naming convention, and returns a signed URL for immediate
// viewing.
func (s *RecordService) RenderIncomeVoucher(ctx context.Context, identity shared.Identity, id uuid.UUID) (url string, err error) {
	ctx, span := telemetry.StartSpan(ctx, "voucher.render",
		attribute.String(telemetry.SpanAttrRecordID, id.String()),
		attribute.String(telemetry.SpanAttrRecordKind, ledger.KindIncome.String()))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	if !identity.Role.CanManageDocuments() {
		return "", shared.ErrPermissionDenied
	}

	rec, err := s.records.FindByID(ctx, ledger.KindIncome, id)
	if err != nil {
		return "", err
	}

	counterparty := s.lookupCounterparty(ctx, rec)

	pdf, err := s.generator.Render(ctx, rec, counterparty, rec.Voided)
	if err != nil {
		return "", err
	}

	entityName := rec.CounterpartyName
	if counterparty != nil {
		entityName = counterparty.Name
	}
	if entityName == "" {
		entityName = "ingreso"
	}

	key, err := s.uploads.UploadIncomeOriginal(ctx, rec, entityName, pdf)
	if err != nil {
		return "", err
	}

	url = s.resolver.SignedURLFor(ctx, ledger.KindIncome, key)
	if url == "" {
		return "", shared.NewDomainError("RENDER_FAILED", "voucher stored but no URL could be issued")
	}

	if err := s.records.UpdateDocumentURL(ctx, ledger.KindIncome, rec.ID, url); err != nil {
		s.logger.Warn("document URL update failed",
			zap.String("record_id", rec.ID.String()),
			zap.Error(err))
	}
	return url, nil
}

// List returns records matching the filter.
func (s *RecordService) List(ctx context.Context, filter ledger.RecordFilter) ([]*ledger.LedgerRecord, error) {
	return s.records.FindAll(ctx, filter)
}

// ListWithDocuments returns matching records after a document resolution
// pass, so callers can read each record's references via Documents.
func (s *RecordService) ListWithDocuments(ctx context.Context, filter ledger.RecordFilter) ([]*ledger.LedgerRecord, error) {
	recs, err := s.records.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	s.resolver.Resolve(ctx, recs)
	return recs, nil
}

// Documents returns the cached document references of a record.
func (s *RecordService) Documents(rec *ledger.LedgerRecord) voucher.Resolution {
	return s.resolver.Lookup(rec)
}

// Get returns one record by kind and id.
func (s *RecordService) Get(ctx context.Context, kind ledger.RecordKind, id uuid.UUID) (*ledger.LedgerRecord, error) {
	return s.records.FindByID(ctx, kind, id)
}

// ListAgreements returns the agreements available for new records.
func (s *RecordService) ListAgreements(ctx context.Context, activeOnly bool) ([]*ledger.Agreement, error) {
	return s.agreements.FindAll(ctx, activeOnly)
}

// resolveAgreementCode reduces a code-or-label to the stored agreement code
// and verifies the agreement exists.
func (s *RecordService) resolveAgreementCode(ctx context.Context, agreement string) (string, error) {
	code := ledger.CodeFromLabel(agreement)
	if code == "" {
		return "", shared.NewDomainError("INVALID_AGREEMENT", "agreement is required")
	}
	if _, err := s.agreements.FindByCode(ctx, code); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", shared.NewDomainError("INVALID_AGREEMENT",
				fmt.Sprintf("agreement %s does not exist", code))
		}
		return "", err
	}
	return code, nil
}

// attachCounterparty denormalizes the counterparty onto the record, creating
// the counterparty on first sight of a new identifier.
func (s *RecordService) attachCounterparty(ctx context.Context, rec *ledger.LedgerRecord, identifier, name, address, phone string) (*ledger.Counterparty, error) {
	if identifier == "" {
		rec.CounterpartyName = name
		return nil, nil
	}

	counterparty, err := s.counterparties.FindByIdentifier(ctx, identifier)
	if errors.Is(err, shared.ErrNotFound) {
		counterparty, err = ledger.NewCounterparty(identifier, name)
		if err != nil {
			return nil, err
		}
		counterparty.Address = address
		counterparty.Phone = phone
		if err := s.counterparties.Create(ctx, counterparty); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	rec.CounterpartyID = &counterparty.ID
	rec.CounterpartyIdentifier = counterparty.Identifier
	rec.CounterpartyName = counterparty.Name
	return counterparty, nil
}

// storeExpenseVoucher renders and uploads the freshly created expense
// voucher. Any failure is reported back as a warning string.
func (s *RecordService) storeExpenseVoucher(ctx context.Context, rec *ledger.LedgerRecord, counterparty *ledger.Counterparty) string {
	pdf, err := s.generator.Render(ctx, rec, counterparty, false)
	if err != nil {
		s.logger.Warn("expense voucher render failed after create",
			zap.Int64("sequence", rec.SequenceNumber),
			zap.Error(err))
		return fmt.Sprintf("record created, but the voucher could not be rendered: %v", err)
	}

	key, err := s.uploads.UploadExpenseOriginal(ctx, rec, pdf)
	if err != nil {
		s.logger.Warn("expense voucher upload failed after create",
			zap.Int64("sequence", rec.SequenceNumber),
			zap.Error(err))
		return fmt.Sprintf("record created, but the voucher could not be stored: %v", err)
	}

	url := s.resolver.SignedURLFor(ctx, rec.Kind, key)
	if url == "" {
		return ""
	}
	rec.DocumentURL = url
	if err := s.records.UpdateDocumentURL(ctx, rec.Kind, rec.ID, url); err != nil {
		s.logger.Warn("document URL update failed",
			zap.String("record_id", rec.ID.String()),
			zap.Error(err))
	}
	return ""
}

// lookupCounterparty backfills counterparty details for rendering, degrading
// to the record's denormalized data on any failure.
func (s *RecordService) lookupCounterparty(ctx context.Context, rec *ledger.LedgerRecord) *ledger.Counterparty {
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
