// Package ledger holds the financial record aggregates: expense and income
// entries keyed by agreement and per-kind sequence number, their monetary
// arithmetic, and the repositories that persist them.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tesoreria/backend/internal/domain/shared"
)

// RecordKind distinguishes the two ledger record families. Expenses carry a
// line-item quantity with retention; incomes carry gross/tax totals.
type RecordKind string

const (
	KindExpense RecordKind = "expense"
	KindIncome  RecordKind = "income"
)

// IsValid checks if the kind is a valid RecordKind
func (k RecordKind) IsValid() bool {
	return k == KindExpense || k == KindIncome
}

// String returns the string representation of RecordKind
func (k RecordKind) String() string {
	return string(k)
}

// PaymentMethod is how an expense was paid out. It selects the balancing
// account on the printed voucher.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentTransfer PaymentMethod = "transfer"
)

// IsValid checks if the method is a valid PaymentMethod
func (m PaymentMethod) IsValid() bool {
	return m == PaymentCash || m == PaymentTransfer
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// LedgerRecord is an expense or income entry. SequenceNumber is assigned by
// the database per kind and is unique within that kind; together with the
// agreement code it addresses every stored document for the record.
type LedgerRecord struct {
	shared.BaseEntity
	Kind           RecordKind
	AgreementCode  string
	SequenceNumber int64
	Date           time.Time
	Concept        string
	Description    string

	CounterpartyID         *uuid.UUID
	CounterpartyIdentifier string
	CounterpartyName       string

	// Expense fields.
	Quantity         decimal.Decimal
	UnitPrice        decimal.Decimal
	RetentionPercent decimal.Decimal
	RetentionCode    string
	PaymentMethod    PaymentMethod

	// Income fields.
	GrossAmount decimal.Decimal
	TaxPercent  decimal.Decimal
	Bank        string
	Account     string

	// DocumentURL is the last rendered voucher location, if any. Purely
	// informational; resolution always re-derives keys from the record.
	DocumentURL string

	// Voided marks an administratively annulled record. The flag only ever
	// moves from false to true.
	Voided bool
}

// NewExpenseRecord creates an expense record pending a database-assigned
// sequence number.
func NewExpenseRecord(agreementCode, concept string, date time.Time, quantity, unitPrice, retentionPercent decimal.Decimal, method PaymentMethod) (*LedgerRecord, error) {
	if agreementCode == "" {
		return nil, shared.NewDomainError("INVALID_AGREEMENT", "agreement code is required")
	}
	if concept == "" {
		return nil, shared.NewDomainError("INVALID_CONCEPT", "concept is required")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "quantity must be positive")
	}
	if unitPrice.LessThan(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_UNIT_PRICE", "unit price cannot be negative")
	}
	if retentionPercent.LessThan(decimal.Zero) || retentionPercent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, shared.NewDomainError("INVALID_RETENTION", "retention percent must be between 0 and 100")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "unknown payment method")
	}
	return &LedgerRecord{
		BaseEntity:       shared.NewBaseEntity(),
		Kind:             KindExpense,
		AgreementCode:    agreementCode,
		Date:             date,
		Concept:          concept,
		Quantity:         quantity,
		UnitPrice:        unitPrice,
		RetentionPercent: retentionPercent,
		PaymentMethod:    method,
	}, nil
}

// NewIncomeRecord creates an income record pending a database-assigned
// sequence number.
func NewIncomeRecord(agreementCode, concept string, date time.Time, grossAmount, taxPercent decimal.Decimal) (*LedgerRecord, error) {
	if agreementCode == "" {
		return nil, shared.NewDomainError("INVALID_AGREEMENT", "agreement code is required")
	}
	if concept == "" {
		return nil, shared.NewDomainError("INVALID_CONCEPT", "concept is required")
	}
	if grossAmount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "gross amount must be positive")
	}
	if taxPercent.LessThan(decimal.Zero) || taxPercent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, shared.NewDomainError("INVALID_TAX", "tax percent must be between 0 and 100")
	}
	return &LedgerRecord{
		BaseEntity:    shared.NewBaseEntity(),
		Kind:          KindIncome,
		AgreementCode: agreementCode,
		Date:          date,
		Concept:       concept,
		GrossAmount:   grossAmount,
		TaxPercent:    taxPercent,
	}, nil
}

// Void marks the record as annulled. Voiding an already-voided record returns
// ErrAlreadyVoided so callers can treat it as a benign no-op.
func (r *LedgerRecord) Void() error {
	if r.Voided {
		return shared.ErrAlreadyVoided
	}
	r.Voided = true
	r.Touch()
	return nil
}

// Amounts computes the record's monetary breakdown.
func (r *LedgerRecord) Amounts() Amounts {
	if r.Kind == KindIncome {
		return IncomeAmounts(r.GrossAmount, r.TaxPercent)
	}
	return ExpenseAmounts(r.Quantity, r.UnitPrice, r.RetentionPercent)
}

// CompactDate renders the record date as yyyymmdd for filename embedding.
func (r *LedgerRecord) CompactDate() string {
	return r.Date.Format("20060102")
}
