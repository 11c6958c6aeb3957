package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RecordFilter narrows listing queries. Zero values mean "no constraint".
// Search matches concept, description and counterparty name
// case-insensitively; From and To bound the record date inclusively.
type RecordFilter struct {
	Kind          RecordKind
	AgreementCode string
	Search        string
	From          time.Time
	To            time.Time
	IncludeVoided bool
	Limit         int
	Offset        int
}

// RecordRepository persists ledger records. Create assigns the per-kind
// sequence number from the database and writes it back to the record.
type RecordRepository interface {
	Create(ctx context.Context, record *LedgerRecord) error
	FindByID(ctx context.Context, kind RecordKind, id uuid.UUID) (*LedgerRecord, error)
	FindBySequence(ctx context.Context, kind RecordKind, sequenceNumber int64) (*LedgerRecord, error)
	FindAll(ctx context.Context, filter RecordFilter) ([]*LedgerRecord, error)

	// MarkVoided flips the voided flag on the row for kind/id. It must
	// report shared.ErrNoRowsUpdated when no row changed, so callers can
	// refuse to touch storage for a record the database never voided.
	MarkVoided(ctx context.Context, kind RecordKind, id uuid.UUID) error

	// UpdateDocumentURL records the last rendered voucher location. Failures
	// here are advisory; the URL is never used for addressing.
	UpdateDocumentURL(ctx context.Context, kind RecordKind, id uuid.UUID, url string) error
}

// CounterpartyRepository persists counterparties.
type CounterpartyRepository interface {
	Create(ctx context.Context, counterparty *Counterparty) error
	FindByID(ctx context.Context, id uuid.UUID) (*Counterparty, error)
	FindByIdentifier(ctx context.Context, identifier string) (*Counterparty, error)
}

// AgreementRepository persists agreements.
type AgreementRepository interface {
	Create(ctx context.Context, agreement *Agreement) error
	FindByCode(ctx context.Context, code string) (*Agreement, error)
	FindAll(ctx context.Context, activeOnly bool) ([]*Agreement, error)
}
