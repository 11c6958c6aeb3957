package ledger

import (
	"strings"

	"github.com/tesoreria/backend/internal/domain/shared"
)

// Counterparty is the external party on a record: the payee of an expense or
// the payer of an income. Identifier is the tax or national ID used for
// lookup.
type Counterparty struct {
	shared.BaseEntity
	Identifier string
	Name       string
	Address    string
	Phone      string
}

// NewCounterparty creates a counterparty
func NewCounterparty(identifier, name string) (*Counterparty, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, shared.NewDomainError("INVALID_COUNTERPARTY", "identifier is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_COUNTERPARTY", "name is required")
	}
	return &Counterparty{
		BaseEntity: shared.NewBaseEntity(),
		Identifier: identifier,
		Name:       strings.TrimSpace(name),
	}, nil
}
