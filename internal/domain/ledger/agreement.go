package ledger

import (
	"strings"

	"github.com/tesoreria/backend/internal/domain/shared"
)

// Agreement is a funding agreement records are filed under. Code is the
// short stable identifier used for storage folders; Name is the long display
// name.
type Agreement struct {
	shared.BaseEntity
	Code   string
	Name   string
	Active bool
}

// NewAgreement creates an agreement
func NewAgreement(code, name string) (*Agreement, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError("INVALID_AGREEMENT", "agreement code is required")
	}
	if strings.ContainsAny(code, " \t") {
		return nil, shared.NewDomainError("INVALID_AGREEMENT", "agreement code cannot contain whitespace")
	}
	return &Agreement{
		BaseEntity: shared.NewBaseEntity(),
		Code:       code,
		Name:       strings.TrimSpace(name),
		Active:     true,
	}, nil
}

// DisplayLabel is the selector label shown in clients: "CODE — Name". Records
// store only the code; the label is resolved back to it on the way in.
func (a *Agreement) DisplayLabel() string {
	if a.Name == "" {
		return a.Code
	}
	return a.Code + " — " + a.Name
}

// CodeFromLabel extracts the agreement code from a display label. Labels put
// the code first, so the first whitespace-delimited token is the code.
func CodeFromLabel(label string) string {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
