package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tesoreria/backend/internal/infrastructure/persistence/models"
)

// LedgerStats answers backlog questions over the ledger tables for the
// periodic metrics collector. It satisfies telemetry.LedgerStatsProvider.
type LedgerStats struct {
	db *gorm.DB
}

// NewLedgerStats creates a new LedgerStats backed by the given database.
func NewLedgerStats(db *gorm.DB) *LedgerStats {
	return &LedgerStats{db: db}
}

// CountActiveRecords returns the number of non-voided records of the given kind.
func (s *LedgerStats) CountActiveRecords(ctx context.Context, kind string) (int64, error) {
	query, err := s.kindQuery(ctx, kind)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := query.Where("voided = ?", false).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting active %s records: %w", kind, err)
	}
	return count, nil
}

// CountMissingDocuments returns the number of non-voided records of the given
// kind that have no stored document.
func (s *LedgerStats) CountMissingDocuments(ctx context.Context, kind string) (int64, error) {
	query, err := s.kindQuery(ctx, kind)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := query.Where("voided = ? AND document_url = ?", false, "").Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting %s records without document: %w", kind, err)
	}
	return count, nil
}

func (s *LedgerStats) kindQuery(ctx context.Context, kind string) (*gorm.DB, error) {
	switch kind {
	case "expense":
		return s.db.WithContext(ctx).Model(&models.ExpenseRecordModel{}), nil
	case "income":
		return s.db.WithContext(ctx).Model(&models.IncomeRecordModel{}), nil
	default:
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}
}
