package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tesoreria/backend/internal/domain/ledger"
	"github.com/tesoreria/backend/internal/domain/shared"
	"github.com/tesoreria/backend/internal/infrastructure/persistence/models"
)

// GormLedgerRecordRepository implements ledger.RecordRepository using GORM.
// Expense and income records live in separate tables with independent
// sequence counters.
type GormLedgerRecordRepository struct {
	db *gorm.DB
}

// NewGormLedgerRecordRepository creates a new GormLedgerRecordRepository
func NewGormLedgerRecordRepository(db *gorm.DB) *GormLedgerRecordRepository {
	return &GormLedgerRecordRepository{db: db}
}

// Create inserts the record. The sequence number is assigned by the database
// and written back onto the domain record.
func (r *GormLedgerRecordRepository) Create(ctx context.Context, record *ledger.LedgerRecord) error {
	if record.Kind == ledger.KindExpense {
		var model models.ExpenseRecordModel
		model.FromDomain(record)
		if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
			return err
		}
		record.SequenceNumber = model.SequenceNumber
		return nil
	}

	var model models.IncomeRecordModel
	model.FromDomain(record)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	record.SequenceNumber = model.SequenceNumber
	return nil
}

// FindByID finds a record by kind and ID
func (r *GormLedgerRecordRepository) FindByID(ctx context.Context, kind ledger.RecordKind, id uuid.UUID) (*ledger.LedgerRecord, error) {
	if kind == ledger.KindExpense {
		var model models.ExpenseRecordModel
		if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
			return nil, mapNotFound(err)
		}
		return model.ToDomain(), nil
	}

	var model models.IncomeRecordModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindBySequence finds a record by kind and sequence number
func (r *GormLedgerRecordRepository) FindBySequence(ctx context.Context, kind ledger.RecordKind, sequenceNumber int64) (*ledger.LedgerRecord, error) {
	if kind == ledger.KindExpense {
		var model models.ExpenseRecordModel
		if err := r.db.WithContext(ctx).First(&model, "sequence_number = ?", sequenceNumber).Error; err != nil {
			return nil, mapNotFound(err)
		}
		return model.ToDomain(), nil
	}

	var model models.IncomeRecordModel
	if err := r.db.WithContext(ctx).First(&model, "sequence_number = ?", sequenceNumber).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindAll returns records matching the filter, newest sequence first. An
// unset Kind returns both families.
func (r *GormLedgerRecordRepository) FindAll(ctx context.Context, filter ledger.RecordFilter) ([]*ledger.LedgerRecord, error) {
	var records []*ledger.LedgerRecord

	if filter.Kind == "" || filter.Kind == ledger.KindExpense {
		var expenseModels []models.ExpenseRecordModel
		query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ExpenseRecordModel{}), filter)
		if err := query.Find(&expenseModels).Error; err != nil {
			return nil, err
		}
		for i := range expenseModels {
			records = append(records, expenseModels[i].ToDomain())
		}
	}

	if filter.Kind == "" || filter.Kind == ledger.KindIncome {
		var incomeModels []models.IncomeRecordModel
		query := r.applyFilter(r.db.WithContext(ctx).Model(&models.IncomeRecordModel{}), filter)
		if err := query.Find(&incomeModels).Error; err != nil {
			return nil, err
		}
		for i := range incomeModels {
			records = append(records, incomeModels[i].ToDomain())
		}
	}

	return records, nil
}

// MarkVoided flips the voided flag. The voided = false guard makes the
// update idempotence-safe; zero affected rows means the record is gone or
// was voided concurrently, reported as shared.ErrNoRowsUpdated.
func (r *GormLedgerRecordRepository) MarkVoided(ctx context.Context, kind ledger.RecordKind, id uuid.UUID) error {
	var result *gorm.DB
	if kind == ledger.KindExpense {
		result = r.db.WithContext(ctx).Model(&models.ExpenseRecordModel{}).
			Where("id = ? AND voided = ?", id, false).
			Update("voided", true)
	} else {
		result = r.db.WithContext(ctx).Model(&models.IncomeRecordModel{}).
			Where("id = ? AND voided = ?", id, false).
			Update("voided", true)
	}

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNoRowsUpdated
	}
	return nil
}

// UpdateDocumentURL records the last rendered voucher location
func (r *GormLedgerRecordRepository) UpdateDocumentURL(ctx context.Context, kind ledger.RecordKind, id uuid.UUID, url string) error {
	if kind == ledger.KindExpense {
		return r.db.WithContext(ctx).Model(&models.ExpenseRecordModel{}).
			Where("id = ?", id).
			Update("document_url", url).Error
	}
	return r.db.WithContext(ctx).Model(&models.IncomeRecordModel{}).
		Where("id = ?", id).
		Update("document_url", url).Error
}

func (r *GormLedgerRecordRepository) applyFilter(query *gorm.DB, filter ledger.RecordFilter) *gorm.DB {
	if filter.AgreementCode != "" {
		query = query.Where("agreement_code = ?", filter.AgreementCode)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where(
			"concept ILIKE ? OR description ILIKE ? OR counterparty_name ILIKE ?",
			pattern, pattern, pattern)
	}
	if !filter.From.IsZero() {
		query = query.Where("date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("date <= ?", filter.To)
	}
	if !filter.IncludeVoided {
		query = query.Where("voided = ?", false)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	return query.Order("sequence_number DESC")
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}

// Ensure GormLedgerRecordRepository implements RecordRepository
var _ ledger.RecordRepository = (*GormLedgerRecordRepository)(nil)
