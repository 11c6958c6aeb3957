package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tesoreria/backend/internal/domain/ledger"
	"github.com/tesoreria/backend/internal/infrastructure/persistence/models"
)

// GormCounterpartyRepository implements ledger.CounterpartyRepository using GORM
type GormCounterpartyRepository struct {
	db *gorm.DB
}

// NewGormCounterpartyRepository creates a new GormCounterpartyRepository
func NewGormCounterpartyRepository(db *gorm.DB) *GormCounterpartyRepository {
	return &GormCounterpartyRepository{db: db}
}

// Create inserts a counterparty
func (r *GormCounterpartyRepository) Create(ctx context.Context, counterparty *ledger.Counterparty) error {
	var model models.CounterpartyModel
	model.FromDomain(counterparty)
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindByID finds a counterparty by its ID
func (r *GormCounterpartyRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Counterparty, error) {
	var model models.CounterpartyModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindByIdentifier finds a counterparty by its tax or national ID
func (r *GormCounterpartyRepository) FindByIdentifier(ctx context.Context, identifier string) (*ledger.Counterparty, error) {
	var model models.CounterpartyModel
	if err := r.db.WithContext(ctx).First(&model, "identifier = ?", identifier).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return model.ToDomain(), nil
}

// Ensure GormCounterpartyRepository implements CounterpartyRepository
var _ ledger.CounterpartyRepository = (*GormCounterpartyRepository)(nil)
