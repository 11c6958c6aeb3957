package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/tesoreria/backend/internal/domain/ledger"
	"github.com/tesoreria/backend/internal/infrastructure/persistence/models"
)

// GormAgreementRepository implements ledger.AgreementRepository using GORM
type GormAgreementRepository struct {
	db *gorm.DB
}

// NewGormAgreementRepository creates a new GormAgreementRepository
func NewGormAgreementRepository(db *gorm.DB) *GormAgreementRepository {
	return &GormAgreementRepository{db: db}
}

// Create inserts an agreement
func (r *GormAgreementRepository) Create(ctx context.Context, agreement *ledger.Agreement) error {
	var model models.AgreementModel
	model.FromDomain(agreement)
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindByCode finds an agreement by its code
func (r *GormAgreementRepository) FindByCode(ctx context.Context, code string) (*ledger.Agreement, error) {
	var model models.AgreementModel
	if err := r.db.WithContext(ctx).First(&model, "code = ?", code).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindAll returns agreements, optionally only the active ones, ordered by code
func (r *GormAgreementRepository) FindAll(ctx context.Context, activeOnly bool) ([]*ledger.Agreement, error) {
	query := r.db.WithContext(ctx).Model(&models.AgreementModel{})
	if activeOnly {
		query = query.Where("active = ?", true)
	}

	var agreementModels []models.AgreementModel
	if err := query.Order("code ASC").Find(&agreementModels).Error; err != nil {
		return nil, err
	}

	agreements := make([]*ledger.Agreement, len(agreementModels))
	for i := range agreementModels {
		agreements[i] = agreementModels[i].ToDomain()
	}
	return agreements, nil
}

// Ensure GormAgreementRepository implements AgreementRepository
var _ ledger.AgreementRepository = (*GormAgreementRepository)(nil)
