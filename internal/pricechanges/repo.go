package pricechanges

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tavola-backend/pkg/db/models"
	"github.com/angelmondragon/tavola-backend/pkg/enums"
	"github.com/angelmondragon/tavola-backend/pkg/pagination"
)

// Repository persists price change history rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, row *models.PriceChangeHistory) error
	FindByID(ctx context.Context, businessID, id uuid.UUID) (*models.PriceChangeHistory, error)
	List(ctx context.Context, businessID uuid.UUID, params pagination.Params) ([]models.PriceChangeHistory, int64, error)
	MarkRolledBack(ctx context.Context, businessID, id, adminID uuid.UUID, at time.Time) (int64, error)
	Delete(ctx context.Context, businessID, id uuid.UUID) (int64, error)
	Clear(ctx context.Context, businessID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the history repository to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, row *models.PriceChangeHistory) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) FindByID(ctx context.Context, businessID, id uuid.UUID) (*models.PriceChangeHistory, error) {
	var row models.PriceChangeHistory
	err := r.db.WithContext(ctx).
		Where("id = ? AND business_id = ?", id, businessID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns one page newest first. Snapshots are not loaded.
func (r *repository) List(ctx context.Context, businessID uuid.UUID, params pagination.Params) ([]models.PriceChangeHistory, int64, error) {
	base := r.db.WithContext(ctx).
		Model(&models.PriceChangeHistory{}).
		Where("business_id = ?", businessID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.PriceChangeHistory
	err := base.Session(&gorm.Session{}).
		Omit("snapshot").
		Order("created_at DESC").
		Order("id DESC").
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// MarkRolledBack flips an ACTIVE row to ROLLED_BACK. Zero rows affected means
// the row was already rolled back or is gone.
func (r *repository) MarkRolledBack(ctx context.Context, businessID, id, adminID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PriceChangeHistory{}).
		Where("id = ? AND business_id = ? AND status = ?", id, businessID, enums.PriceChangeStatusActive).
		Updates(map[string]any{
			"status":         enums.PriceChangeStatusRolledBack,
			"rolled_back_by": adminID,
			"rolled_back_at": at,
			"updated_at":     at,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) Delete(ctx context.Context, businessID, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND business_id = ?", id, businessID).
		Delete(&models.PriceChangeHistory{})
	return res.RowsAffected, res.Error
}

func (r *repository) Clear(ctx context.Context, businessID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Delete(&models.PriceChangeHistory{})
	return res.RowsAffected, res.Error
}
