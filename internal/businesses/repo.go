package businesses

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/tavola-backend/pkg/db/models"
)

// Repository reads the business record prices are scoped to.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Current returns the deployment's business. Single-business installs have
// exactly one row; the oldest one wins otherwise.
func (r *Repository) Current(ctx context.Context) (*models.Business, error) {
	var business models.Business
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Order("id ASC").
		First(&business).Error
	if err != nil {
		return nil, err
	}
	return &business, nil
}
