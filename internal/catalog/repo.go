package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/tavola-backend/pkg/db/models"
)

const defaultBatchSize = 200

var (
	itemPriceColumns     = []string{"base_price", "sizes", "updated_at"}
	modifierPriceColumns = []string{"quantity_levels", "prices_by_size", "updated_at"}
)

// Repository reads menu records and writes their price columns.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListItems(ctx context.Context) ([]models.Item, error)
	ListModifiersInGroups(ctx context.Context) ([]models.Modifier, error)
	FindItemByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	FindItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Item, error)
	FindModifiersByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Modifier, error)
	FindGroupsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ModifierGroup, error)
	UpsertItemPrices(ctx context.Context, items []models.Item) error
	UpsertModifierPrices(ctx context.Context, modifiers []models.Modifier) error
}

type repository struct {
	db        *gorm.DB
	batchSize int
}

// NewRepository builds a catalog repository; batchSize bounds each upsert statement.
func NewRepository(db *gorm.DB, batchSize int) Repository {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &repository{db: db, batchSize: batchSize}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx, batchSize: r.batchSize}
}

func (r *repository) ListItems(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	err := r.db.WithContext(ctx).Order("id ASC").Find(&items).Error
	return items, err
}

// ListModifiersInGroups returns every modifier whose group still exists.
func (r *repository) ListModifiersInGroups(ctx context.Context) ([]models.Modifier, error) {
	db := r.db.WithContext(ctx)
	groupIDs := db.Session(&gorm.Session{NewDB: true}).Model(&models.ModifierGroup{}).Select("id")
	var modifiers []models.Modifier
	err := db.Where("modifier_group_id IN (?)", groupIDs).
		Order("id ASC").
		Find(&modifiers).Error
	return modifiers, err
}

func (r *repository) FindItemByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Item, error) {
	return findInChunks[models.Item](ctx, r.db, ids, r.batchSize)
}

func (r *repository) FindModifiersByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Modifier, error) {
	return findInChunks[models.Modifier](ctx, r.db, ids, r.batchSize)
}

func (r *repository) FindGroupsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ModifierGroup, error) {
	return findInChunks[models.ModifierGroup](ctx, r.db, ids, r.batchSize)
}

// findInChunks splits ids into batchSize-sized IN lists so a large snapshot
// stays under the driver's bind parameter limit. Rows come back in id order
// within each chunk.
func findInChunks[T any](ctx context.Context, db *gorm.DB, ids []uuid.UUID, batchSize int) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out := make([]T, 0, len(ids))
	for start := 0; start < len(ids); start += batchSize {
		end := min(start+batchSize, len(ids))
		var chunk []T
		err := db.WithContext(ctx).
			Where("id IN ?", ids[start:end]).
			Order("id ASC").
			Find(&chunk).Error
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
	return out, nil
}

// UpsertItemPrices writes base_price and sizes for every row in one batched
// INSERT ... ON CONFLICT (id) DO UPDATE. Other columns are left untouched.
func (r *repository) UpsertItemPrices(ctx context.Context, items []models.Item) error {
	if len(items) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range items {
		items[i].UpdatedAt = now
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(itemPriceColumns),
		}).
		CreateInBatches(&items, r.batchSize).Error
}

// UpsertModifierPrices writes quantity_levels and prices_by_size the same way.
func (r *repository) UpsertModifierPrices(ctx context.Context, modifiers []models.Modifier) error {
	if len(modifiers) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range modifiers {
		modifiers[i].UpdatedAt = now
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(modifierPriceColumns),
		}).
		CreateInBatches(&modifiers, r.batchSize).Error
}
