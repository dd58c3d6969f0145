package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tavola-backend/pkg/types"
)

// ModifierGroup carries the group-wide default pricing for its modifiers.
type ModifierGroup struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	Name           string               `gorm:"column:name;not null"`
	MinSelect      int                  `gorm:"column:min_select;not null;default:0"`
	MaxSelect      int                  `gorm:"column:max_select;not null;default:1"`
	QuantityLevels types.QuantityLevels `gorm:"column:quantity_levels;type:jsonb;serializer:json"`
	PricesBySize   types.SizePrices     `gorm:"column:prices_by_size;type:jsonb;serializer:json"`
	Price          decimal.NullDecimal  `gorm:"column:price;type:numeric(12,2)"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (ModifierGroup) TableName() string { return "modifier_groups" }

func (g *ModifierGroup) BeforeCreate(*gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

func (g *ModifierGroup) BeforeSave(*gorm.DB) error {
	if negativePrice(g.Price) {
		return invalidRecord(g.TableName(), g.ID, errors.New("group price must be non-negative"))
	}
	if g.MinSelect < 0 || (g.MaxSelect > 0 && g.MaxSelect < g.MinSelect) {
		return invalidRecord(g.TableName(), g.ID, errors.New("max_select must not be below min_select"))
	}
	if err := g.QuantityLevels.Validate(); err != nil {
		return invalidRecord(g.TableName(), g.ID, err)
	}
	if err := g.PricesBySize.Validate(); err != nil {
		return invalidRecord(g.TableName(), g.ID, err)
	}
	return nil
}
