package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tavola-backend/pkg/types"
)

// Modifier belongs to exactly one ModifierGroup.
type Modifier struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	ModifierGroupID uuid.UUID            `gorm:"column:modifier_group_id;type:uuid;not null;index"`
	Name            string               `gorm:"column:name;not null"`
	IsDefault       bool                 `gorm:"column:is_default;not null;default:false"`
	MaxQuantity     *int                 `gorm:"column:max_quantity"`
	DisplayOrder    int                  `gorm:"column:display_order;not null;default:0"`
	QuantityLevels  types.QuantityLevels `gorm:"column:quantity_levels;type:jsonb;serializer:json"`
	PricesBySize    types.SizePrices     `gorm:"column:prices_by_size;type:jsonb;serializer:json"`
	SidesConfig     *types.SidesConfig   `gorm:"column:sides_config;type:jsonb;serializer:json"`
	IsActive        bool                 `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (Modifier) TableName() string { return "modifiers" }

func (m *Modifier) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (m *Modifier) BeforeSave(*gorm.DB) error {
	if err := m.QuantityLevels.Validate(); err != nil {
		return invalidRecord(m.TableName(), m.ID, err)
	}
	if err := m.PricesBySize.Validate(); err != nil {
		return invalidRecord(m.TableName(), m.ID, err)
	}
	return nil
}

// HasPrices reports whether the modifier carries any price-bearing field.
func (m Modifier) HasPrices() bool {
	return len(m.QuantityLevels) > 0 || len(m.PricesBySize) > 0
}
