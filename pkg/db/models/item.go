package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tavola-backend/pkg/types"
)

// Item is a menu item. BasePrice applies only when the item is not sizeable.
type Item struct {
	ID             uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	Name           string                   `gorm:"column:name;not null"`
	BasePrice      decimal.NullDecimal      `gorm:"column:base_price;type:numeric(12,2)"`
	IsSizeable     bool                     `gorm:"column:is_sizeable;not null;default:false"`
	Sizes          types.ItemSizes          `gorm:"column:sizes;type:jsonb;serializer:json"`
	ModifierGroups types.ItemModifierGroups `gorm:"column:modifier_groups;type:jsonb;serializer:json"`
	IsActive       bool                     `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (Item) TableName() string { return "items" }

func (i *Item) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// BeforeSave re-checks the JSON price columns on every create, save and
// bulk upsert.
func (i *Item) BeforeSave(*gorm.DB) error {
	if negativePrice(i.BasePrice) {
		return invalidRecord(i.TableName(), i.ID, errors.New("base price must be non-negative"))
	}
	if err := i.Sizes.Validate(); err != nil {
		return invalidRecord(i.TableName(), i.ID, err)
	}
	if err := i.ModifierGroups.Validate(); err != nil {
		return invalidRecord(i.TableName(), i.ID, err)
	}
	return nil
}

// HasPrices reports whether the item carries any price-bearing field.
func (i Item) HasPrices() bool {
	return i.BasePrice.Valid || len(i.Sizes) > 0
}
