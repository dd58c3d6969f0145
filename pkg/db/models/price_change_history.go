package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/tavola-backend/pkg/enums"
)

// PriceChangeHistory is the append-only log row written by one bulk price change.
// Only Status, RolledBackBy and RolledBackAt change after insert.
type PriceChangeHistory struct {
	ID                 uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	BusinessID         uuid.UUID               `gorm:"column:business_id;type:uuid;not null;index"`
	AdminID            uuid.UUID               `gorm:"column:admin_id;type:uuid;not null"`
	Type               enums.PriceChangeType   `gorm:"column:type;type:varchar(16);not null"`
	ValueType          enums.PriceValueType    `gorm:"column:value_type;type:varchar(16);not null"`
	Value              decimal.Decimal         `gorm:"column:value;type:numeric(12,4);not null"`
	Target             enums.PriceChangeTarget `gorm:"column:target;type:varchar(16);not null"`
	AffectedItemsCount int                     `gorm:"column:affected_items_count;not null;default:0"`
	Snapshot           datatypes.JSON          `gorm:"column:snapshot;type:jsonb;not null"`
	Status             enums.PriceChangeStatus `gorm:"column:status;type:varchar(16);not null;default:ACTIVE"`
	RolledBackBy       *uuid.UUID              `gorm:"column:rolled_back_by;type:uuid"`
	RolledBackAt       *time.Time              `gorm:"column:rolled_back_at"`
	CreatedAt          time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (PriceChangeHistory) TableName() string { return "price_change_histories" }

func (h *PriceChangeHistory) BeforeCreate(*gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.Status == "" {
		h.Status = enums.PriceChangeStatusActive
	}
	return nil
}
