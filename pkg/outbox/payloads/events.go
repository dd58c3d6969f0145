package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tavola-backend/pkg/enums"
)

// PriceChangeAppliedEvent is emitted once a bulk change commits.
type PriceChangeAppliedEvent struct {
	HistoryID          uuid.UUID               `json:"history_id"`
	BusinessID         uuid.UUID               `json:"business_id"`
	AdminID            uuid.UUID               `json:"admin_id"`
	Type               enums.PriceChangeType   `json:"type"`
	ValueType          enums.PriceValueType    `json:"value_type"`
	Value              decimal.Decimal         `json:"value"`
	Target             enums.PriceChangeTarget `json:"target"`
	AffectedItemsCount int                     `json:"affected_items_count"`
	RecordIDs          []uuid.UUID             `json:"record_ids"`
}

// PriceChangeRolledBackEvent is emitted once a rollback commits.
type PriceChangeRolledBackEvent struct {
	HistoryID     uuid.UUID               `json:"history_id"`
	BusinessID    uuid.UUID               `json:"business_id"`
	RolledBackBy  uuid.UUID               `json:"rolled_back_by"`
	Target        enums.PriceChangeTarget `json:"target"`
	RestoredCount int                     `json:"restored_count"`
	SkippedIDs    []uuid.UUID             `json:"skipped_ids,omitempty"`
	RolledBackAt  time.Time               `json:"rolled_back_at"`
}
