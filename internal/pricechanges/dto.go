package pricechanges

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tavola-backend/pkg/db/models"
	"github.com/angelmondragon/tavola-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tavola-backend/pkg/errors"
	"github.com/angelmondragon/tavola-backend/pkg/money"
	"github.com/angelmondragon/tavola-backend/pkg/types"
)

// Tenant scopes every price operation to one business and the acting admin.
type Tenant struct {
	BusinessID uuid.UUID
	AdminID    uuid.UUID
}

func (t Tenant) Validate() error {
	if t.BusinessID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "business context required")
	}
	if t.AdminID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "admin identity required")
	}
	return nil
}

// History rows store the value as numeric(12,4); anything finer or larger
// would be recorded differently from what was applied.
const (
	maxValueScale  = 4
	maxValueDigits = 8
)

var maxValue = decimal.New(1, maxValueDigits)

// BulkPriceChangeInput is one bulk adjustment request.
type BulkPriceChangeInput struct {
	Type      enums.PriceChangeType
	ValueType enums.PriceValueType
	Value     decimal.Decimal
	Target    enums.PriceChangeTarget
}

func (in BulkPriceChangeInput) validate() (BulkPriceChangeInput, error) {
	if !in.Type.IsValid() {
		return in, pkgerrors.New(pkgerrors.CodeValidation, "type must be INCREASE or DECREASE")
	}
	if !in.ValueType.IsValid() {
		return in, pkgerrors.New(pkgerrors.CodeValidation, "value_type must be PERCENTAGE or FIXED")
	}
	if in.Value.IsNegative() {
		return in, pkgerrors.New(pkgerrors.CodeValidation, "value must be non-negative")
	}
	if !in.Value.Equal(in.Value.Round(maxValueScale)) {
		return in, pkgerrors.New(pkgerrors.CodeValidation, "value supports at most 4 decimal places").
			WithDetails(map[string]any{"value": in.Value.String()})
	}
	if in.Value.GreaterThanOrEqual(maxValue) {
		return in, pkgerrors.New(pkgerrors.CodeValidation, "value is too large").
			WithDetails(map[string]any{"value": in.Value.String()})
	}
	if in.Target == "" {
		in.Target = enums.PriceTargetItems
	}
	if !in.Target.IsValid() {
		return in, pkgerrors.New(pkgerrors.CodeValidation, "target must be ITEMS or MODIFIERS")
	}
	return in, nil
}

func (in BulkPriceChangeInput) change() money.Change {
	return money.Change{Type: in.Type, ValueType: in.ValueType, Value: in.Value}
}

// BulkPriceChangeResult reports how many records were changed.
type BulkPriceChangeResult struct {
	HistoryID uuid.UUID `json:"history_id"`
	Affected  int       `json:"affected"`
}

// RollbackResult reports the outcome of restoring a snapshot.
type RollbackResult struct {
	HistoryID  uuid.UUID   `json:"history_id"`
	Restored   int         `json:"restored"`
	SkippedIDs []uuid.UUID `json:"skipped_ids,omitempty"`
}

// HistorySummary is a history row without its snapshot.
type HistorySummary struct {
	ID                 uuid.UUID               `json:"id"`
	BusinessID         uuid.UUID               `json:"business_id"`
	AdminID            uuid.UUID               `json:"admin_id"`
	Type               enums.PriceChangeType   `json:"type"`
	ValueType          enums.PriceValueType    `json:"value_type"`
	Value              decimal.Decimal         `json:"value"`
	Target             enums.PriceChangeTarget `json:"target"`
	AffectedItemsCount int                     `json:"affected_items_count"`
	Status             enums.PriceChangeStatus `json:"status"`
	RolledBackBy       *uuid.UUID              `json:"rolled_back_by,omitempty"`
	RolledBackAt       *time.Time              `json:"rolled_back_at,omitempty"`
	CreatedAt          time.Time               `json:"created_at"`
	UpdatedAt          time.Time               `json:"updated_at"`
}

// HistoryDetail adds the decoded snapshot.
type HistoryDetail struct {
	HistorySummary
	Snapshot Snapshot `json:"snapshot"`
}

// HistoryList is one page of history rows.
type HistoryList struct {
	Items      []HistorySummary `json:"items"`
	Pagination types.PageMeta   `json:"pagination"`
}

// ClearResult reports how many history rows were deleted.
type ClearResult struct {
	Deleted int64 `json:"deleted"`
}

func summaryFromModel(row models.PriceChangeHistory) HistorySummary {
	return HistorySummary{
		ID:                 row.ID,
		BusinessID:         row.BusinessID,
		AdminID:            row.AdminID,
		Type:               row.Type,
		ValueType:          row.ValueType,
		Value:              row.Value,
		Target:             row.Target,
		AffectedItemsCount: row.AffectedItemsCount,
		Status:             row.Status,
		RolledBackBy:       row.RolledBackBy,
		RolledBackAt:       row.RolledBackAt,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
}
