package pricechanges

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/angelmondragon/tavola-backend/pkg/enums"
	"github.com/angelmondragon/tavola-backend/pkg/types"
)

// Snapshot is the pre-change price state captured by one bulk change. The
// concrete shape is selected by the history row's target.
type Snapshot interface {
	Target() enums.PriceChangeTarget
	Len() int
	RecordIDs() []uuid.UUID
}

// SizePriceSnapshot is the price of one item size.
type SizePriceSnapshot struct {
	SizeID uuid.UUID       `json:"size_id"`
	Price  decimal.Decimal `json:"price"`
}

// ItemSnapshot holds an item's mutable price fields.
type ItemSnapshot struct {
	ItemID    uuid.UUID           `json:"item_id"`
	BasePrice *decimal.Decimal    `json:"base_price"`
	Sizes     []SizePriceSnapshot `json:"sizes"`
}

// ModifierSnapshot holds a modifier's price lists wholesale.
type ModifierSnapshot struct {
	ModifierID     uuid.UUID            `json:"modifier_id"`
	QuantityLevels types.QuantityLevels `json:"quantity_levels"`
	PricesBySize   types.SizePrices     `json:"prices_by_size"`
}

type ItemSnapshots []ItemSnapshot

func (ItemSnapshots) Target() enums.PriceChangeTarget { return enums.PriceTargetItems }
func (s ItemSnapshots) Len() int                      { return len(s) }

func (s ItemSnapshots) RecordIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(s))
	for i, snap := range s {
		ids[i] = snap.ItemID
	}
	return ids
}

type ModifierSnapshots []ModifierSnapshot

func (ModifierSnapshots) Target() enums.PriceChangeTarget { return enums.PriceTargetModifiers }
func (s ModifierSnapshots) Len() int                      { return len(s) }

func (s ModifierSnapshots) RecordIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(s))
	for i, snap := range s {
		ids[i] = snap.ModifierID
	}
	return ids
}

// EncodeSnapshot serializes a snapshot for the history row.
func EncodeSnapshot(snapshot Snapshot) (datatypes.JSON, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("snapshot required")
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encode %s snapshot: %w", snapshot.Target(), err)
	}
	return datatypes.JSON(raw), nil
}

// DecodeSnapshot reads a stored snapshot using the row's target as the tag.
func DecodeSnapshot(target enums.PriceChangeTarget, raw datatypes.JSON) (Snapshot, error) {
	switch target {
	case enums.PriceTargetItems:
		var out ItemSnapshots
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &out); err != nil {
				return nil, fmt.Errorf("decode item snapshot: %w", err)
			}
		}
		if out == nil {
			out = ItemSnapshots{}
		}
		return out, nil
	case enums.PriceTargetModifiers:
		var out ModifierSnapshots
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &out); err != nil {
				return nil, fmt.Errorf("decode modifier snapshot: %w", err)
			}
		}
		if out == nil {
			out = ModifierSnapshots{}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown snapshot target %q", target)
	}
}
