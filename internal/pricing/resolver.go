// Package pricing resolves the effective price of an item selection by
// walking the override layers in a fixed precedence order.
package pricing

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tavola-backend/pkg/db/models"
	"github.com/angelmondragon/tavola-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tavola-backend/pkg/errors"
	"github.com/angelmondragon/tavola-backend/pkg/money"
	"github.com/angelmondragon/tavola-backend/pkg/types"
)

// Source names the layer a modifier delta was resolved from.
type Source string

const (
	SourceOverrideQuantityLevel Source = "override.quantity_levels"
	SourceOverrideSize          Source = "override.prices_by_size"
	SourceModifierQuantityLevel Source = "modifier.quantity_levels"
	SourceModifierSize          Source = "modifier.prices_by_size"
	SourceGroupQuantityLevel    Source = "group.quantity_levels"
	SourceGroupSize             Source = "group.prices_by_size"
	SourceGroupPrice            Source = "group.price"
	SourceNone                  Source = "none"
)

// ModifierChoice is one selected modifier inside a selection.
type ModifierChoice struct {
	Modifier      models.Modifier
	Group         models.ModifierGroup
	QuantityLevel *int
	Level         enums.ModifierLevel
	Side          enums.Side
}

// Selection is everything the resolver needs to price one cart line.
type Selection struct {
	Item      models.Item
	SizeID    *uuid.UUID
	SizeCode  enums.SizeCode
	Quantity  int
	Modifiers []ModifierChoice
}

// Line is the resolved contribution of one modifier.
type Line struct {
	ModifierID    uuid.UUID           `json:"modifier_id"`
	GroupID       uuid.UUID           `json:"modifier_group_id"`
	Source        Source              `json:"source"`
	Delta         decimal.Decimal     `json:"delta"`
	Level         enums.ModifierLevel `json:"level"`
	Side          enums.Side          `json:"side,omitempty"`
	QuantityLevel *int                `json:"quantity_level,omitempty"`
	Amount        decimal.Decimal     `json:"amount"`
}

// Quote is the resolved price of a selection.
type Quote struct {
	ItemID   uuid.UUID       `json:"item_id"`
	SizeID   *uuid.UUID      `json:"size_id,omitempty"`
	SizeCode enums.SizeCode  `json:"size_code,omitempty"`
	Base     decimal.Decimal `json:"base"`
	Lines    []Line          `json:"lines"`
	Unit     decimal.Decimal `json:"unit"`
	Quantity int             `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
}

// layerInput is the per-choice context each layer reads from.
type layerInput struct {
	override      *types.ModifierOverride
	modifier      models.Modifier
	group         models.ModifierGroup
	sizeCode      enums.SizeCode
	quantityLevel *int
}

// layer returns a delta and true when it matches, or false to fall through.
type layer struct {
	source  Source
	resolve func(in layerInput) (decimal.Decimal, bool)
}

var layers = []layer{
	{SourceOverrideQuantityLevel, func(in layerInput) (decimal.Decimal, bool) {
		if in.override == nil {
			return decimal.Zero, false
		}
		return fromQuantityLevels(in.override.QuantityLevels, in.quantityLevel, in.sizeCode)
	}},
	{SourceOverrideSize, func(in layerInput) (decimal.Decimal, bool) {
		if in.override == nil {
			return decimal.Zero, false
		}
		return in.override.PricesBySize.Lookup(in.sizeCode)
	}},
	{SourceModifierQuantityLevel, func(in layerInput) (decimal.Decimal, bool) {
		return fromQuantityLevels(in.modifier.QuantityLevels, in.quantityLevel, in.sizeCode)
	}},
	{SourceModifierSize, func(in layerInput) (decimal.Decimal, bool) {
		return in.modifier.PricesBySize.Lookup(in.sizeCode)
	}},
	{SourceGroupQuantityLevel, func(in layerInput) (decimal.Decimal, bool) {
		return fromQuantityLevels(in.group.QuantityLevels, in.quantityLevel, in.sizeCode)
	}},
	{SourceGroupSize, func(in layerInput) (decimal.Decimal, bool) {
		return in.group.PricesBySize.Lookup(in.sizeCode)
	}},
	{SourceGroupPrice, func(in layerInput) (decimal.Decimal, bool) {
		if !in.group.Price.Valid {
			return decimal.Zero, false
		}
		return in.group.Price.Decimal, true
	}},
}

// fromQuantityLevels matches the chosen level, or the default active level
// when none was chosen. A size entry on the level adjusts its flat price; a
// level carrying neither falls through to the next layer.
func fromQuantityLevels(levels types.QuantityLevels, chosen *int, size enums.SizeCode) (decimal.Decimal, bool) {
	if len(levels) == 0 {
		return decimal.Zero, false
	}
	var (
		level types.QuantityLevel
		ok    bool
	)
	if chosen != nil {
		level, ok = levels.Find(*chosen)
	} else {
		level, ok = levels.Default()
	}
	if !ok {
		return decimal.Zero, false
	}
	sizeDelta, hasSize := level.PricesBySize.Lookup(size)
	switch {
	case level.Price != nil && hasSize:
		return level.Price.Add(sizeDelta), true
	case level.Price != nil:
		return *level.Price, true
	case hasSize:
		return sizeDelta, true
	default:
		return decimal.Zero, false
	}
}

// ResolveDelta walks the layers for one choice and returns the first match.
func ResolveDelta(item models.Item, choice ModifierChoice, size enums.SizeCode) (decimal.Decimal, Source) {
	override, _ := item.ModifierGroups.Override(choice.Group.ID, choice.Modifier.ID)
	in := layerInput{
		override:      override,
		modifier:      choice.Modifier,
		group:         choice.Group,
		sizeCode:      size,
		quantityLevel: choice.QuantityLevel,
	}
	for _, l := range layers {
		if delta, ok := l.resolve(in); ok {
			return delta, l.source
		}
	}
	return decimal.Zero, SourceNone
}

// Resolve prices a selection. It never touches storage; the unit price is
// left unrounded and only the line total is rounded to currency precision.
func Resolve(sel Selection) (*Quote, error) {
	if sel.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	quote := &Quote{ItemID: sel.Item.ID, Quantity: sel.Quantity, SizeCode: sel.SizeCode}
	if sel.Item.IsSizeable {
		size, err := selectSize(sel.Item, sel.SizeID)
		if err != nil {
			return nil, err
		}
		sizeID := size.SizeID
		quote.SizeID = &sizeID
		quote.Base = size.Price
		if size.Code != "" {
			quote.SizeCode = size.Code
		}
	} else {
		if !sel.Item.BasePrice.Valid {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item has no base price")
		}
		quote.Base = sel.Item.BasePrice.Decimal
	}

	unit := quote.Base
	quote.Lines = make([]Line, 0, len(sel.Modifiers))
	for _, choice := range sel.Modifiers {
		delta, source := ResolveDelta(sel.Item, choice, quote.SizeCode)
		level := choice.Level
		if level == "" {
			level = enums.ModifierLevelNormal
		}
		amount := delta.Mul(level.Multiplier())
		quote.Lines = append(quote.Lines, Line{
			ModifierID:    choice.Modifier.ID,
			GroupID:       choice.Group.ID,
			Source:        source,
			Delta:         delta,
			Level:         level,
			Side:          choice.Side,
			QuantityLevel: choice.QuantityLevel,
			Amount:        amount,
		})
		unit = unit.Add(amount)
	}
	sort.SliceStable(quote.Lines, func(i, j int) bool {
		return quote.Lines[i].ModifierID.String() < quote.Lines[j].ModifierID.String()
	})

	quote.Unit = unit
	quote.Total = money.Round2(unit.Mul(decimal.NewFromInt(int64(sel.Quantity))))
	return quote, nil
}

func selectSize(item models.Item, sizeID *uuid.UUID) (types.ItemSize, error) {
	if sizeID != nil {
		size, ok := item.Sizes.Find(*sizeID)
		if !ok || !size.IsActive {
			return types.ItemSize{}, pkgerrors.New(pkgerrors.CodeValidation, "selected size is not available for this item").
				WithDetails(map[string]any{"size_id": sizeID.String()})
		}
		return size, nil
	}
	size, ok := item.Sizes.Default()
	if !ok {
		return types.ItemSize{}, pkgerrors.New(pkgerrors.CodeValidation, "item has no active size")
	}
	return size, nil
}
