package pricechanges

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tavola-backend/pkg/db/models"
	"github.com/angelmondragon/tavola-backend/pkg/money"
	"github.com/angelmondragon/tavola-backend/pkg/types"
)

// snapshotItem captures the item's price state. ok is false for items with
// no price-bearing field; those are neither snapshotted nor changed.
func snapshotItem(item models.Item) (ItemSnapshot, bool) {
	if !item.HasPrices() {
		return ItemSnapshot{}, false
	}
	snap := ItemSnapshot{ItemID: item.ID, Sizes: make([]SizePriceSnapshot, 0, len(item.Sizes))}
	if item.BasePrice.Valid {
		base := item.BasePrice.Decimal
		snap.BasePrice = &base
	}
	for _, size := range item.Sizes {
		snap.Sizes = append(snap.Sizes, SizePriceSnapshot{SizeID: size.SizeID, Price: size.Price})
	}
	return snap, true
}

// mutateItem returns a copy of item with base_price and every size price adjusted.
func mutateItem(item models.Item, change money.Change) models.Item {
	out := item
	if item.BasePrice.Valid {
		out.BasePrice = decimal.NewNullDecimal(money.NewPrice(item.BasePrice.Decimal, change))
	}
	out.Sizes = item.Sizes.Clone()
	for i := range out.Sizes {
		out.Sizes[i].Price = money.NewPrice(out.Sizes[i].Price, change)
	}
	return out
}

// restoreItem writes the snapshot back: base_price wholesale, sizes matched
// by size_id. Sizes added since the snapshot keep their current price.
func restoreItem(item models.Item, snap ItemSnapshot) models.Item {
	out := item
	if snap.BasePrice != nil {
		out.BasePrice = decimal.NewNullDecimal(*snap.BasePrice)
	} else {
		out.BasePrice = decimal.NullDecimal{}
	}
	out.Sizes = item.Sizes.Clone()
	for _, stored := range snap.Sizes {
		for i := range out.Sizes {
			if out.Sizes[i].SizeID == stored.SizeID {
				out.Sizes[i].Price = stored.Price
				break
			}
		}
	}
	return out
}

func snapshotModifier(modifier models.Modifier) (ModifierSnapshot, bool) {
	if !modifier.HasPrices() {
		return ModifierSnapshot{}, false
	}
	return ModifierSnapshot{
		ModifierID:     modifier.ID,
		QuantityLevels: modifier.QuantityLevels.Clone(),
		PricesBySize:   modifier.PricesBySize.Clone(),
	}, true
}

// mutateModifier adjusts level prices, the size deltas nested in each level
// and the modifier's own size deltas.
func mutateModifier(modifier models.Modifier, change money.Change) models.Modifier {
	out := modifier
	out.QuantityLevels = modifier.QuantityLevels.Clone()
	for i := range out.QuantityLevels {
		out.QuantityLevels[i].Price = money.Apply(out.QuantityLevels[i].Price, change)
		out.QuantityLevels[i].PricesBySize = mutateSizePrices(out.QuantityLevels[i].PricesBySize, change)
	}
	out.PricesBySize = mutateSizePrices(modifier.PricesBySize.Clone(), change)
	return out
}

func mutateSizePrices(prices types.SizePrices, change money.Change) types.SizePrices {
	for i := range prices {
		prices[i].PriceDelta = money.NewPrice(prices[i].PriceDelta, change)
	}
	return prices
}

// restoreModifier replaces both price lists with the stored ones.
func restoreModifier(modifier models.Modifier, snap ModifierSnapshot) models.Modifier {
	out := modifier
	out.QuantityLevels = snap.QuantityLevels.Clone()
	out.PricesBySize = snap.PricesBySize.Clone()
	return out
}
