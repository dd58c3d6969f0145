package types

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tavola-backend/pkg/enums"
)

// SizePrice is a per-size price delta.
type SizePrice struct {
	SizeCode   enums.SizeCode  `json:"sizeCode"`
	PriceDelta decimal.Decimal `json:"priceDelta"`
}

// SizePrices holds at most one entry per size code.
type SizePrices []SizePrice

// Lookup returns the delta for code when an entry exists.
func (p SizePrices) Lookup(code enums.SizeCode) (decimal.Decimal, bool) {
	if code == "" {
		return decimal.Zero, false
	}
	for _, entry := range p {
		if entry.SizeCode == code {
			return entry.PriceDelta, true
		}
	}
	return decimal.Zero, false
}

// Validate enforces known, unique size codes and non-negative deltas.
func (p SizePrices) Validate() error {
	seen := make(map[enums.SizeCode]struct{}, len(p))
	for _, entry := range p {
		if !entry.SizeCode.IsValid() {
			return fmt.Errorf("invalid size code %q", entry.SizeCode)
		}
		if _, dup := seen[entry.SizeCode]; dup {
			return fmt.Errorf("duplicate size code %q", entry.SizeCode)
		}
		seen[entry.SizeCode] = struct{}{}
		if entry.PriceDelta.IsNegative() {
			return fmt.Errorf("price delta for %s must be non-negative", entry.SizeCode)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (p SizePrices) Clone() SizePrices {
	if p == nil {
		return nil
	}
	out := make(SizePrices, len(p))
	copy(out, p)
	return out
}

// QuantityLevel is a named quantity tier carrying its own price.
type QuantityLevel struct {
	Quantity     int              `json:"quantity"`
	Name         *string          `json:"name,omitempty"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	PricesBySize SizePrices       `json:"prices_by_size,omitempty"`
	IsDefault    bool             `json:"is_default"`
	DisplayOrder int              `json:"display_order"`
	IsActive     bool             `json:"is_active"`
}

// QuantityLevels is an ordered list of tiers with at most one default.
type QuantityLevels []QuantityLevel

// Find returns the active level for quantity.
func (q QuantityLevels) Find(quantity int) (QuantityLevel, bool) {
	for _, level := range q {
		if level.IsActive && level.Quantity == quantity {
			return level, true
		}
	}
	return QuantityLevel{}, false
}

// Default returns the active default level, if any.
func (q QuantityLevels) Default() (QuantityLevel, bool) {
	for _, level := range q {
		if level.IsActive && level.IsDefault {
			return level, true
		}
	}
	return QuantityLevel{}, false
}

// Validate checks quantities, prices and the single-default rule.
func (q QuantityLevels) Validate() error {
	defaults := 0
	for _, level := range q {
		if level.Quantity < 1 {
			return fmt.Errorf("quantity level quantity must be at least 1, got %d", level.Quantity)
		}
		if level.Price != nil && level.Price.IsNegative() {
			return fmt.Errorf("quantity level %d price must be non-negative", level.Quantity)
		}
		if err := level.PricesBySize.Validate(); err != nil {
			return fmt.Errorf("quantity level %d: %w", level.Quantity, err)
		}
		if level.IsDefault {
			defaults++
		}
	}
	if defaults > 1 {
		return fmt.Errorf("at most one default quantity level allowed, got %d", defaults)
	}
	return nil
}

// Clone returns a deep copy so mutations never alias a snapshot.
func (q QuantityLevels) Clone() QuantityLevels {
	if q == nil {
		return nil
	}
	out := make(QuantityLevels, len(q))
	for i, level := range q {
		cp := level
		if level.Price != nil {
			price := *level.Price
			cp.Price = &price
		}
		if level.Name != nil {
			name := *level.Name
			cp.Name = &name
		}
		cp.PricesBySize = level.PricesBySize.Clone()
		out[i] = cp
	}
	return out
}

// ItemSize is one size variant of a sizeable item.
type ItemSize struct {
	SizeID    uuid.UUID       `json:"size_id"`
	Code      enums.SizeCode  `json:"code"`
	Name      string          `json:"name,omitempty"`
	Price     decimal.Decimal `json:"price"`
	IsDefault bool            `json:"is_default"`
	IsActive  bool            `json:"is_active"`
}

type ItemSizes []ItemSize

func (s ItemSizes) Find(sizeID uuid.UUID) (ItemSize, bool) {
	for _, size := range s {
		if size.SizeID == sizeID {
			return size, true
		}
	}
	return ItemSize{}, false
}

// Default returns the active default size, falling back to the first active one.
func (s ItemSizes) Default() (ItemSize, bool) {
	var first *ItemSize
	for i := range s {
		if !s[i].IsActive {
			continue
		}
		if s[i].IsDefault {
			return s[i], true
		}
		if first == nil {
			first = &s[i]
		}
	}
	if first != nil {
		return *first, true
	}
	return ItemSize{}, false
}

func (s ItemSizes) Validate() error {
	seen := make(map[uuid.UUID]struct{}, len(s))
	for _, size := range s {
		if size.SizeID == uuid.Nil {
			return fmt.Errorf("size_id is required")
		}
		if _, dup := seen[size.SizeID]; dup {
			return fmt.Errorf("duplicate size %s", size.SizeID)
		}
		seen[size.SizeID] = struct{}{}
		if size.Code != "" && !size.Code.IsValid() {
			return fmt.Errorf("invalid size code %q", size.Code)
		}
		if size.Price.IsNegative() {
			return fmt.Errorf("size %s price must be non-negative", size.SizeID)
		}
	}
	return nil
}

func (s ItemSizes) Clone() ItemSizes {
	if s == nil {
		return nil
	}
	out := make(ItemSizes, len(s))
	copy(out, s)
	return out
}

// ModifierOverride replaces a shared modifier's pricing for one item.
type ModifierOverride struct {
	ModifierID     uuid.UUID      `json:"modifier_id"`
	MaxQuantity    *int           `json:"max_quantity,omitempty"`
	IsDefault      *bool          `json:"is_default,omitempty"`
	PricesBySize   SizePrices     `json:"prices_by_size,omitempty"`
	QuantityLevels QuantityLevels `json:"quantity_levels,omitempty"`
}

func (o ModifierOverride) Validate() error {
	if err := o.PricesBySize.Validate(); err != nil {
		return fmt.Errorf("override %s: %w", o.ModifierID, err)
	}
	if err := o.QuantityLevels.Validate(); err != nil {
		return fmt.Errorf("override %s: %w", o.ModifierID, err)
	}
	return nil
}

// ItemModifierGroup assigns a modifier group to an item.
type ItemModifierGroup struct {
	ModifierGroupID   uuid.UUID          `json:"modifier_group_id"`
	DisplayOrder      int                `json:"display_order"`
	ModifierOverrides []ModifierOverride `json:"modifier_overrides,omitempty"`
}

type ItemModifierGroups []ItemModifierGroup

// Assignment returns the assignment for the group.
func (g ItemModifierGroups) Assignment(groupID uuid.UUID) (ItemModifierGroup, bool) {
	for _, assignment := range g {
		if assignment.ModifierGroupID == groupID {
			return assignment, true
		}
	}
	return ItemModifierGroup{}, false
}

// Override returns the item-level override for a modifier inside the group.
func (g ItemModifierGroups) Override(groupID, modifierID uuid.UUID) (*ModifierOverride, bool) {
	assignment, ok := g.Assignment(groupID)
	if !ok {
		return nil, false
	}
	for i := range assignment.ModifierOverrides {
		if assignment.ModifierOverrides[i].ModifierID == modifierID {
			ov := assignment.ModifierOverrides[i]
			return &ov, true
		}
	}
	return nil, false
}

// Sorted returns the assignments ordered by display_order.
func (g ItemModifierGroups) Sorted() ItemModifierGroups {
	out := make(ItemModifierGroups, len(g))
	copy(out, g)
	sort.SliceStable(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out
}

func (g ItemModifierGroups) Validate() error {
	for _, assignment := range g {
		for _, override := range assignment.ModifierOverrides {
			if err := override.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// SidesConfig limits which sides a modifier can be placed on.
type SidesConfig struct {
	Enabled      bool         `json:"enabled"`
	AllowedSides []enums.Side `json:"allowed_sides,omitempty"`
}

// Allows reports whether side may be chosen. A disabled config allows WHOLE only.
func (c *SidesConfig) Allows(side enums.Side) bool {
	if c == nil || !c.Enabled {
		return side == enums.SideWhole
	}
	for _, allowed := range c.AllowedSides {
		if allowed == side {
			return true
		}
	}
	return false
}
