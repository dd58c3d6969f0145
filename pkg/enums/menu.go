package enums

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// SizeCode is the canonical size label used by prices_by_size entries.
type SizeCode string

const (
	SizeS   SizeCode = "S"
	SizeM   SizeCode = "M"
	SizeL   SizeCode = "L"
	SizeXL  SizeCode = "XL"
	SizeXXL SizeCode = "XXL"
)

var validSizeCodes = []SizeCode{SizeS, SizeM, SizeL, SizeXL, SizeXXL}

func (s SizeCode) String() string {
	return string(s)
}

func (s SizeCode) IsValid() bool {
	for _, candidate := range validSizeCodes {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseSizeCode(value string) (SizeCode, error) {
	normalized := SizeCode(strings.ToUpper(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid size code %q", value)
}

// Side is the portion of an item a modifier is applied to.
type Side string

const (
	SideLeft  Side = "LEFT"
	SideRight Side = "RIGHT"
	SideWhole Side = "WHOLE"
)

var validSides = []Side{SideLeft, SideRight, SideWhole}

func (s Side) IsValid() bool {
	for _, candidate := range validSides {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseSide(value string) (Side, error) {
	normalized := Side(strings.ToUpper(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid side %q", value)
}

// ModifierLevel is the qualitative amount selector applied on top of a resolved delta.
type ModifierLevel string

const (
	ModifierLevelLight  ModifierLevel = "LIGHT"
	ModifierLevelNormal ModifierLevel = "NORMAL"
	ModifierLevelExtra  ModifierLevel = "EXTRA"
)

var modifierLevelMultipliers = map[ModifierLevel]decimal.Decimal{
	ModifierLevelLight:  decimal.RequireFromString("0.5"),
	ModifierLevelNormal: decimal.NewFromInt(1),
	ModifierLevelExtra:  decimal.RequireFromString("1.5"),
}

func (l ModifierLevel) IsValid() bool {
	_, ok := modifierLevelMultipliers[l]
	return ok
}

// Multiplier returns the factor for the level; unknown levels count as NORMAL.
func (l ModifierLevel) Multiplier() decimal.Decimal {
	if m, ok := modifierLevelMultipliers[l]; ok {
		return m
	}
	return modifierLevelMultipliers[ModifierLevelNormal]
}

func ParseModifierLevel(value string) (ModifierLevel, error) {
	normalized := ModifierLevel(strings.ToUpper(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid modifier level %q", value)
}
