package enums

import "fmt"

// PriceChangeType is the direction of a bulk price change.
type PriceChangeType string

const (
	PriceChangeIncrease PriceChangeType = "INCREASE"
	PriceChangeDecrease PriceChangeType = "DECREASE"
)

var validPriceChangeTypes = []PriceChangeType{
	PriceChangeIncrease,
	PriceChangeDecrease,
}

// String implements fmt.Stringer.
func (t PriceChangeType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known PriceChangeType.
func (t PriceChangeType) IsValid() bool {
	for _, candidate := range validPriceChangeTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParsePriceChangeType converts raw input into a PriceChangeType.
func ParsePriceChangeType(value string) (PriceChangeType, error) {
	for _, candidate := range validPriceChangeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid price change type %q", value)
}

// PriceValueType says how the change value is interpreted.
type PriceValueType string

const (
	PriceValuePercentage PriceValueType = "PERCENTAGE"
	PriceValueFixed      PriceValueType = "FIXED"
)

var validPriceValueTypes = []PriceValueType{
	PriceValuePercentage,
	PriceValueFixed,
}

func (v PriceValueType) String() string {
	return string(v)
}

func (v PriceValueType) IsValid() bool {
	for _, candidate := range validPriceValueTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

func ParsePriceValueType(value string) (PriceValueType, error) {
	for _, candidate := range validPriceValueTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid price value type %q", value)
}

// PriceChangeTarget selects the population a bulk change applies to.
type PriceChangeTarget string

const (
	PriceTargetItems     PriceChangeTarget = "ITEMS"
	PriceTargetModifiers PriceChangeTarget = "MODIFIERS"
)

var validPriceChangeTargets = []PriceChangeTarget{
	PriceTargetItems,
	PriceTargetModifiers,
}

func (t PriceChangeTarget) String() string {
	return string(t)
}

func (t PriceChangeTarget) IsValid() bool {
	for _, candidate := range validPriceChangeTargets {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParsePriceChangeTarget defaults an empty value to ITEMS.
func ParsePriceChangeTarget(value string) (PriceChangeTarget, error) {
	if value == "" {
		return PriceTargetItems, nil
	}
	for _, candidate := range validPriceChangeTargets {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid price change target %q", value)
}

// PriceChangeStatus tracks the lifecycle of a history row: ACTIVE -> ROLLED_BACK.
type PriceChangeStatus string

const (
	PriceChangeStatusActive     PriceChangeStatus = "ACTIVE"
	PriceChangeStatusRolledBack PriceChangeStatus = "ROLLED_BACK"
)

func (s PriceChangeStatus) String() string {
	return string(s)
}

func (s PriceChangeStatus) IsValid() bool {
	return s == PriceChangeStatusActive || s == PriceChangeStatusRolledBack
}
