package enums

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParsePriceChangeTargetDefaultsToItems(t *testing.T) {
	target, err := ParsePriceChangeTarget("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target != PriceTargetItems {
		t.Fatalf("expected ITEMS default, got %s", target)
	}
	if _, err := ParsePriceChangeTarget("CATEGORIES"); err == nil {
		t.Fatalf("expected error for unknown target")
	}
}

func TestParsePriceChangeTypeAndValueType(t *testing.T) {
	if v, err := ParsePriceChangeType("DECREASE"); err != nil || v != PriceChangeDecrease {
		t.Fatalf("unexpected parse result %q %v", v, err)
	}
	if _, err := ParsePriceChangeType("increase"); err == nil {
		t.Fatalf("change types are case sensitive")
	}
	if v, err := ParsePriceValueType("FIXED"); err != nil || v != PriceValueFixed {
		t.Fatalf("unexpected parse result %q %v", v, err)
	}
	if PriceValueType("RATIO").IsValid() {
		t.Fatalf("RATIO should not be valid")
	}
}

func TestModifierLevelMultipliers(t *testing.T) {
	cases := map[ModifierLevel]string{
		ModifierLevelLight:  "0.5",
		ModifierLevelNormal: "1",
		ModifierLevelExtra:  "1.5",
		ModifierLevel("?"):  "1",
	}
	for level, want := range cases {
		if got := level.Multiplier(); !got.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("level %q: expected %s got %s", level, want, got)
		}
	}
	if lvl, err := ParseModifierLevel(" extra "); err != nil || lvl != ModifierLevelExtra {
		t.Fatalf("expected EXTRA, got %q %v", lvl, err)
	}
}

func TestSizeAndSideParsing(t *testing.T) {
	if code, err := ParseSizeCode("xl"); err != nil || code != SizeXL {
		t.Fatalf("expected XL, got %q %v", code, err)
	}
	if _, err := ParseSizeCode("XS"); err == nil {
		t.Fatalf("XS is not a supported size")
	}
	if side, err := ParseSide("left"); err != nil || side != SideLeft {
		t.Fatalf("expected LEFT, got %q %v", side, err)
	}
}

func TestMemberRoleCanManagePrices(t *testing.T) {
	if !MemberRoleOwner.CanManagePrices() || !MemberRoleAdmin.CanManagePrices() {
		t.Fatalf("owner and admin manage prices")
	}
	if MemberRoleStaff.CanManagePrices() {
		t.Fatalf("staff must not manage prices")
	}
}
