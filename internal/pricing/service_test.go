package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tavola-backend/pkg/db/models"
	"github.com/angelmondragon/tavola-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tavola-backend/pkg/errors"
	"github.com/angelmondragon/tavola-backend/pkg/types"
)

type stubCatalog struct {
	items     map[uuid.UUID]models.Item
	modifiers map[uuid.UUID]models.Modifier
	groups    map[uuid.UUID]models.ModifierGroup
	err       error
}

func newStubCatalog(f fixture) *stubCatalog {
	return &stubCatalog{
		items:     map[uuid.UUID]models.Item{f.item.ID: f.item},
		modifiers: map[uuid.UUID]models.Modifier{f.modifier.ID: f.modifier},
		groups:    map[uuid.UUID]models.ModifierGroup{f.group.ID: f.group},
	}
}

func (s *stubCatalog) FindItemByID(_ context.Context, id uuid.UUID) (*models.Item, error) {
	if s.err != nil {
		return nil, s.err
	}
	item, ok := s.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &item, nil
}

func (s *stubCatalog) FindModifiersByIDs(_ context.Context, ids []uuid.UUID) ([]models.Modifier, error) {
	var out []models.Modifier
	for _, id := range ids {
		if m, ok := s.modifiers[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *stubCatalog) FindGroupsByIDs(_ context.Context, ids []uuid.UUID) ([]models.ModifierGroup, error) {
	var out []models.ModifierGroup
	for _, id := range ids {
		if g, ok := s.groups[id]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func newTestService(t *testing.T, catalog *stubCatalog) Service {
	t.Helper()
	svc, err := NewService(catalog)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected %s error, got %v", code, err)
	}
	if typed.Code() != code {
		t.Fatalf("expected %s, got %s (%v)", code, typed.Code(), err)
	}
}

func TestQuoteItemResolvesSelection(t *testing.T) {
	f := newFixture()
	f.item.IsSizeable = true
	medium := uuid.New()
	f.item.Sizes = types.ItemSizes{{SizeID: medium, Code: enums.SizeM, Price: d("11.00"), IsActive: true, IsDefault: true}}
	svc := newTestService(t, newStubCatalog(f))

	quote, err := svc.QuoteItem(context.Background(), f.item.ID, QuoteRequest{
		Quantity:  2,
		Modifiers: []QuoteModifier{{ModifierID: f.modifier.ID}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !quote.Total.Equal(d("25.00")) {
		t.Fatalf("expected 25.00, got %s", quote.Total)
	}
	if quote.Lines[0].Side != enums.SideWhole || quote.Lines[0].Level != enums.ModifierLevelNormal {
		t.Fatalf("expected WHOLE/NORMAL defaults, got %+v", quote.Lines[0])
	}
}

func TestQuoteItemNotFound(t *testing.T) {
	svc := newTestService(t, newStubCatalog(newFixture()))
	_, err := svc.QuoteItem(context.Background(), uuid.New(), QuoteRequest{Quantity: 1})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestQuoteItemDependencyFailure(t *testing.T) {
	catalog := newStubCatalog(newFixture())
	catalog.err = errors.New("connection reset")
	svc := newTestService(t, catalog)
	_, err := svc.QuoteItem(context.Background(), uuid.New(), QuoteRequest{Quantity: 1})
	requireCode(t, err, pkgerrors.CodeDependency)
}

func TestQuoteItemSelectionRules(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture, catalog *stubCatalog) QuoteRequest
	}{
		{
			name: "unknown modifier",
			setup: func(f *fixture, _ *stubCatalog) QuoteRequest {
				return QuoteRequest{Quantity: 1, Modifiers: []QuoteModifier{{ModifierID: uuid.New()}}}
			},
		},
		{
			name: "duplicate modifier",
			setup: func(f *fixture, _ *stubCatalog) QuoteRequest {
				return QuoteRequest{Quantity: 1, Modifiers: []QuoteModifier{{ModifierID: f.modifier.ID}, {ModifierID: f.modifier.ID}}}
			},
		},
		{
			name: "group not assigned to item",
			setup: func(f *fixture, catalog *stubCatalog) QuoteRequest {
				stray := models.Modifier{ID: uuid.New(), ModifierGroupID: uuid.New(), IsActive: true}
				catalog.modifiers[stray.ID] = stray
				return QuoteRequest{Quantity: 1, Modifiers: []QuoteModifier{{ModifierID: stray.ID}}}
			},
		},
		{
			name: "inactive modifier",
			setup: func(f *fixture, catalog *stubCatalog) QuoteRequest {
				m := catalog.modifiers[f.modifier.ID]
				m.IsActive = false
				catalog.modifiers[m.ID] = m
				return QuoteRequest{Quantity: 1, Modifiers: []QuoteModifier{{ModifierID: m.ID}}}
			},
		},
		{
			name: "min select not met",
			setup: func(f *fixture, catalog *stubCatalog) QuoteRequest {
				g := catalog.groups[f.group.ID]
				g.MinSelect = 1
				catalog.groups[g.ID] = g
				return QuoteRequest{Quantity: 1}
			},
		},
		{
			name: "max select exceeded",
			setup: func(f *fixture, catalog *stubCatalog) QuoteRequest {
				g := catalog.groups[f.group.ID]
				g.MaxSelect = 1
				catalog.groups[g.ID] = g
				extra := models.Modifier{ID: uuid.New(), ModifierGroupID: g.ID, IsActive: true}
				catalog.modifiers[extra.ID] = extra
				return QuoteRequest{Quantity: 1, Modifiers: []QuoteModifier{{ModifierID: f.modifier.ID}, {ModifierID: extra.ID}}}
			},
		},
		{
			name: "override max quantity wins over modifier",
			setup: func(f *fixture, catalog *stubCatalog) QuoteRequest {
				m := catalog.modifiers[f.modifier.ID]
				m.MaxQuantity = intp(5)
				catalog.modifiers[m.ID] = m
				item := catalog.items[f.item.ID]
				item.ModifierGroups[0].ModifierOverrides[0].MaxQuantity = intp(1)
				catalog.items[item.ID] = item
				return QuoteRequest{Quantity: 1, Modifiers: []QuoteModifier{{ModifierID: m.ID, QuantityLevel: intp(2)}}}
			},
		},
		{
			name: "side not allowed",
			setup: func(f *fixture, _ *stubCatalog) QuoteRequest {
				return QuoteRequest{Quantity: 1, Modifiers: []QuoteModifier{{ModifierID: f.modifier.ID, Side: enums.SideLeft}}}
			},
		},
		{
			name: "unknown level",
			setup: func(f *fixture, _ *stubCatalog) QuoteRequest {
				return QuoteRequest{Quantity: 1, Modifiers: []QuoteModifier{{ModifierID: f.modifier.ID, Level: "DOUBLE"}}}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			catalog := newStubCatalog(f)
			req := tt.setup(&f, catalog)
			_, err := newTestService(t, catalog).QuoteItem(context.Background(), f.item.ID, req)
			requireCode(t, err, pkgerrors.CodeValidation)
		})
	}
}

func TestQuoteItemAllowsConfiguredSide(t *testing.T) {
	f := newFixture()
	f.modifier.SidesConfig = &types.SidesConfig{Enabled: true, AllowedSides: []enums.Side{enums.SideLeft, enums.SideRight}}
	svc := newTestService(t, newStubCatalog(f))

	quote, err := svc.QuoteItem(context.Background(), f.item.ID, QuoteRequest{
		Quantity:  1,
		Modifiers: []QuoteModifier{{ModifierID: f.modifier.ID, Side: enums.SideLeft}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Lines[0].Side != enums.SideLeft {
		t.Fatalf("expected LEFT, got %s", quote.Lines[0].Side)
	}
	if !quote.Base.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("unexpected base %s", quote.Base)
	}
}

func TestNewServiceRequiresCatalog(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Fatal("expected error for nil catalog")
	}
}
