package pricing

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/tavola-backend/pkg/db"
	"github.com/angelmondragon/tavola-backend/pkg/db/models"
	"github.com/angelmondragon/tavola-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tavola-backend/pkg/errors"
	"github.com/angelmondragon/tavola-backend/pkg/types"
)

type catalogReader interface {
	FindItemByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	FindModifiersByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Modifier, error)
	FindGroupsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ModifierGroup, error)
}

// QuoteModifier is one modifier requested in a quote.
type QuoteModifier struct {
	ModifierID    uuid.UUID
	QuantityLevel *int
	Level         enums.ModifierLevel
	Side          enums.Side
}

// QuoteRequest is the caller-provided selection for one item.
type QuoteRequest struct {
	SizeID    *uuid.UUID
	Quantity  int
	Modifiers []QuoteModifier
}

// Service loads catalog rows, enforces selection rules and resolves the price.
type Service interface {
	QuoteItem(ctx context.Context, itemID uuid.UUID, req QuoteRequest) (*Quote, error)
}

type service struct {
	catalog catalogReader
}

// NewService wires the quote service.
func NewService(catalog catalogReader) (Service, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{catalog: catalog}, nil
}

func (s *service) QuoteItem(ctx context.Context, itemID uuid.UUID, req QuoteRequest) (*Quote, error) {
	item, err := s.catalog.FindItemByID(ctx, itemID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.NotFound("item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
	}
	if !item.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item is not available")
	}

	modifierIDs := make([]uuid.UUID, 0, len(req.Modifiers))
	seen := make(map[uuid.UUID]struct{}, len(req.Modifiers))
	for _, m := range req.Modifiers {
		if _, dup := seen[m.ModifierID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "modifier selected more than once").
				WithDetails(map[string]any{"modifier_id": m.ModifierID.String()})
		}
		seen[m.ModifierID] = struct{}{}
		modifierIDs = append(modifierIDs, m.ModifierID)
	}

	modifiers, err := s.catalog.FindModifiersByIDs(ctx, modifierIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load modifiers")
	}
	modifierByID := make(map[uuid.UUID]models.Modifier, len(modifiers))
	groupIDs := make([]uuid.UUID, 0, len(item.ModifierGroups))
	for _, m := range modifiers {
		modifierByID[m.ID] = m
	}
	for _, assignment := range item.ModifierGroups {
		groupIDs = append(groupIDs, assignment.ModifierGroupID)
	}

	groups, err := s.catalog.FindGroupsByIDs(ctx, groupIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load modifier groups")
	}
	groupByID := make(map[uuid.UUID]models.ModifierGroup, len(groups))
	for _, g := range groups {
		groupByID[g.ID] = g
	}

	choices := make([]ModifierChoice, 0, len(req.Modifiers))
	perGroup := make(map[uuid.UUID]int, len(groups))
	for _, requested := range req.Modifiers {
		choice, err := buildChoice(*item, requested, modifierByID, groupByID)
		if err != nil {
			return nil, err
		}
		perGroup[choice.Group.ID]++
		choices = append(choices, choice)
	}

	if err := checkSelectLimits(item.ModifierGroups.Sorted(), groupByID, perGroup); err != nil {
		return nil, err
	}

	return Resolve(Selection{
		Item:      *item,
		SizeID:    req.SizeID,
		Quantity:  req.Quantity,
		Modifiers: choices,
	})
}

func buildChoice(item models.Item, requested QuoteModifier, modifiers map[uuid.UUID]models.Modifier, groups map[uuid.UUID]models.ModifierGroup) (ModifierChoice, error) {
	details := map[string]any{"modifier_id": requested.ModifierID.String()}

	modifier, ok := modifiers[requested.ModifierID]
	if !ok {
		return ModifierChoice{}, pkgerrors.New(pkgerrors.CodeValidation, "modifier not found").WithDetails(details)
	}
	if !modifier.IsActive {
		return ModifierChoice{}, pkgerrors.New(pkgerrors.CodeValidation, "modifier is not available").WithDetails(details)
	}
	group, ok := groups[modifier.ModifierGroupID]
	if !ok {
		return ModifierChoice{}, pkgerrors.New(pkgerrors.CodeValidation, "modifier does not belong to a group assigned to this item").WithDetails(details)
	}

	maxQuantity := modifier.MaxQuantity
	if override, found := item.ModifierGroups.Override(group.ID, modifier.ID); found && override.MaxQuantity != nil {
		maxQuantity = override.MaxQuantity
	}
	if requested.QuantityLevel != nil {
		if *requested.QuantityLevel < 1 {
			return ModifierChoice{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity level must be at least 1").WithDetails(details)
		}
		if maxQuantity != nil && *requested.QuantityLevel > *maxQuantity {
			return ModifierChoice{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity level exceeds max quantity %d", *maxQuantity)).WithDetails(details)
		}
	}

	side := requested.Side
	if side == "" {
		side = enums.SideWhole
	}
	if !modifier.SidesConfig.Allows(side) {
		return ModifierChoice{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("side %s is not allowed for this modifier", side)).WithDetails(details)
	}

	level := requested.Level
	if level == "" {
		level = enums.ModifierLevelNormal
	}
	if !level.IsValid() {
		return ModifierChoice{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid modifier level %q", level)).WithDetails(details)
	}

	return ModifierChoice{
		Modifier:      modifier,
		Group:         group,
		QuantityLevel: requested.QuantityLevel,
		Level:         level,
		Side:          side,
	}, nil
}

func checkSelectLimits(assignments []types.ItemModifierGroup, groups map[uuid.UUID]models.ModifierGroup, selected map[uuid.UUID]int) error {
	for _, assignment := range assignments {
		group, ok := groups[assignment.ModifierGroupID]
		if !ok {
			continue
		}
		count := selected[group.ID]
		if count < group.MinSelect {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("select at least %d from %s", group.MinSelect, group.Name)).
				WithDetails(map[string]any{"modifier_group_id": group.ID.String()})
		}
		if group.MaxSelect > 0 && count > group.MaxSelect {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("select at most %d from %s", group.MaxSelect, group.Name)).
				WithDetails(map[string]any{"modifier_group_id": group.ID.String()})
		}
	}
	return nil
}
