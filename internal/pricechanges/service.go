package pricechanges

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/tavola-backend/internal/catalog"
	"github.com/angelmondragon/tavola-backend/pkg/db"
	"github.com/angelmondragon/tavola-backend/pkg/db/models"
	"github.com/angelmondragon/tavola-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tavola-backend/pkg/errors"
	"github.com/angelmondragon/tavola-backend/pkg/logger"
	"github.com/angelmondragon/tavola-backend/pkg/metrics"
	"github.com/angelmondragon/tavola-backend/pkg/money"
	"github.com/angelmondragon/tavola-backend/pkg/outbox"
	"github.com/angelmondragon/tavola-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/tavola-backend/pkg/pagination"
)

const (
	opApply    = "bulk_change"
	opRollback = "rollback"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service runs bulk price changes and manages their history.
type Service interface {
	ApplyBulkPriceChange(ctx context.Context, tenant Tenant, input BulkPriceChangeInput) (*BulkPriceChangeResult, error)
	Rollback(ctx context.Context, tenant Tenant, historyID uuid.UUID) (*RollbackResult, error)
	List(ctx context.Context, tenant Tenant, page, limit int) (*HistoryList, error)
	Get(ctx context.Context, tenant Tenant, historyID uuid.UUID) (*HistoryDetail, error)
	Delete(ctx context.Context, tenant Tenant, historyID uuid.UUID) error
	Clear(ctx context.Context, tenant Tenant) (*ClearResult, error)
}

// ServiceParams lists the collaborators of the price change service. Locks,
// Metrics and Logger are optional.
type ServiceParams struct {
	Repo    Repository
	Catalog catalog.Repository
	Tx      txRunner
	Outbox  outboxPublisher
	Locks   LockProvider
	Metrics *metrics.PricingMetrics
	Logger  *logger.Logger
}

type service struct {
	repo    Repository
	catalog catalog.Repository
	tx      txRunner
	outbox  outboxPublisher
	locks   LockProvider
	metrics *metrics.PricingMetrics
	logg    *logger.Logger
}

// NewService builds the price change service.
func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("price change repository required")
	}
	if p.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:    p.Repo,
		catalog: p.Catalog,
		tx:      p.Tx,
		outbox:  p.Outbox,
		locks:   p.Locks,
		metrics: p.Metrics,
		logg:    p.Logger,
	}, nil
}

func (s *service) ApplyBulkPriceChange(ctx context.Context, tenant Tenant, input BulkPriceChangeInput) (result *BulkPriceChangeResult, err error) {
	start := time.Now()
	in, err := input.validate()
	defer func() {
		s.observe(opApply, in.Target, err, start)
	}()
	if err != nil {
		return nil, err
	}
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	unlock, err := s.acquire(ctx, tenant.BusinessID, in.Target)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = s.release(ctx, unlock, err)
	}()

	change := in.change()
	var row *models.PriceChangeHistory
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		menu := s.catalog.WithTx(tx)
		repo := s.repo.WithTx(tx)

		snapshot, err := s.mutatePopulation(ctx, menu, in, change)
		if err != nil {
			return err
		}
		if s.logg != nil {
			s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
				"target":  string(in.Target),
				"records": snapshot.Len(),
			}), "pricing.bulk_change.population_mutated")
		}
		raw, err := EncodeSnapshot(snapshot)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode snapshot")
		}

		row = &models.PriceChangeHistory{
			BusinessID:         tenant.BusinessID,
			AdminID:            tenant.AdminID,
			Type:               in.Type,
			ValueType:          in.ValueType,
			Value:              in.Value,
			Target:             in.Target,
			AffectedItemsCount: snapshot.Len(),
			Snapshot:           raw,
			Status:             enums.PriceChangeStatusActive,
		}
		if err := repo.Create(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create price change history")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventPriceChangeApplied,
			AggregateType: enums.AggregatePriceChange,
			AggregateID:   row.ID,
			Actor:         actorFor(tenant),
			Data: payloads.PriceChangeAppliedEvent{
				HistoryID:          row.ID,
				BusinessID:         tenant.BusinessID,
				AdminID:            tenant.AdminID,
				Type:               in.Type,
				ValueType:          in.ValueType,
				Value:              in.Value,
				Target:             in.Target,
				AffectedItemsCount: row.AffectedItemsCount,
				RecordIDs:          snapshot.RecordIDs(),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit price change event")
		}
		return nil
	})
	if err != nil {
		return nil, asDependency(err, "apply bulk price change")
	}

	s.metrics.AddRecords(opApply, string(in.Target), row.AffectedItemsCount)
	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithPriceChange(ctx, row.ID.String(), string(in.Target)), map[string]any{
			"type":       in.Type,
			"value_type": in.ValueType,
			"value":      in.Value.String(),
			"affected":   row.AffectedItemsCount,
		})
		s.logg.Info(logCtx, "pricing.bulk_change.applied")
	}
	return &BulkPriceChangeResult{HistoryID: row.ID, Affected: row.AffectedItemsCount}, nil
}

// mutatePopulation snapshots and rewrites every priced record of the target
// and returns the snapshot. Unpriced records are skipped.
func (s *service) mutatePopulation(ctx context.Context, menu catalog.Repository, in BulkPriceChangeInput, change money.Change) (Snapshot, error) {
	switch in.Target {
	case enums.PriceTargetModifiers:
		modifiers, err := menu.ListModifiersInGroups(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load modifiers")
		}
		snapshot := make(ModifierSnapshots, 0, len(modifiers))
		updated := make([]models.Modifier, 0, len(modifiers))
		for _, modifier := range modifiers {
			snap, ok := snapshotModifier(modifier)
			if !ok {
				continue
			}
			snapshot = append(snapshot, snap)
			updated = append(updated, mutateModifier(modifier, change))
		}
		if len(snapshot) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "no modifiers to update")
		}
		if err := menu.UpsertModifierPrices(ctx, updated); err != nil {
			return nil, asDependency(err, "write modifier prices")
		}
		return snapshot, nil
	default:
		items, err := menu.ListItems(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load items")
		}
		snapshot := make(ItemSnapshots, 0, len(items))
		updated := make([]models.Item, 0, len(items))
		for _, item := range items {
			snap, ok := snapshotItem(item)
			if !ok {
				continue
			}
			snapshot = append(snapshot, snap)
			updated = append(updated, mutateItem(item, change))
		}
		if len(snapshot) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "no items to update")
		}
		if err := menu.UpsertItemPrices(ctx, updated); err != nil {
			return nil, asDependency(err, "write item prices")
		}
		return snapshot, nil
	}
}

func (s *service) Rollback(ctx context.Context, tenant Tenant, historyID uuid.UUID) (result *RollbackResult, err error) {
	start := time.Now()
	var target enums.PriceChangeTarget
	defer func() {
		s.observe(opRollback, target, err, start)
	}()
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	row, err := s.repo.FindByID(ctx, tenant.BusinessID, historyID)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	target = row.Target
	if row.Status == enums.PriceChangeStatusRolledBack {
		return nil, withHistory(pkgerrors.Validation("price change already rolled back"), row.ID)
	}
	snapshot, err := DecodeSnapshot(row.Target, row.Snapshot)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode snapshot")
	}
	if snapshot.Len() == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price change has no snapshot to restore")
	}

	unlock, err := s.acquire(ctx, tenant.BusinessID, row.Target)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = s.release(ctx, unlock, err)
	}()

	result = &RollbackResult{HistoryID: row.ID}
	rolledBackAt := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		menu := s.catalog.WithTx(tx)
		repo := s.repo.WithTx(tx)

		restored, skipped, err := restoreSnapshot(ctx, menu, snapshot)
		if err != nil {
			return err
		}
		result.Restored = restored
		result.SkippedIDs = skipped

		marked, err := repo.MarkRolledBack(ctx, tenant.BusinessID, row.ID, tenant.AdminID, rolledBackAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark price change rolled back")
		}
		if marked == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "price change already rolled back")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventPriceChangeRolledBack,
			AggregateType: enums.AggregatePriceChange,
			AggregateID:   row.ID,
			Actor:         actorFor(tenant),
			Data: payloads.PriceChangeRolledBackEvent{
				HistoryID:     row.ID,
				BusinessID:    tenant.BusinessID,
				RolledBackBy:  tenant.AdminID,
				Target:        row.Target,
				RestoredCount: restored,
				SkippedIDs:    skipped,
				RolledBackAt:  rolledBackAt,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit rollback event")
		}
		return nil
	})
	if err != nil {
		return nil, withHistory(asDependency(err, "rollback price change"), row.ID)
	}

	s.metrics.AddRecords(opRollback, string(row.Target), result.Restored)
	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithPriceChange(ctx, row.ID.String(), string(row.Target)), map[string]any{
			"restored": result.Restored,
			"skipped":  len(result.SkippedIDs),
		})
		s.logg.Info(logCtx, "pricing.rollback.applied")
	}
	return result, nil
}

// restoreSnapshot writes stored prices back. Records deleted since the
// snapshot was taken are skipped and reported.
func restoreSnapshot(ctx context.Context, menu catalog.Repository, snapshot Snapshot) (int, []uuid.UUID, error) {
	var skipped []uuid.UUID
	switch snap := snapshot.(type) {
	case ItemSnapshots:
		current, err := menu.FindItemsByIDs(ctx, snap.RecordIDs())
		if err != nil {
			return 0, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load items")
		}
		byID := make(map[uuid.UUID]models.Item, len(current))
		for _, item := range current {
			byID[item.ID] = item
		}
		restored := make([]models.Item, 0, len(snap))
		for _, stored := range snap {
			item, ok := byID[stored.ItemID]
			if !ok {
				skipped = append(skipped, stored.ItemID)
				continue
			}
			restored = append(restored, restoreItem(item, stored))
		}
		if err := menu.UpsertItemPrices(ctx, restored); err != nil {
			return 0, nil, asDependency(err, "restore item prices")
		}
		return len(restored), skipped, nil
	case ModifierSnapshots:
		current, err := menu.FindModifiersByIDs(ctx, snap.RecordIDs())
		if err != nil {
			return 0, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load modifiers")
		}
		byID := make(map[uuid.UUID]models.Modifier, len(current))
		for _, modifier := range current {
			byID[modifier.ID] = modifier
		}
		restored := make([]models.Modifier, 0, len(snap))
		for _, stored := range snap {
			modifier, ok := byID[stored.ModifierID]
			if !ok {
				skipped = append(skipped, stored.ModifierID)
				continue
			}
			restored = append(restored, restoreModifier(modifier, stored))
		}
		if err := menu.UpsertModifierPrices(ctx, restored); err != nil {
			return 0, nil, asDependency(err, "restore modifier prices")
		}
		return len(restored), skipped, nil
	default:
		return 0, nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unsupported snapshot %T", snapshot))
	}
}

func (s *service) List(ctx context.Context, tenant Tenant, page, limit int) (*HistoryList, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	params := pagination.Normalize(page, limit)
	rows, total, err := s.repo.List(ctx, tenant.BusinessID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list price change history")
	}
	items := make([]HistorySummary, 0, len(rows))
	for _, row := range rows {
		items = append(items, summaryFromModel(row))
	}
	return &HistoryList{Items: items, Pagination: params.Meta(total)}, nil
}

func (s *service) Get(ctx context.Context, tenant Tenant, historyID uuid.UUID) (*HistoryDetail, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	row, err := s.repo.FindByID(ctx, tenant.BusinessID, historyID)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	snapshot, err := DecodeSnapshot(row.Target, row.Snapshot)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode snapshot")
	}
	return &HistoryDetail{HistorySummary: summaryFromModel(*row), Snapshot: snapshot}, nil
}

func (s *service) Delete(ctx context.Context, tenant Tenant, historyID uuid.UUID) error {
	if err := tenant.Validate(); err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, tenant.BusinessID, historyID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete price change history")
	}
	if deleted == 0 {
		return pkgerrors.NotFound("price change not found")
	}
	return nil
}

func (s *service) Clear(ctx context.Context, tenant Tenant) (*ClearResult, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	deleted, err := s.repo.Clear(ctx, tenant.BusinessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear price change history")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "deleted", deleted), "pricing.history.cleared")
	}
	return &ClearResult{Deleted: deleted}, nil
}

// acquire takes the (business, target) lock when locking is configured. The
// returned release func is never nil.
func (s *service) acquire(ctx context.Context, businessID uuid.UUID, target enums.PriceChangeTarget) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if s.locks == nil {
		return noop, nil
	}
	lock, err := s.locks.NewLock(businessID, target)
	if err != nil {
		return noop, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build pricing lock")
	}
	ok, err := lock.Acquire(ctx)
	if err != nil {
		return noop, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire pricing lock")
	}
	if !ok {
		return noop, pkgerrors.New(pkgerrors.CodeConflict, "another price operation is running for this menu").
			WithDetails(map[string]any{"target": target})
	}
	return lock.Release, nil
}

// release frees the lock. A release failure after a successful operation is
// only logged: the prices are already committed and the lock expires on its own.
func (s *service) release(ctx context.Context, unlock func(context.Context) error, opErr error) error {
	releaseErr := unlock(context.WithoutCancel(ctx))
	if releaseErr == nil {
		return opErr
	}
	if opErr != nil {
		return multierr.Append(opErr, releaseErr)
	}
	if s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", releaseErr.Error()), "pricing.lock.release_failed")
	}
	return nil
}

func (s *service) observe(op string, target enums.PriceChangeTarget, err error, start time.Time) {
	s.metrics.Observe(op, string(target), outcomeFor(err), time.Since(start))
}

func outcomeFor(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	if typed := pkgerrors.As(err); typed != nil {
		switch typed.Code() {
		case pkgerrors.CodeValidation, pkgerrors.CodeNotFound, pkgerrors.CodeConflict:
			return metrics.OutcomeRejected
		}
	}
	return metrics.OutcomeFailure
}

func mapLookupErr(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.NotFound("price change not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price change history")
}

// asDependency keeps typed errors raised inside the transaction and wraps
// anything else, such as a failed commit. A write the schema refused is the
// caller's fault, not an outage.
func asDependency(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	if pkgerrors.IsConstraintViolation(err) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, msg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

// withHistory tags a rollback error with the history row it concerns unless
// the error already carries details.
func withHistory(err error, historyID uuid.UUID) error {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Details() != nil {
		return err
	}
	typed.WithDetails(map[string]any{"history_id": historyID.String()})
	return err
}

func actorFor(tenant Tenant) *outbox.ActorRef {
	businessID := tenant.BusinessID
	return &outbox.ActorRef{UserID: tenant.AdminID, BusinessID: &businessID}
}
