package pricechanges

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/tavola-backend/internal/catalog"
	"github.com/angelmondragon/tavola-backend/pkg/db"
	"github.com/angelmondragon/tavola-backend/pkg/db/models"
	"github.com/angelmondragon/tavola-backend/pkg/enums"
	"github.com/angelmondragon/tavola-backend/pkg/logger"
	"github.com/angelmondragon/tavola-backend/pkg/metrics"
	"github.com/angelmondragon/tavola-backend/pkg/outbox"
)

type testEnv struct {
	db       *gorm.DB
	svc      Service
	params   ServiceParams
	registry *prometheus.Registry
	tenant   Tenant
}

type envOption func(p *ServiceParams, conn *gorm.DB)

func withFailingCommit() envOption {
	return func(p *ServiceParams, conn *gorm.DB) { p.Tx = failingCommit{db: conn} }
}

func withLocks(locks LockProvider) envOption {
	return func(p *ServiceParams, _ *gorm.DB) { p.Locks = locks }
}

func withLogger(logg *logger.Logger) envOption {
	return func(p *ServiceParams, _ *gorm.DB) { p.Logger = logg }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(models.All()...))

	logg := logger.New(logger.Options{ServiceName: "pricechanges-test", Output: io.Discard})
	registry := prometheus.NewRegistry()
	params := ServiceParams{
		Repo:    NewRepository(conn),
		Catalog: catalog.NewRepository(conn, 2),
		Tx:      db.NewFromGorm(conn),
		Outbox:  outbox.NewService(outbox.NewRepository(), logg),
		Metrics: metrics.NewPricingMetrics(registry),
		Logger:  logg,
	}
	for _, opt := range opts {
		opt(&params, conn)
	}
	svc, err := NewService(params)
	require.NoError(t, err)

	business := models.Business{Name: "Trattoria"}
	require.NoError(t, conn.Create(&business).Error)

	return &testEnv{
		db:       conn,
		svc:      svc,
		params:   params,
		registry: registry,
		tenant:   Tenant{BusinessID: business.ID, AdminID: uuid.New()},
	}
}

// rebuild returns a second service over the same database with extra options
// applied, so a test can seed data normally and then fail a later operation.
func (e *testEnv) rebuild(t *testing.T, opts ...envOption) Service {
	t.Helper()
	params := e.params
	for _, opt := range opts {
		opt(&params, e.db)
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return svc
}

func withRepo(wrap func(Repository) Repository) envOption {
	return func(p *ServiceParams, _ *gorm.DB) { p.Repo = wrap(p.Repo) }
}

// concurrentRollbackRepo marks the row rolled back right after it is read,
// the way a second admin finishing first would.
type concurrentRollbackRepo struct {
	Repository
	db *gorm.DB
}

func (r concurrentRollbackRepo) FindByID(ctx context.Context, businessID, id uuid.UUID) (*models.PriceChangeHistory, error) {
	row, err := r.Repository.FindByID(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	err = r.db.Model(&models.PriceChangeHistory{}).
		Where("id = ?", id).
		Update("status", enums.PriceChangeStatusRolledBack).Error
	return row, err
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func decp(v string) *decimal.Decimal {
	out := dec(v)
	return &out
}

func (e *testEnv) createItem(t *testing.T, item models.Item) models.Item {
	t.Helper()
	item.IsActive = true
	if item.Name == "" {
		item.Name = "item"
	}
	require.NoError(t, e.db.Create(&item).Error)
	return item
}

func (e *testEnv) createGroup(t *testing.T) models.ModifierGroup {
	t.Helper()
	group := models.ModifierGroup{Name: "Extras", MaxSelect: 3}
	require.NoError(t, e.db.Create(&group).Error)
	return group
}

func (e *testEnv) createModifier(t *testing.T, modifier models.Modifier) models.Modifier {
	t.Helper()
	modifier.IsActive = true
	if modifier.Name == "" {
		modifier.Name = "modifier"
	}
	require.NoError(t, e.db.Create(&modifier).Error)
	return modifier
}

func (e *testEnv) reloadItem(t *testing.T, id uuid.UUID) models.Item {
	t.Helper()
	var item models.Item
	require.NoError(t, e.db.First(&item, "id = ?", id).Error)
	return item
}

func (e *testEnv) reloadModifier(t *testing.T, id uuid.UUID) models.Modifier {
	t.Helper()
	var modifier models.Modifier
	require.NoError(t, e.db.First(&modifier, "id = ?", id).Error)
	return modifier
}

func (e *testEnv) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(model).Count(&n).Error)
	return n
}

// failingCommit runs the callback in a real transaction and then reports a
// commit failure after rolling it back.
type failingCommit struct {
	db *gorm.DB
}

var errCommit = errors.New("commit: connection reset by peer")

func (f failingCommit) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := f.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	tx.Rollback()
	return errCommit
}

func decimalNull(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(v))
}
