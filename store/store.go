package store

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/secretary/internal/profile"
	"github.com/hrygo/secretary/store/cache"
)

const moduleSettingCacheTTL = 5 * time.Minute

// Store provides database access to all raw objects.
type Store struct {
	Queries

	profile *profile.Profile
	driver  Driver

	moduleSettingCache *cache.Cache // tenant id -> map[module id]enabled
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		Queries:            driver,
		driver:             driver,
		profile:            profile,
		moduleSettingCache: cache.New(1000, moduleSettingCacheTTL),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

// BeginTx opens a transactional unit.
func (s *Store) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.driver.BeginTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	return tx, nil
}

// RunInTx runs fn inside a transaction, committing on success and rolling back otherwise.
func (s *Store) RunInTx(ctx context.Context, fn func(q Queries) error) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

// GetModuleStates returns the explicit per-module toggles of a tenant.
// Modules absent from the map are enabled.
func (s *Store) GetModuleStates(ctx context.Context, tenantID string) (map[string]bool, error) {
	if v, ok := s.moduleSettingCache.Get(tenantID); ok {
		return v.(map[string]bool), nil
	}

	list, err := s.driver.ListModuleSettings(ctx, &FindModuleSetting{TenantID: tenantID})
	if err != nil {
		return nil, err
	}
	states := make(map[string]bool, len(list))
	for _, setting := range list {
		states[setting.ModuleID] = setting.Enabled
	}
	s.moduleSettingCache.Set(tenantID, states, 0)
	return states, nil
}

// SetModuleEnabled toggles a module for a tenant and drops the cached states.
func (s *Store) SetModuleEnabled(ctx context.Context, tenantID, moduleID string, enabled bool) error {
	_, err := s.driver.UpsertModuleSetting(ctx, &ModuleSetting{
		TenantID:  tenantID,
		ModuleID:  moduleID,
		Enabled:   enabled,
		UpdatedTs: time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	s.moduleSettingCache.Invalidate(tenantID)
	return nil
}
