package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-api/pkg/apper"
	"github.com/noah-isme/classroom-api/pkg/config"
	"github.com/noah-isme/classroom-api/pkg/database"
)

// StoreConnector builds record store backends for the configured driver.
type StoreConnector struct {
	cfg    *config.Config
	logger *zap.Logger

	mu sync.Mutex
	db *sqlx.DB
}

// NewStoreConnector returns a connector for cfg.Store.Driver.
func NewStoreConnector(cfg *config.Config, logger *zap.Logger) *StoreConnector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreConnector{cfg: cfg, logger: logger}
}

// Handle returns a lazily connecting handle backed by this connector.
func (s *StoreConnector) Handle() *apper.Handle {
	return apper.NewHandle(apper.HandleConfig{
		Factory:    s.Connect,
		MaxRetries: s.cfg.Store.MaxRetries,
		RetryDelay: s.cfg.Store.RetryDelay,
		Logger:     s.logger,
	})
}

// Connect builds one backend. A postgres connection left by an earlier
// attempt is closed first.
func (s *StoreConnector) Connect(ctx context.Context) (apper.Backend, error) {
	switch s.cfg.Store.Driver {
	case config.StoreDriverMemory:
		return apper.NewMemoryBackend(), nil
	case config.StoreDriverPostgres:
		return s.connectPostgres(ctx)
	case config.StoreDriverApper, "":
		return apper.NewHTTPBackend(apper.HTTPConfig{
			BaseURL:   s.cfg.Store.BaseURL,
			ProjectID: s.cfg.Store.ProjectID,
			PublicKey: s.cfg.Store.PublicKey,
			Timeout:   s.cfg.Store.Timeout,
		})
	}
	return nil, fmt.Errorf("%w: unknown store driver %q", apper.ErrConfiguration, s.cfg.Store.Driver)
}

func (s *StoreConnector) connectPostgres(ctx context.Context) (apper.Backend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		_ = s.db.Close()
		s.db = nil
	}
	db, err := database.NewPostgres(ctx, s.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	backend := apper.NewPostgresBackend(db)
	if err := backend.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.db = db
	return backend, nil
}

// Close releases the postgres pool, if one was opened.
func (s *StoreConnector) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
