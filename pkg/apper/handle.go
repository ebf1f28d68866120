package apper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// State is the lifecycle of a Handle.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// DefaultProbeTable is fetched once to verify connectivity.
const DefaultProbeTable = "students_c"

// Factory builds a backend from configuration.
type Factory func(ctx context.Context) (Backend, error)

// HandleConfig configures lazy initialization.
type HandleConfig struct {
	Factory    Factory
	ProbeTable string
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
	// Sleep waits between attempts; tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Handle owns the single shared backend connection. Concurrent callers
// share one initialization attempt; a failed handle stays failed until Reset.
type Handle struct {
	cfg    HandleConfig
	logger *zap.Logger
	group  singleflight.Group

	mu         sync.Mutex
	state      State
	backend    Backend
	err        error
	generation uint64
	attempts   int
}

// NewHandle creates an uninitialized handle.
func NewHandle(cfg HandleConfig) *Handle {
	if cfg.ProbeTable == "" {
		cfg.ProbeTable = DefaultProbeTable
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handle{cfg: cfg, logger: logger}
}

// NewStaticHandle wraps an already constructed backend in a ready handle.
func NewStaticHandle(backend Backend) *Handle {
	h := NewHandle(HandleConfig{Factory: func(context.Context) (Backend, error) { return backend, nil }})
	h.state = StateReady
	h.backend = backend
	return h
}

// State reports the current lifecycle state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Err returns the stored initialization error of a failed handle.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Attempts reports how many connection attempts the current generation made.
func (h *Handle) Attempts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attempts
}

// Get returns the backend, initializing it on first use.
func (h *Handle) Get(ctx context.Context) (Backend, error) {
	h.mu.Lock()
	switch h.state {
	case StateReady:
		backend := h.backend
		h.mu.Unlock()
		return backend, nil
	case StateFailed:
		err := h.err
		h.mu.Unlock()
		return nil, err
	}
	h.state = StateInitializing
	gen := h.generation
	h.mu.Unlock()

	v, err, _ := h.group.Do(fmt.Sprintf("init-%d", gen), func() (interface{}, error) {
		return h.initialize(ctx, gen)
	})
	if err != nil {
		return nil, err
	}
	return v.(Backend), nil
}

// Reset discards the backend and any stored failure.
func (h *Handle) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.generation++
	h.state = StateUninitialized
	h.backend = nil
	h.err = nil
	h.attempts = 0
	h.logger.Info("record store handle reset")
}

func (h *Handle) initialize(ctx context.Context, gen uint64) (Backend, error) {
	h.mu.Lock()
	if h.generation == gen {
		switch h.state {
		case StateReady:
			backend := h.backend
			h.mu.Unlock()
			return backend, nil
		case StateFailed:
			err := h.err
			h.mu.Unlock()
			return nil, err
		}
	}
	h.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt <= h.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := h.cfg.RetryDelay * time.Duration(attempt)
			h.logger.Warn("retrying record store connection",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", h.cfg.MaxRetries),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			if err := h.cfg.Sleep(ctx, delay); err != nil {
				h.abandon(gen)
				return nil, err
			}
		}

		h.countAttempt(gen)
		backend, err := h.connect(ctx)
		if err == nil {
			h.finish(gen, backend, nil)
			h.logger.Info("record store connected", zap.Int("attempts", attempt+1))
			return backend, nil
		}
		lastErr = err
		if errors.Is(err, ErrConfiguration) {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			h.abandon(gen)
			return nil, ctxErr
		}
	}

	failure := fmt.Errorf("%w: %w", ErrNotReady, lastErr)
	if errors.Is(lastErr, ErrConfiguration) {
		failure = lastErr
	}
	h.finish(gen, nil, failure)
	h.logger.Error("record store initialization failed", zap.Error(lastErr))
	return nil, failure
}

// connect builds the backend and probes it. Only network-class probe
// failures count; a store that answers with an error is reachable.
func (h *Handle) connect(ctx context.Context) (Backend, error) {
	if h.cfg.Factory == nil {
		return nil, fmt.Errorf("%w: no backend factory", ErrConfiguration)
	}
	backend, err := h.cfg.Factory(ctx)
	if err != nil {
		return nil, err
	}
	_, err = backend.FetchRecords(ctx, h.cfg.ProbeTable, FetchParams{
		Fields:     Fields(FieldID),
		PagingInfo: &PagingInfo{Limit: 1},
	})
	if err != nil && IsNetworkError(err) {
		return nil, err
	}
	if err != nil {
		h.logger.Debug("record store probe returned error", zap.Error(err))
	}
	return backend, nil
}

func (h *Handle) countAttempt(gen uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.generation == gen {
		h.attempts++
	}
}

func (h *Handle) finish(gen uint64, backend Backend, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.generation != gen {
		return
	}
	if err != nil {
		h.state = StateFailed
		h.err = err
		return
	}
	h.state = StateReady
	h.backend = backend
	h.err = nil
}

func (h *Handle) abandon(gen uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.generation == gen && h.state == StateInitializing {
		h.state = StateUninitialized
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
