package config

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/arkbriar/ssmgr-collector/pkg/env"
)

// Store resolves the configuration once and caches the result. It is safe for
// concurrent use. After the first resolution Get does not lock.
type Store struct {
	environ env.Environ
	logger  *zap.Logger

	mu     sync.Mutex
	result atomic.Pointer[resolution]
}

type resolution struct {
	cfg *Config
	err error
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithEnviron sets the environment the store resolves from.
func WithEnviron(environ env.Environ) StoreOption {
	return func(s *Store) {
		s.environ = environ
	}
}

// WithLogger sets the logger used for option parsing diagnostics.
func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a Store reading the process environment unless WithEnviron is given.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		environ: env.OS,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the cached configuration, resolving it on the first call. A
// resolution error is cached as well.
func (s *Store) Get() (*Config, error) {
	if r := s.result.Load(); r != nil {
		return r.cfg, r.err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if r := s.result.Load(); r != nil {
		return r.cfg, r.err
	}

	cfg, err := Resolve(s.environ, s.logger)
	if err != nil {
		s.logger.Error("failed to resolve plugin configuration", zap.Error(err))
	} else {
		s.logger.Debug("resolved plugin configuration",
			zap.String("remote", cfg.RemoteAddr()),
			zap.String("local", cfg.LocalAddr()),
			zap.Int("options", len(cfg.options)),
		)
	}

	s.result.Store(&resolution{cfg: cfg, err: err})
	return cfg, err
}

// Reset drops the cached result so the next Get resolves again.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result.Store(nil)
}

// SetLogger replaces the store's logger. It affects resolutions that have not happened yet.
func (s *Store) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

var defaultStore = NewStore()

// Default returns the process-wide store.
func Default() *Store {
	return defaultStore
}

// Get returns the process-wide configuration.
func Get() (*Config, error) {
	return defaultStore.Get()
}

// Reset clears the process-wide configuration. Intended for tests.
func Reset() {
	defaultStore.Reset()
}

// SetLogger sets the logger of the process-wide store.
func SetLogger(logger *zap.Logger) {
	defaultStore.SetLogger(logger)
}
