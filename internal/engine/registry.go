package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"github.com/roach88/entgraph/internal/graph"
	"github.com/roach88/entgraph/internal/queryir"
	"github.com/roach88/entgraph/internal/search"
	"github.com/roach88/entgraph/internal/store"
)

var namespacePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidNamespace reports whether name can be used as a namespace.
func ValidNamespace(name string) bool {
	return namespacePattern.MatchString(name)
}

// RegistryConfig configures how namespaces are opened.
type RegistryConfig struct {
	// DataDir holds one SQLite file per namespace, <DataDir>/<name>.db.
	DataDir string

	// DefaultNamespace serves the unprefixed routes.
	DefaultNamespace string

	FieldPolicy queryir.FieldPolicy

	// ExactBonus overrides search.DefaultExactBonus when non-nil. Zero is
	// a valid bonus.
	ExactBonus *float64

	// MaxHops bounds traversal length; 0 selects graph.DefaultMaxHops.
	MaxHops int

	// StoreOptions are passed to store.Open for every namespace.
	StoreOptions []store.Option

	Logger *slog.Logger
}

// Registry opens namespace actors on first use and keeps them running
// until Close. Namespaces share nothing but the registry map.
type Registry struct {
	cfg    RegistryConfig
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	actors map[string]*Actor
	closed bool
	wg     sync.WaitGroup
}

// NewRegistry creates a registry. No database is opened until Get.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.DefaultNamespace == "" {
		cfg.DefaultNamespace = "default"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		actors: make(map[string]*Actor),
	}
}

// DefaultNamespace returns the namespace served by unprefixed routes.
func (r *Registry) DefaultNamespace() string {
	return r.cfg.DefaultNamespace
}

// Get returns the actor for name, opening its database and starting it if
// needed. A database that fails to open or initialize yields an error and
// no actor; the next Get tries again.
func (r *Registry) Get(name string) (*Actor, error) {
	if !ValidNamespace(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNamespace, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if a, ok := r.actors[name]; ok {
		return a, nil
	}

	if err := os.MkdirAll(r.cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(r.cfg.DataDir, name+".db")
	s, err := store.Open(path, r.cfg.StoreOptions...)
	if err != nil {
		return nil, fmt.Errorf("open namespace %s: %w", name, err)
	}

	var searchOpts []search.Option
	if r.cfg.ExactBonus != nil {
		searchOpts = append(searchOpts, search.WithExactBonus(*r.cfg.ExactBonus))
	}
	a := NewActor(name, s,
		WithFieldPolicy(r.cfg.FieldPolicy),
		WithSearchOptions(searchOpts...),
		WithTraverseOptions(graph.WithMaxHops(r.cfg.MaxHops)),
		WithLogger(r.cfg.Logger),
	)
	r.actors[name] = a

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := a.Run(r.ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.cfg.Logger.Error("actor stopped", "namespace", name, "error", err)
		}
	}()

	r.cfg.Logger.Info("namespace opened", "namespace", name, "path", path)
	return a, nil
}

// Default returns the actor for the default namespace.
func (r *Registry) Default() (*Actor, error) {
	return r.Get(r.cfg.DefaultNamespace)
}

// Namespaces returns the names of the open namespaces, sorted.
func (r *Registry) Namespaces() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.actors))
	for name := range r.actors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close stops every actor after its queued work has run, then closes the
// databases. Close is idempotent.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	actors := make([]*Actor, 0, len(r.actors))
	for _, a := range r.actors {
		actors = append(actors, a)
	}
	r.mu.Unlock()

	for _, a := range actors {
		a.Stop()
	}
	r.wg.Wait()
	r.cancel()

	var errs []error
	for _, a := range actors {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close namespace %s: %w", a.name, err))
		}
	}
	return errors.Join(errs...)
}
