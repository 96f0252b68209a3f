package memrepo

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/i2y/reportbridge/internal/domain"
)

// InMemoryRouteRepository provides an in-memory implementation of usecase.RouteCache.
// NOTE: Entries live until Reset or process exit; they are never evicted.
type InMemoryRouteRepository struct {
	mu     sync.RWMutex
	routes map[string]domain.ResolvedRoute // Map logical key to resolved route
	logger *slog.Logger
}

// NewInMemoryRouteRepository creates a new in-memory route repository.
func NewInMemoryRouteRepository(logger *slog.Logger) *InMemoryRouteRepository {
	return &InMemoryRouteRepository{
		routes: make(map[string]domain.ResolvedRoute),
		logger: logger.With("component", "mem_repo"),
	}
}

// Save stores a resolved route under its logical key. Concurrent saves of
// the same key are last-writer-wins.
func (r *InMemoryRouteRepository) Save(ctx context.Context, route domain.ResolvedRoute) error {
	if route.Key == "" {
		r.logger.Warn("Refusing to save route with empty key", slog.String("path", route.Path))
		return fmt.Errorf("save failed: route for %s %s has no key", route.Method, route.Path)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[route.Key] = route
	r.logger.Debug("Saved resolved route", slog.String("key", route.Key), slog.String("path", route.Path), slog.Int("total_routes", len(r.routes)))
	return nil
}

// Get retrieves the route for a logical key.
func (r *InMemoryRouteRepository) Get(ctx context.Context, key string) (domain.ResolvedRoute, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	route, ok := r.routes[key]
	return route, ok
}

// List returns all cached routes ordered by key.
func (r *InMemoryRouteRepository) List(ctx context.Context) ([]domain.ResolvedRoute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]domain.ResolvedRoute, 0, len(r.routes))
	for _, route := range r.routes {
		list = append(list, route)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Key < list[j].Key })
	r.logger.Debug("Listed routes from repository", slog.Int("count", len(list)))
	return list, nil
}

// Reset drops every cached route.
func (r *InMemoryRouteRepository) Reset(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = make(map[string]domain.ResolvedRoute)
	r.logger.Info("Route cache reset")
}
