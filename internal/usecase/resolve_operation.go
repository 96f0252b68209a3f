package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/i2y/reportbridge/internal/domain"
)

const instrumentationName = "github.com/i2y/reportbridge/internal/usecase"

// OperationIDFinder finds routes by their declared operationId.
type OperationIDFinder struct{}

func (OperationIDFinder) Name() string { return "operation_id" }

// Find returns the operation carrying spec.OperationID, if the spec names one
// and its method agrees.
func (OperationIDFinder) Find(doc *domain.APIDocument, spec OperationSpec) (string, string, bool) {
	if spec.OperationID == "" {
		return "", "", false
	}
	path, method, ok := doc.FindOperationID(spec.OperationID)
	if !ok || !strings.EqualFold(method, spec.Method) {
		return "", "", false
	}
	return path, method, true
}

// HeuristicFinder scans every path declaring the spec's method, shortest
// path first, and returns the first one the spec's matcher accepts.
type HeuristicFinder struct{}

func (HeuristicFinder) Name() string { return "heuristic" }

func (HeuristicFinder) Find(doc *domain.APIDocument, spec OperationSpec) (string, string, bool) {
	if spec.Match == nil {
		return "", "", false
	}
	method := strings.ToUpper(spec.Method)
	for _, path := range doc.Paths() {
		if doc.Operation(path, method) == nil {
			continue
		}
		if spec.Match(doc, path, method) {
			return path, method, true
		}
	}
	return "", "", false
}

// RouteResolver maps logical operation keys to concrete routes.
type RouteResolver struct {
	documents DocumentSource
	cache     RouteCache
	catalog   *Catalog
	finders   []RouteFinder
	logger    *slog.Logger
	tracer    trace.Tracer
	lookups   metric.Int64Counter
}

// NewRouteResolver creates a resolver. Without explicit finders it tries
// operationId lookup first and falls back to the heuristic scan.
func NewRouteResolver(documents DocumentSource, cache RouteCache, catalog *Catalog, logger *slog.Logger, finders ...RouteFinder) *RouteResolver {
	if len(finders) == 0 {
		finders = []RouteFinder{OperationIDFinder{}, HeuristicFinder{}}
	}
	meter := otel.Meter(instrumentationName)
	lookups, err := meter.Int64Counter("reportbridge.resolver.lookups",
		metric.WithDescription("Route resolutions by cache outcome"))
	if err != nil {
		logger.Warn("Failed to create resolver counter", slog.Any("error", err))
	}
	return &RouteResolver{
		documents: documents,
		cache:     cache,
		catalog:   catalog,
		finders:   finders,
		logger:    logger.With("component", "route_resolver"),
		tracer:    otel.Tracer(instrumentationName),
		lookups:   lookups,
	}
}

// Resolve returns the route for key, consulting the cache first.
func (r *RouteResolver) Resolve(ctx context.Context, key string) (domain.ResolvedRoute, error) {
	if route, ok := r.cache.Get(ctx, key); ok {
		r.count(ctx, "hit")
		return route, nil
	}
	r.count(ctx, "miss")

	ctx, span := r.tracer.Start(ctx, "RouteResolver.Resolve", trace.WithAttributes(attribute.String("operation.key", key)))
	defer span.End()

	log := r.logger.With(slog.String("key", key))

	spec, ok := r.catalog.Lookup(key)
	if !ok {
		unknown := &domain.OperationNotFoundError{Key: key, DocumentURL: r.documents.URL()}
		log.Error("Logical operation key is not registered")
		span.RecordError(unknown)
		return domain.ResolvedRoute{}, unknown
	}

	doc, err := r.documents.Load(ctx)
	if err != nil {
		log.Error("Failed to load API document", slog.Any("error", err))
		span.RecordError(err)
		return domain.ResolvedRoute{}, fmt.Errorf("resolve %s: %w", key, err)
	}

	for _, finder := range r.finders {
		path, method, found := finder.Find(doc, spec)
		if !found {
			log.Debug("Finder did not match", slog.String("finder", finder.Name()))
			continue
		}
		route := domain.ResolvedRoute{
			Key:       key,
			Path:      path,
			Method:    method,
			Strategy:  finder.Name(),
			Operation: doc.Operation(path, method),
		}
		if err := r.cache.Save(ctx, route); err != nil {
			log.Warn("Failed to cache resolved route", slog.Any("error", err))
		}
		span.SetAttributes(attribute.String("route.path", path), attribute.String("route.method", method))
		log.Info("Resolved operation", slog.String("path", path), slog.String("method", method), slog.String("finder", finder.Name()))
		return route, nil
	}

	notFound := &domain.OperationNotFoundError{Key: key, DocumentURL: doc.Source}
	log.Error("No route satisfies operation", slog.String("document", doc.Source))
	span.RecordError(notFound)
	return domain.ResolvedRoute{}, notFound
}

// Routes lists every route resolved so far.
func (r *RouteResolver) Routes(ctx context.Context) ([]domain.ResolvedRoute, error) {
	return r.cache.List(ctx)
}

// Reset drops every cached route.
func (r *RouteResolver) Reset(ctx context.Context) {
	r.cache.Reset(ctx)
}

// Catalog exposes the resolver's operation catalog.
func (r *RouteResolver) Catalog() *Catalog {
	return r.catalog
}

func (r *RouteResolver) count(ctx context.Context, outcome string) {
	if r.lookups == nil {
		return
	}
	r.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
