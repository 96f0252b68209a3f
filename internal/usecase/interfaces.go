package usecase

import (
	"context"

	"github.com/i2y/reportbridge/internal/domain"
)

// --- Document Related ---

// DocumentSource loads the API description of the remote service.
// Implementations memoize the first successful load for the process lifetime.
type DocumentSource interface {
	Load(ctx context.Context) (*domain.APIDocument, error)
	// URL returns the location the document is (or will be) loaded from.
	URL() string
}

// --- Route Related ---

// RouteCache stores resolved routes keyed by logical operation key.
// Entries are added once and never evicted.
type RouteCache interface {
	Get(ctx context.Context, key string) (domain.ResolvedRoute, bool)
	Save(ctx context.Context, route domain.ResolvedRoute) error
	List(ctx context.Context) ([]domain.ResolvedRoute, error)
	Reset(ctx context.Context)
}

// RouteFinder locates the route for an operation spec inside a document.
// The resolver tries its finders in order; the first match wins.
type RouteFinder interface {
	Name() string
	Find(doc *domain.APIDocument, spec OperationSpec) (path string, method string, ok bool)
}

// --- Dispatch Related ---

// Dispatcher performs the network call for a resolved route.
type Dispatcher interface {
	FetchText(ctx context.Context, url string) (string, error)
	FetchBinary(ctx context.Context, url string) ([]byte, error)
}
