package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/i2y/reportbridge/internal/domain"
)

// QueryProjector restricts candidate query parameters to those a route declares.
type QueryProjector struct {
	documents DocumentSource
	logger    *slog.Logger
}

// NewQueryProjector creates a projector backed by the given document source.
func NewQueryProjector(documents DocumentSource, logger *slog.Logger) *QueryProjector {
	return &QueryProjector{
		documents: documents,
		logger:    logger.With("component", "query_projector"),
	}
}

// Project returns the encoded query string for the route, keeping only the
// candidates whose key the route declares as a query parameter. Blank keys
// and values are dropped. Candidate order is preserved.
func (p *QueryProjector) Project(ctx context.Context, path, method string, candidates []domain.Param) (string, error) {
	doc, err := p.documents.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("project query for %s %s: %w", method, path, err)
	}
	return ProjectQuery(doc, path, method, candidates), nil
}

// ProjectQuery is the pure form of QueryProjector.Project.
func ProjectQuery(doc *domain.APIDocument, path, method string, candidates []domain.Param) string {
	declared := doc.QueryParameterNames(path, method)
	if len(declared) == 0 {
		return ""
	}
	allowed := make(map[string]struct{}, len(declared))
	for _, n := range declared {
		allowed[n] = struct{}{}
	}

	var b strings.Builder
	for _, c := range candidates {
		if strings.TrimSpace(c.Key) == "" || strings.TrimSpace(c.Value) == "" {
			continue
		}
		if _, ok := allowed[c.Key]; !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(c.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(c.Value))
	}
	return b.String()
}

// BuildURL joins the API root, a resolved path and an encoded query.
func BuildURL(apiBase, path, query string) string {
	u := strings.TrimRight(apiBase, "/") + "/" + strings.TrimLeft(path, "/")
	if query != "" {
		u += "?" + query
	}
	return u
}
