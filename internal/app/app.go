// Package app wires the outbound adapters and use cases shared by the
// reportbridge server and the reportctl CLI.
package app

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/i2y/reportbridge/configs"
	"github.com/i2y/reportbridge/internal/adapter/outbound/httpinvoker"
	"github.com/i2y/reportbridge/internal/adapter/outbound/memrepo"
	"github.com/i2y/reportbridge/internal/adapter/outbound/openapi"
	"github.com/i2y/reportbridge/internal/usecase"
)

// App holds the wired components.
type App struct {
	Documents *openapi.DocumentCache
	Resolver  *usecase.RouteResolver
	Projector *usecase.QueryProjector
	Reports   *usecase.ReportService
}

// New builds the component graph from cfg. Operation overrides naming keys
// the catalog does not know are logged and skipped.
func New(cfg *configs.Config, logger *slog.Logger) *App {
	httpClient := &http.Client{
		Timeout: cfg.HTTPClientTimeout,
	}
	logger.Debug("HTTP Client configured.", slog.Duration("timeout", cfg.HTTPClientTimeout))

	documents := openapi.NewDocumentCache(httpClient, openapi.DocumentCacheConfig{
		Source:  cfg.DocumentURL,
		BaseURL: cfg.APIBaseURL,
		Headers: cfg.DocumentHeaders,
	}, logger)

	catalog := usecase.DefaultCatalog()
	keys := make([]string, 0, len(cfg.Operations))
	for key := range cfg.Operations {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if !catalog.SetOperationID(key, cfg.Operations[key]) {
			logger.Warn("Ignoring operation override for unknown key", slog.String("key", key))
			continue
		}
		logger.Info("Operation pinned to operationId", slog.String("key", key), slog.String("operation_id", cfg.Operations[key]))
	}

	resolver := usecase.NewRouteResolver(documents, memrepo.NewInMemoryRouteRepository(logger), catalog, logger)
	projector := usecase.NewQueryProjector(documents, logger)
	dispatcher := httpinvoker.New(httpClient, logger)

	return &App{
		Documents: documents,
		Resolver:  resolver,
		Projector: projector,
		Reports:   usecase.NewReportService(cfg.APIBaseURL, resolver, projector, dispatcher, logger),
	}
}
