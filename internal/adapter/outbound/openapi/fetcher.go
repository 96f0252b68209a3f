package openapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/i2y/reportbridge/internal/adapter/outbound/github"
	"github.com/i2y/reportbridge/internal/domain"
)

// snippetLen is how many body bytes a SchemaUnavailableError quotes.
const snippetLen = 64

// DocumentCacheConfig configures where the API document is loaded from.
type DocumentCacheConfig struct {
	// Source is an http(s) URL, a local file path or a github:// location.
	// When empty, the document is auto-discovered under BaseURL.
	Source string
	// BaseURL is the service root used for auto-discovery.
	BaseURL string
	// Headers are sent with every http(s) document request.
	Headers map[string]string
}

// DocumentCache implements usecase.DocumentSource. It fetches the API
// document once and serves the memoized copy afterwards. Failed loads are
// not memoized; the next call fetches again.
type DocumentCache struct {
	httpClient     *http.Client
	github         *github.GHClient
	autoDiscoverer *AutoDiscoverer
	config         DocumentCacheConfig
	logger         *slog.Logger
	tracer         trace.Tracer

	doc      atomic.Pointer[domain.APIDocument]
	group    singleflight.Group
	mu       sync.Mutex
	resolved string // discovered document URL
	fetches  atomic.Int64
}

// NewDocumentCache creates a new DocumentCache.
func NewDocumentCache(client *http.Client, config DocumentCacheConfig, logger *slog.Logger) *DocumentCache {
	if client == nil {
		client = http.DefaultClient
	}
	return &DocumentCache{
		httpClient:     client,
		github:         github.NewGHClient(),
		autoDiscoverer: NewAutoDiscoverer(client, logger),
		config:         config,
		logger:         logger.With("component", "openapi_document_cache"),
		tracer:         otel.Tracer("github.com/i2y/reportbridge/internal/adapter/outbound/openapi"),
	}
}

// WithGitHubClient replaces the client used for github:// sources.
func (c *DocumentCache) WithGitHubClient(gh *github.GHClient) *DocumentCache {
	c.github = gh
	return c
}

// URL returns the document location, falling back to the base URL while
// the location has not been discovered yet.
func (c *DocumentCache) URL() string {
	if c.config.Source != "" {
		return c.config.Source
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resolved != "" {
		return c.resolved
	}
	return c.config.BaseURL
}

// Fetches returns how many network or file loads were attempted.
func (c *DocumentCache) Fetches() int64 {
	return c.fetches.Load()
}

// Reset drops the memoized document.
func (c *DocumentCache) Reset() {
	c.doc.Store(nil)
	c.logger.Info("API document cache reset")
}

// Load returns the memoized document, fetching it on first use. Concurrent
// first-use callers share a single fetch. The shared fetch is not bound to
// any one caller's context; it is limited by the HTTP client timeout, and
// each caller stops waiting when its own ctx is done.
func (c *DocumentCache) Load(ctx context.Context) (*domain.APIDocument, error) {
	if doc := c.doc.Load(); doc != nil {
		return doc, nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("document", func() (interface{}, error) {
		if doc := c.doc.Load(); doc != nil {
			return doc, nil
		}
		doc, err := c.fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.doc.Store(doc)
		return doc, nil
	})

	select {
	case <-ctx.Done():
		c.logger.Warn("Stopped waiting for API document", slog.Any("error", ctx.Err()))
		return nil, &domain.SchemaUnavailableError{URL: c.URL(), Reason: "load abandoned by caller", Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug("Joined in-flight document load")
		}
		return res.Val.(*domain.APIDocument), nil
	}
}

func (c *DocumentCache) fetch(ctx context.Context) (*domain.APIDocument, error) {
	c.fetches.Add(1)

	src, err := c.source(ctx)
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "DocumentCache.fetch", trace.WithAttributes(attribute.String("document.source", src)))
	defer span.End()

	log := c.logger.With(slog.String("source", src))
	log.Info("Fetching API document")

	raw, err := c.read(ctx, src)
	if err != nil {
		log.Error("Failed to read API document", slog.Any("error", err))
		span.RecordError(err)
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &domain.SchemaUnavailableError{URL: src, Reason: "empty body"}
	}

	spec, format, err := parseDocument(ctx, raw)
	if err != nil {
		log.Error("Failed to parse API document", slog.Any("error", err))
		span.RecordError(err)
		return nil, &domain.SchemaUnavailableError{URL: src, Reason: "body is not an API document", Snippet: snippet(raw), Err: err}
	}
	if spec.Paths == nil || spec.Paths.Len() == 0 {
		log.Error("API document declares no paths")
		return nil, &domain.SchemaUnavailableError{URL: src, Reason: "document declares no paths", Snippet: snippet(raw)}
	}

	if validateErr := spec.Validate(ctx); validateErr != nil {
		log.Warn("API document validation failed", slog.Any("validation_error", validateErr))
	}

	log.Info("Successfully fetched and parsed API document", slog.Int("paths", spec.Paths.Len()), slog.String("format", string(format)))
	return &domain.APIDocument{
		Source:  src,
		Format:  format,
		RawData: raw,
		Spec:    spec,
	}, nil
}

// source returns the configured document location, discovering it under
// the base URL when none is configured.
func (c *DocumentCache) source(ctx context.Context) (string, error) {
	if c.config.Source != "" {
		return c.config.Source, nil
	}

	c.mu.Lock()
	resolved := c.resolved
	c.mu.Unlock()
	if resolved != "" {
		return resolved, nil
	}

	if c.config.BaseURL == "" {
		return "", &domain.SchemaUnavailableError{Reason: "no document source or base URL configured"}
	}
	if LooksLikeDocumentURL(c.config.BaseURL) {
		c.logger.Info("Base URL names a document, skipping auto-discovery", slog.String("url", c.config.BaseURL))
		c.mu.Lock()
		c.resolved = c.config.BaseURL
		c.mu.Unlock()
		return c.config.BaseURL, nil
	}
	discovered, err := c.autoDiscoverer.Discover(ctx, c.config.BaseURL, c.config.Headers)
	if err != nil {
		return "", &domain.SchemaUnavailableError{URL: c.config.BaseURL, Reason: "auto-discovery failed", Err: err}
	}

	c.mu.Lock()
	c.resolved = discovered
	c.mu.Unlock()
	return discovered, nil
}

func (c *DocumentCache) read(ctx context.Context, src string) ([]byte, error) {
	if github.IsGitHubURL(src) {
		data, err := c.github.FetchFile(ctx, src)
		if err != nil {
			return nil, &domain.SchemaUnavailableError{URL: src, Reason: "github fetch failed", Err: err}
		}
		return data, nil
	}

	u, parseErr := url.ParseRequestURI(src)
	if parseErr == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return c.readHTTP(ctx, src)
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return nil, &domain.SchemaUnavailableError{URL: src, Reason: "file read failed", Err: err}
	}
	return data, nil
}

func (c *DocumentCache) readHTTP(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, &domain.SchemaUnavailableError{URL: src, Reason: "invalid request", Err: err}
	}
	req.Header.Set("Accept", "application/json, application/yaml")
	for key, value := range c.config.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.SchemaUnavailableError{URL: src, Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.SchemaUnavailableError{URL: src, Reason: "reading body failed", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.SchemaUnavailableError{URL: src, Reason: "status " + resp.Status, Snippet: snippet(body)}
	}
	return body, nil
}

// versionProbe reads just enough of a document to tell OpenAPI 3 from Swagger 2.
type versionProbe struct {
	OpenAPI string `yaml:"openapi"`
	Swagger string `yaml:"swagger"`
}

// parseDocument parses JSON or YAML, converting Swagger 2.0 to OpenAPI 3.
func parseDocument(ctx context.Context, raw []byte) (*openapi3.T, domain.DocumentFormat, error) {
	var probe versionProbe
	if err := yaml.Unmarshal(raw, &probe); err != nil {
		return nil, "", fmt.Errorf("not JSON or YAML: %w", err)
	}

	if strings.HasPrefix(probe.Swagger, "2") {
		var v2 openapi2.T
		if json.Valid(raw) {
			if err := json.Unmarshal(raw, &v2); err != nil {
				return nil, "", fmt.Errorf("parse swagger 2.0: %w", err)
			}
		} else if err := yaml.Unmarshal(raw, &v2); err != nil {
			return nil, "", fmt.Errorf("parse swagger 2.0: %w", err)
		}
		spec, err := openapi2conv.ToV3(&v2)
		if err != nil {
			return nil, "", fmt.Errorf("convert swagger 2.0: %w", err)
		}
		return spec, domain.DocumentFormatSwagger2, nil
	}

	loader := &openapi3.Loader{Context: ctx, IsExternalRefsAllowed: true}
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, "", err
	}
	return spec, domain.DocumentFormatOpenAPI3, nil
}

func snippet(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) > snippetLen {
		body = body[:snippetLen]
	}
	return string(body)
}
