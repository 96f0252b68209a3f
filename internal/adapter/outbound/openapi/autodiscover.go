package openapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Common API document paths used by various frameworks
var commonDocumentPaths = []string{
	"/openapi.json",            // FastAPI default
	"/v3/api-docs",             // SpringDoc OpenAPI 3.0
	"/swagger.json",            // Swagger/OpenAPI 2.0
	"/api-docs",                // SpringFox
	"/docs/openapi.json",       // Alternative FastAPI path
	"/api/openapi.json",        // Custom API prefix
	"/api/v1/openapi.json",     // Versioned API
	"/swagger/v1/swagger.json", // .NET default
	"/openapi.yaml",
}

// probeTimeout bounds each discovery request.
const probeTimeout = 5 * time.Second

// AutoDiscoverer finds the API document of a service from its base URL.
type AutoDiscoverer struct {
	client *http.Client
	logger *slog.Logger
}

// NewAutoDiscoverer creates a new API document auto-discoverer.
func NewAutoDiscoverer(client *http.Client, logger *slog.Logger) *AutoDiscoverer {
	if client == nil {
		client = http.DefaultClient
	}
	return &AutoDiscoverer{
		client: client,
		logger: logger.With("component", "openapi_autodiscoverer"),
	}
}

// LooksLikeDocumentURL reports whether source already names a document
// rather than a service root.
func LooksLikeDocumentURL(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasSuffix(lower, ".json") ||
		strings.HasSuffix(lower, ".yaml") ||
		strings.HasSuffix(lower, ".yml") ||
		strings.Contains(lower, "openapi") ||
		strings.Contains(lower, "swagger") ||
		strings.Contains(lower, "api-docs")
}

// Discover probes the well-known document paths under baseURL and returns
// the first URL that serves something that looks like an API document.
func (d *AutoDiscoverer) Discover(ctx context.Context, baseURL string, headers map[string]string) (string, error) {
	log := d.logger.With(slog.String("base_url", baseURL))
	log.Info("Attempting to auto-discover API document")

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Scheme == "" {
		return "", fmt.Errorf("base URL must include scheme (http:// or https://)")
	}

	root := strings.TrimRight(baseURL, "/")
	for _, p := range commonDocumentPaths {
		candidate := root + p
		ok, err := d.probe(ctx, candidate, headers)
		if err != nil {
			log.Debug("Error checking path", slog.String("url", candidate), slog.Any("error", err))
			continue
		}
		if ok {
			log.Info("Found API document", slog.String("url", candidate))
			return candidate, nil
		}
	}

	return "", fmt.Errorf("no API document found at base URL: %s", baseURL)
}

// probe checks whether a URL answers 200 with a JSON or YAML document.
func (d *AutoDiscoverer) probe(ctx context.Context, candidate string, headers map[string]string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, candidate, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json, application/vnd.oai.openapi+json, application/yaml")
	req.Header.Set("User-Agent", "reportbridge/1.0")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, nil
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "json") || strings.Contains(contentType, "yaml") {
		return true, nil
	}

	// Some servers send documents as text/plain; accept anything that opens
	// like a JSON object or declares an openapi/swagger version.
	head, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return false, err
	}
	head = bytes.TrimSpace(head)
	return bytes.HasPrefix(head, []byte("{")) ||
		bytes.HasPrefix(head, []byte("openapi:")) ||
		bytes.HasPrefix(head, []byte("swagger:")), nil
}
