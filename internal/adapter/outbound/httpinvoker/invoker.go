package httpinvoker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/i2y/reportbridge/internal/domain"
)

const instrumentationName = "github.com/i2y/reportbridge/internal/adapter/outbound/httpinvoker"

// Invoker implements usecase.Dispatcher using standard net/http.
// Each call issues exactly one GET; retries belong to the caller.
type Invoker struct {
	client   *http.Client
	logger   *slog.Logger
	tracer   trace.Tracer
	requests metric.Int64Counter
}

// New creates a new HTTP Invoker.
func New(client *http.Client, logger *slog.Logger) *Invoker {
	if client == nil {
		client = http.DefaultClient
	}
	requests, err := otel.Meter(instrumentationName).Int64Counter("reportbridge.dispatch.requests",
		metric.WithDescription("Dispatched GET requests by mode and outcome"))
	if err != nil {
		logger.Warn("Failed to create dispatch counter", slog.Any("error", err))
	}
	return &Invoker{
		client:   client,
		logger:   logger.With("component", "http_invoker"),
		tracer:   otel.Tracer(instrumentationName),
		requests: requests,
	}
}

type mode string

const (
	modeText   mode = "text"
	modeBinary mode = "binary"
)

// FetchText performs one GET and returns the body as text. A body that
// sniffs as an HTML page fails with *domain.UnexpectedContentError;
// non-2xx JSON bodies are returned as-is for the envelope layer to degrade.
func (i *Invoker) FetchText(ctx context.Context, url string) (string, error) {
	status, body, err := i.get(ctx, modeText, url, "application/json")
	if err != nil {
		return "", err
	}
	if LooksLikeHTML(body) {
		return "", i.unexpected(ctx, modeText, url, status, body, "html page")
	}
	if status < 200 || status > 299 {
		i.logger.Warn("Non-success status on text fetch, returning body", slog.String("url", url), slog.Int("status_code", status))
	}
	i.count(ctx, modeText, "ok")
	return string(body), nil
}

// FetchBinary performs one GET and returns the raw body. HTML pages,
// non-2xx statuses and empty bodies fail with *domain.UnexpectedContentError.
func (i *Invoker) FetchBinary(ctx context.Context, url string) ([]byte, error) {
	status, body, err := i.get(ctx, modeBinary, url, "application/pdf, application/octet-stream")
	if err != nil {
		return nil, err
	}
	switch {
	case status < 200 || status > 299:
		return nil, i.unexpected(ctx, modeBinary, url, status, body, "non-success status")
	case LooksLikeHTML(body):
		return nil, i.unexpected(ctx, modeBinary, url, status, body, "html page")
	case len(body) == 0:
		return nil, i.unexpected(ctx, modeBinary, url, status, body, "empty body")
	}
	i.logger.Debug("Fetched binary artifact", slog.String("url", url), slog.Int("bytes", len(body)),
		slog.String("detected_type", mimetype.Detect(SniffPrefix(body)).String()))
	i.count(ctx, modeBinary, "ok")
	return body, nil
}

func (i *Invoker) get(ctx context.Context, m mode, url, accept string) (int, []byte, error) {
	ctx, span := i.tracer.Start(ctx, "Invoker.Fetch", trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.url", url), attribute.String("dispatch.mode", string(m))))
	defer span.End()

	log := i.logger.With(slog.String("url", url), slog.String("mode", string(m)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Error("Failed to create HTTP request", slog.Any("error", err))
		span.SetStatus(codes.Error, err.Error())
		i.count(ctx, m, "transport_error")
		return 0, nil, &domain.TransportError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", accept)

	log.Debug("Executing HTTP request")
	resp, err := i.client.Do(req)
	if err != nil {
		log.Error("HTTP request failed", slog.Any("error", err))
		span.SetStatus(codes.Error, err.Error())
		i.count(ctx, m, "transport_error")
		return 0, nil, &domain.TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("Failed to read response body", slog.Any("error", err))
		span.SetStatus(codes.Error, err.Error())
		i.count(ctx, m, "transport_error")
		return 0, nil, &domain.TransportError{URL: url, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode), attribute.Int("http.response_size", len(body)))
	log.Debug("Received HTTP response", slog.Int("status_code", resp.StatusCode), slog.Int("bytes", len(body)))
	return resp.StatusCode, body, nil
}

func (i *Invoker) unexpected(ctx context.Context, m mode, url string, status int, body []byte, reason string) error {
	prefix := string(SniffPrefix(body))
	i.logger.Warn("Unexpected response content",
		slog.String("url", url), slog.String("mode", string(m)), slog.Int("status_code", status),
		slog.String("reason", reason), slog.String("prefix", prefix))
	trace.SpanFromContext(ctx).SetStatus(codes.Error, reason)
	i.count(ctx, m, "unexpected_content")
	return &domain.UnexpectedContentError{URL: url, StatusCode: status, Prefix: prefix, Reason: reason}
}

func (i *Invoker) count(ctx context.Context, m mode, outcome string) {
	if i.requests == nil {
		return
	}
	i.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", string(m)), attribute.String("outcome", outcome)))
}

// sniffLen is how many leading bytes content sniffing inspects.
const sniffLen = 120

// htmlMarkers are lower-case prefixes of error pages and status banners.
var htmlMarkers = [][]byte{
	[]byte("<!doctype"),
	[]byte("<html"),
	[]byte("<head"),
	[]byte("<body"),
	[]byte("http/1."),
	[]byte("http/2"),
	[]byte("http status"),
}

// SniffPrefix returns at most the first 120 bytes of body.
func SniffPrefix(body []byte) []byte {
	if len(body) > sniffLen {
		return body[:sniffLen]
	}
	return body
}

// LooksLikeHTML reports whether body opens like an HTML document or an
// HTTP status banner rather than a payload.
func LooksLikeHTML(body []byte) bool {
	head := SniffPrefix(body)
	head = bytes.TrimPrefix(head, []byte("\xef\xbb\xbf"))
	head = bytes.ToLower(bytes.TrimSpace(head))
	for _, m := range htmlMarkers {
		if bytes.HasPrefix(head, m) {
			return true
		}
	}
	return mimetype.Detect(head).Is("text/html")
}
