package httpinvoker_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/reportbridge/internal/adapter/outbound/httpinvoker"
	"github.com/i2y/reportbridge/internal/domain"
)

var pdfBytes = []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")

func newTestInvoker(t *testing.T, handler http.Handler) (*httpinvoker.Invoker, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close) // Ensure server is closed after test

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	invoker := httpinvoker.New(server.Client(), logger) // Use test server's client
	return invoker, server
}

func respond(status int, contentType, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

func TestInvoker_FetchText(t *testing.T) {
	tests := []struct {
		name        string
		handler     http.HandlerFunc
		want        string
		wantErr     error
		wantStatus  int
		checkPrefix string
	}{
		{
			name:    "Success - JSON body returned as-is",
			handler: respond(http.StatusOK, "application/json", `{"success":true,"data":[]}`),
			want:    `{"success":true,"data":[]}`,
		},
		{
			name:    "Success - Non-2xx JSON body returned for envelope handling",
			handler: respond(http.StatusBadRequest, "application/json", `{"success":false,"message":"fecha invalida"}`),
			want:    `{"success":false,"message":"fecha invalida"}`,
		},
		{
			name:        "Failure - HTML doctype with 200",
			handler:     respond(http.StatusOK, "text/html", "<!DOCTYPE html><html><head><title>Login</title></head></html>"),
			wantErr:     domain.ErrUnexpectedContent,
			wantStatus:  http.StatusOK,
			checkPrefix: "<!DOCTYPE html>",
		},
		{
			name:       "Failure - HTML error page with 404",
			handler:    respond(http.StatusNotFound, "text/html", "\n  <html><body>Not Found</body></html>"),
			wantErr:    domain.ErrUnexpectedContent,
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invoker, server := newTestInvoker(t, tt.handler)

			got, err := invoker.FetchText(context.Background(), server.URL+"/reports/invoices")
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				var uce *domain.UnexpectedContentError
				require.True(t, errors.As(err, &uce))
				assert.Equal(t, tt.wantStatus, uce.StatusCode)
				if tt.checkPrefix != "" {
					assert.True(t, strings.HasPrefix(uce.Prefix, tt.checkPrefix))
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInvoker_FetchBinary(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantErr    bool
		wantStatus int
		wantReason string
	}{
		{
			name:    "Success - PDF bytes",
			handler: respond(http.StatusOK, "application/pdf", string(pdfBytes)),
		},
		{
			name:       "Failure - HTML doctype with 200",
			handler:    respond(http.StatusOK, "application/pdf", "<!doctype html><html><body>Error</body></html>"),
			wantErr:    true,
			wantStatus: http.StatusOK,
			wantReason: "html page",
		},
		{
			name:       "Failure - Tomcat status banner",
			handler:    respond(http.StatusOK, "text/plain", "HTTP Status 404 - Not Found"),
			wantErr:    true,
			wantStatus: http.StatusOK,
			wantReason: "html page",
		},
		{
			name:       "Failure - HTML fragment detected by content",
			handler:    respond(http.StatusOK, "", "<div><p>Internal error</p></div>"),
			wantErr:    true,
			wantStatus: http.StatusOK,
			wantReason: "html page",
		},
		{
			name:       "Failure - Non-2xx with binary body",
			handler:    respond(http.StatusInternalServerError, "application/pdf", string(pdfBytes)),
			wantErr:    true,
			wantStatus: http.StatusInternalServerError,
			wantReason: "non-success status",
		},
		{
			name:       "Failure - Empty body",
			handler:    respond(http.StatusOK, "application/pdf", ""),
			wantErr:    true,
			wantStatus: http.StatusOK,
			wantReason: "empty body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invoker, server := newTestInvoker(t, tt.handler)

			got, err := invoker.FetchBinary(context.Background(), server.URL+"/reports/invoices/pdf")
			if tt.wantErr {
				require.Error(t, err)
				var uce *domain.UnexpectedContentError
				require.True(t, errors.As(err, &uce))
				assert.Equal(t, tt.wantStatus, uce.StatusCode)
				assert.Equal(t, tt.wantReason, uce.Reason)
				assert.LessOrEqual(t, len(uce.Prefix), 120)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, pdfBytes, got)
		})
	}
}

func TestInvoker_TransportErrors(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL + "/reports/invoices"
	server.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	invoker := httpinvoker.New(nil, logger)

	_, err := invoker.FetchText(context.Background(), url)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTransport))

	_, err = invoker.FetchBinary(context.Background(), url)
	assert.True(t, errors.Is(err, domain.ErrTransport))

	_, err = invoker.FetchText(context.Background(), "://bad url")
	assert.True(t, errors.Is(err, domain.ErrTransport))
}

func TestInvoker_HonorsContextDeadline(t *testing.T) {
	invoker, server := newTestInvoker(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := invoker.FetchText(ctx, server.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTransport))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestLooksLikeHTML(t *testing.T) {
	assert.True(t, httpinvoker.LooksLikeHTML([]byte("\xef\xbb\xbf<!DOCTYPE HTML PUBLIC>")))
	assert.True(t, httpinvoker.LooksLikeHTML([]byte("   <HTML>")))
	assert.True(t, httpinvoker.LooksLikeHTML([]byte("HTTP/1.1 502 Bad Gateway")))
	assert.False(t, httpinvoker.LooksLikeHTML(pdfBytes))
	assert.False(t, httpinvoker.LooksLikeHTML([]byte(`{"data":"<html>"}`)))
	assert.False(t, httpinvoker.LooksLikeHTML(nil))

	long := strings.Repeat(" ", 130) + "<html>"
	assert.False(t, httpinvoker.LooksLikeHTML([]byte(long)), "markers past the sniff window are ignored")
}
