package mcptools_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpGoServer "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/reportbridge/internal/adapter/inbound/mcptools"
	"github.com/i2y/reportbridge/internal/adapter/outbound/httpinvoker"
	"github.com/i2y/reportbridge/internal/adapter/outbound/memrepo"
	"github.com/i2y/reportbridge/internal/adapter/outbound/openapi"
	"github.com/i2y/reportbridge/internal/usecase"
)

const salesDoc = `{
  "openapi": "3.0.3",
  "info": {"title": "pos-backend", "version": "1"},
  "paths": {
    "/ventas": {
      "get": {
        "parameters": [{"name": "desde", "in": "query"}, {"name": "hasta", "in": "query"}, {"name": "cajero", "in": "query"}],
        "responses": {"200": {"description": "ok", "content": {"application/json": {}}}}
      }
    }
  }
}`

// recordingServer captures registered tools.
type recordingServer struct {
	tools    []mcp.Tool
	handlers map[string]mcpGoServer.ToolHandlerFunc
}

func (s *recordingServer) AddTool(tool mcp.Tool, handler mcpGoServer.ToolHandlerFunc) {
	if s.handlers == nil {
		s.handlers = make(map[string]mcpGoServer.ToolHandlerFunc)
	}
	s.tools = append(s.tools, tool)
	s.handlers[tool.Name] = handler
}

func newReports(t *testing.T) (*usecase.ReportService, *string) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var lastQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(salesDoc))
	})
	mux.HandleFunc("/ventas", func(w http.ResponseWriter, r *http.Request) {
		lastQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"items":[{"ticket":"T-1","total":"9.90"}]}}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	documents := openapi.NewDocumentCache(server.Client(), openapi.DocumentCacheConfig{Source: server.URL + "/openapi.json"}, logger)
	resolver := usecase.NewRouteResolver(documents, memrepo.NewInMemoryRouteRepository(logger), usecase.DefaultCatalog(), logger)
	reports := usecase.NewReportService(server.URL, resolver, usecase.NewQueryProjector(documents, logger), httpinvoker.New(server.Client(), logger), logger)
	return reports, &lastQuery
}

func callTool(t *testing.T, handler mcpGoServer.ToolHandlerFunc, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	return result
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func TestRegister(t *testing.T) {
	reports, _ := newReports(t)
	srv := &recordingServer{}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	names := mcptools.Register(srv, reports, logger)
	assert.Equal(t, []string{"report_cash_closings", "report_invoices", "report_sales"}, names)
	require.Len(t, srv.tools, 3)
	for _, tool := range srv.tools {
		assert.NotEmpty(t, tool.Description)
		assert.Contains(t, tool.InputSchema.Properties, "date_from")
		assert.Contains(t, tool.InputSchema.Properties, "status")
	}

	// The real mcp-go server accepts the same registrations.
	mcptools.Register(mcpGoServer.NewMCPServer("reportbridge-test", "0.0.0"), reports, logger)
}

func TestHandler_Success(t *testing.T) {
	reports, lastQuery := newReports(t)
	srv := &recordingServer{}
	mcptools.Register(srv, reports, slog.New(slog.NewTextHandler(os.Stderr, nil)))

	result := callTool(t, srv.handlers["report_sales"], map[string]any{
		"date_from": "2024-05-01",
		"date_to":   "2024-05-31",
		"cashier":   " Maria ",
		"status":    "Activas",
	})
	assert.False(t, result.IsError)
	assert.JSONEq(t, `[{"ticket":"T-1","total":"9.90"}]`, textOf(t, result))
	assert.Equal(t, "desde=2024-05-01&hasta=2024-05-31&cajero=Maria", *lastQuery)
}

func TestHandler_Failures(t *testing.T) {
	reports, _ := newReports(t)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	tests := []struct {
		name     string
		report   string
		args     map[string]any
		contains string
	}{
		{name: "invalid date", report: "sales", args: map[string]any{"date_from": "yesterday"}, contains: "invalid input"},
		{name: "route missing from document", report: "invoices", args: map[string]any{}, contains: "no route for operation"},
		{name: "unknown report", report: "payroll", args: nil, contains: "unknown report"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, mcptools.Handler(reports, tt.report, logger), tt.args)
			assert.True(t, result.IsError)
			assert.Contains(t, textOf(t, result), tt.contains)
		})
	}
}

func TestToolName(t *testing.T) {
	assert.Equal(t, "report_cash_closings", mcptools.ToolName("cash-closings"))
	assert.Equal(t, "report_sales", mcptools.ToolName("sales"))
}
