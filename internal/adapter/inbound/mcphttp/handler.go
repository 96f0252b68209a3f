package mcphttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/schema"

	"github.com/i2y/reportbridge/internal/domain"
	"github.com/i2y/reportbridge/internal/usecase"
)

var schemaDecoder = schema.NewDecoder()

func init() {
	schemaDecoder.IgnoreUnknownKeys(true)
}

// DocumentResetter drops a memoized API document.
type DocumentResetter interface {
	Reset()
}

// Handlers struct holds dependencies for the HTTP handlers.
type Handlers struct {
	reports   *usecase.ReportService
	resolver  *usecase.RouteResolver
	documents DocumentResetter
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers struct.
func NewHandlers(
	reports *usecase.ReportService,
	resolver *usecase.RouteResolver,
	documents DocumentResetter,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		reports:   reports,
		resolver:  resolver,
		documents: documents,
		logger:    logger.With("component", "mcphttp_handler"),
	}
}

// RegisterAdminRoutes sets up the HTTP routes for admin endpoints.
func (h *Handlers) RegisterAdminRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin/routes", h.handleListRoutes)
	mux.HandleFunc("POST /admin/resolve", h.handleResolve)
	mux.HandleFunc("POST /admin/reset", h.handleReset)
}

// RegisterReportRoutes sets up the report endpoints.
func (h *Handlers) RegisterReportRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /reports", h.handleListReports)
	mux.HandleFunc("GET /reports/{name}", h.handleReport)
	mux.HandleFunc("GET /reports/{name}/pdf", h.handleReportPDF)
}

// ResolveRequest defines the expected JSON body for the /admin/resolve endpoint.
type ResolveRequest struct {
	Key string `json:"key"`
}

// handleListRoutes implements GET /admin/routes
func (h *Handlers) handleListRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := h.resolver.Routes(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if routes == nil {
		routes = []domain.ResolvedRoute{}
	}
	h.writeJSON(w, http.StatusOK, routes)
}

// handleResolve implements POST /admin/resolve
func (h *Handlers) handleResolve(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode resolve request body", slog.Any("error", err))
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.Key == "" {
		h.logger.Warn("Resolve request missing key field")
		http.Error(w, "Missing 'key' field in request body", http.StatusBadRequest)
		return
	}

	h.logger.Info("Received resolve request", slog.String("key", req.Key))
	route, err := h.resolver.Resolve(r.Context(), req.Key)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, route)
}

// handleReset implements POST /admin/reset
func (h *Handlers) handleReset(w http.ResponseWriter, r *http.Request) {
	if h.documents != nil {
		h.documents.Reset()
	}
	h.resolver.Reset(r.Context())
	h.logger.Info("Document memo and route cache reset")
	w.WriteHeader(http.StatusNoContent)
}

// handleListReports implements GET /reports
func (h *Handlers) handleListReports(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.reports.Reports())
}

// handleReport implements GET /reports/{name}
func (h *Handlers) handleReport(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	filter, ok := h.decodeFilter(w, r)
	if !ok {
		return
	}

	rows, err := h.reports.Run(r.Context(), name, filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rows)
}

// handleReportPDF implements GET /reports/{name}/pdf
func (h *Handlers) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	filter, ok := h.decodeFilter(w, r)
	if !ok {
		return
	}

	data, err := h.reports.RunPDF(r.Context(), name, filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", usecase.MediaTypePDF)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name+".pdf"))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Warn("Failed to write PDF response", slog.Any("error", err))
	}
}

func (h *Handlers) decodeFilter(w http.ResponseWriter, r *http.Request) (usecase.ReportFilter, bool) {
	var filter usecase.ReportFilter
	if err := schemaDecoder.Decode(&filter, r.URL.Query()); err != nil {
		h.logger.Warn("Failed to decode report filter", slog.Any("error", err))
		http.Error(w, fmt.Sprintf("Invalid query: %v", err), http.StatusBadRequest)
		return filter, false
	}
	return filter, true
}

// StatusFor maps a report or resolver error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, usecase.ErrUnknownReport):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrOperationNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSchemaUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrUnexpectedContent), errors.Is(err, domain.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse is the JSON body of a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	h.logger.Error("Request failed",
		slog.String("method", r.Method), slog.String("path", r.URL.Path),
		slog.Int("status", status), slog.Any("error", err))
	h.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("Failed to encode response", slog.Any("error", err))
	}
}
