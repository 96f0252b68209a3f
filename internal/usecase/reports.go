package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/i2y/reportbridge/internal/domain"
)

var validate = validator.New()

// ReportFilter carries the caller's filter values. Dates use YYYY-MM-DD.
type ReportFilter struct {
	DateFrom string `json:"date_from,omitempty" schema:"dateFrom" validate:"omitempty,datetime=2006-01-02"`
	DateTo   string `json:"date_to,omitempty" schema:"dateTo" validate:"omitempty,datetime=2006-01-02"`
	Cashier  string `json:"cashier,omitempty" schema:"cashier"`
	Status   string `json:"status,omitempty" schema:"status"`
}

// Validate checks the filter's formats.
func (f ReportFilter) Validate() error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &domain.InvalidInputError{Field: verrs[0].Field(), Err: fmt.Errorf("must be a YYYY-MM-DD date, got %q", verrs[0].Value())}
	}
	return &domain.InvalidInputError{Err: err}
}

// Candidates expands the filter into every query spelling the backend is
// known to accept. The route's declared parameters decide which survive.
func (f ReportFilter) Candidates() []domain.Param {
	return []domain.Param{
		domain.P("fechaInicio", f.DateFrom),
		domain.P("fechaFin", f.DateTo),
		domain.P("desde", f.DateFrom),
		domain.P("hasta", f.DateTo),
		domain.P("startDate", f.DateFrom),
		domain.P("endDate", f.DateTo),
		domain.P("from", f.DateFrom),
		domain.P("to", f.DateTo),
		domain.P("cajero", f.Cashier),
		domain.P("usuario", f.Cashier),
		domain.P("cashier", f.Cashier),
		domain.P("estado", f.Status),
		domain.P("status", f.Status),
	}
}

// Report names a report and the logical keys of its JSON and PDF routes.
type Report struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	JSONKey     string `json:"json_key"`
	PDFKey      string `json:"pdf_key,omitempty"`
}

// Built-in reports, keyed by name.
var builtinReports = map[string]Report{
	"invoices":      {Name: "invoices", Description: "Invoices issued in a date range", JSONKey: KeyInvoices, PDFKey: KeyInvoicesPDF},
	"sales":         {Name: "sales", Description: "Sales in a date range", JSONKey: KeySales, PDFKey: KeySalesPDF},
	"cash-closings": {Name: "cash-closings", Description: "Cash register closings in a date range", JSONKey: KeyCashClosings, PDFKey: KeyCashClosingsPDF},
}

// ReportNames returns the built-in report names in sorted order.
func ReportNames() []string {
	names := make([]string, 0, len(builtinReports))
	for name := range builtinReports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ErrUnknownReport is returned for report names that are not registered.
var ErrUnknownReport = errors.New("unknown report")

// ReportService is the facade: one method per report, each composing
// resolve, project and dispatch.
type ReportService struct {
	apiBase    string
	resolver   *RouteResolver
	projector  *QueryProjector
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewReportService creates the facade. apiBase is the root resolved paths are mounted under.
func NewReportService(apiBase string, resolver *RouteResolver, projector *QueryProjector, dispatcher Dispatcher, logger *slog.Logger) *ReportService {
	return &ReportService{
		apiBase:    apiBase,
		resolver:   resolver,
		projector:  projector,
		dispatcher: dispatcher,
		logger:     logger.With("component", "report_service"),
	}
}

// Reports lists the built-in reports sorted by name.
func (s *ReportService) Reports() []Report {
	out := make([]Report, 0, len(builtinReports))
	for _, name := range ReportNames() {
		out = append(out, builtinReports[name])
	}
	return out
}

// Lookup returns the built-in report with the given name.
func (s *ReportService) Lookup(name string) (Report, error) {
	r, ok := builtinReports[name]
	if !ok {
		return Report{}, fmt.Errorf("%w: %s", ErrUnknownReport, name)
	}
	return r, nil
}

// Invoices returns the invoices report rows.
func (s *ReportService) Invoices(ctx context.Context, dateFrom, dateTo, cashierName, status string) ([]domain.Row, error) {
	return s.Run(ctx, "invoices", ReportFilter{DateFrom: dateFrom, DateTo: dateTo, Cashier: cashierName, Status: status})
}

// InvoicesPDF returns the invoices report as a PDF document.
func (s *ReportService) InvoicesPDF(ctx context.Context, dateFrom, dateTo, cashierName, status string) ([]byte, error) {
	return s.RunPDF(ctx, "invoices", ReportFilter{DateFrom: dateFrom, DateTo: dateTo, Cashier: cashierName, Status: status})
}

// Sales returns the sales report rows.
func (s *ReportService) Sales(ctx context.Context, dateFrom, dateTo, cashierName string) ([]domain.Row, error) {
	return s.Run(ctx, "sales", ReportFilter{DateFrom: dateFrom, DateTo: dateTo, Cashier: cashierName})
}

// SalesPDF returns the sales report as a PDF document.
func (s *ReportService) SalesPDF(ctx context.Context, dateFrom, dateTo, cashierName string) ([]byte, error) {
	return s.RunPDF(ctx, "sales", ReportFilter{DateFrom: dateFrom, DateTo: dateTo, Cashier: cashierName})
}

// CashClosings returns the cash register closings rows.
func (s *ReportService) CashClosings(ctx context.Context, dateFrom, dateTo, cashierName string) ([]domain.Row, error) {
	return s.Run(ctx, "cash-closings", ReportFilter{DateFrom: dateFrom, DateTo: dateTo, Cashier: cashierName})
}

// CashClosingsPDF returns the cash register closings as a PDF document.
func (s *ReportService) CashClosingsPDF(ctx context.Context, dateFrom, dateTo, cashierName string) ([]byte, error) {
	return s.RunPDF(ctx, "cash-closings", ReportFilter{DateFrom: dateFrom, DateTo: dateTo, Cashier: cashierName})
}

// Run executes the JSON variant of a named report.
func (s *ReportService) Run(ctx context.Context, name string, filter ReportFilter) ([]domain.Row, error) {
	report, err := s.Lookup(name)
	if err != nil {
		return nil, err
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return s.Report(ctx, report.JSONKey, filter.Candidates())
}

// RunPDF executes the PDF variant of a named report.
func (s *ReportService) RunPDF(ctx context.Context, name string, filter ReportFilter) ([]byte, error) {
	report, err := s.Lookup(name)
	if err != nil {
		return nil, err
	}
	if report.PDFKey == "" {
		return nil, fmt.Errorf("%w: %s has no PDF variant", ErrUnknownReport, name)
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return s.ReportPDF(ctx, report.PDFKey, filter.Candidates())
}

// Report resolves key, projects candidates onto the route and returns the
// rows of the JSON response.
func (s *ReportService) Report(ctx context.Context, key string, candidates []domain.Param) ([]domain.Row, error) {
	log := s.logger.With(slog.String("key", key))

	target, err := s.target(ctx, key, candidates)
	if err != nil {
		return nil, err
	}

	body, err := s.dispatcher.FetchText(ctx, target)
	if err != nil {
		log.Error("Report fetch failed", slog.String("url", target), slog.Any("error", err))
		return nil, fmt.Errorf("report %s: %w", key, err)
	}

	rows, perr := ParseRows([]byte(body))
	if perr != nil {
		log.Debug("Response did not match a known envelope, returning no rows", slog.Any("error", perr))
		return []domain.Row{}, nil
	}
	log.Info("Report fetched", slog.Int("rows", len(rows)))
	return rows, nil
}

// ReportPDF resolves key, projects candidates and downloads the binary artifact.
func (s *ReportService) ReportPDF(ctx context.Context, key string, candidates []domain.Param) ([]byte, error) {
	log := s.logger.With(slog.String("key", key))

	target, err := s.target(ctx, key, candidates)
	if err != nil {
		return nil, err
	}

	data, err := s.dispatcher.FetchBinary(ctx, target)
	if err != nil {
		log.Error("Report download failed", slog.String("url", target), slog.Any("error", err))
		return nil, fmt.Errorf("report %s: %w", key, err)
	}
	log.Info("Report downloaded", slog.Int("bytes", len(data)))
	return data, nil
}

func (s *ReportService) target(ctx context.Context, key string, candidates []domain.Param) (string, error) {
	route, err := s.resolver.Resolve(ctx, key)
	if err != nil {
		return "", err
	}
	query, err := s.projector.Project(ctx, route.Path, route.Method, candidates)
	if err != nil {
		return "", err
	}
	return BuildURL(s.apiBase, route.Path, query), nil
}
