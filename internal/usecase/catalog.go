package usecase

import (
	"net/http"
	"sort"
	"sync"

	"github.com/i2y/reportbridge/internal/domain"
)

// MediaTypePDF is the content type PDF-producing routes declare.
const MediaTypePDF = "application/pdf"

// Logical operation keys known to the default catalog.
const (
	KeyInvoices        = "invoices.get"
	KeyInvoicesPDF     = "invoices.pdf"
	KeySales           = "sales.get"
	KeySalesPDF        = "sales.pdf"
	KeyCashClosings    = "cashclosings.get"
	KeyCashClosingsPDF = "cashclosings.pdf"
)

// Query parameter spellings the backend is known to use for date ranges.
var dateRangeParams = []string{"fechaInicio", "fechaFin", "desde", "hasta", "startDate", "endDate", "from", "to"}

// OperationSpec describes how to find the route of one logical operation.
type OperationSpec struct {
	Key         string
	Method      string
	Description string
	// OperationID, when set, is tried before the heuristic matcher.
	OperationID string
	// Match is the predicate evaluated against each declared path.
	Match domain.Matcher
}

// Catalog maps logical operation keys to their specs.
type Catalog struct {
	mu    sync.RWMutex
	specs map[string]OperationSpec
}

// NewCatalog creates a catalog holding the given specs.
func NewCatalog(specs ...OperationSpec) *Catalog {
	c := &Catalog{specs: make(map[string]OperationSpec, len(specs))}
	for _, s := range specs {
		c.Register(s)
	}
	return c
}

// Register adds or replaces a spec. An empty method defaults to GET.
func (c *Catalog) Register(spec OperationSpec) {
	if spec.Method == "" {
		spec.Method = http.MethodGet
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.specs[spec.Key] = spec
}

// Lookup returns the spec for key.
func (c *Catalog) Lookup(key string) (OperationSpec, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.specs[key]
	return s, ok
}

// SetOperationID pins a key to an explicit operationId. It returns false
// for unknown keys.
func (c *Catalog) SetOperationID(key, operationID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.specs[key]
	if !ok {
		return false
	}
	s.OperationID = operationID
	c.specs[key] = s
	return true
}

// Keys returns the registered keys in sorted order.
func (c *Catalog) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.specs))
	for k := range c.specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// jsonReport matches the plain JSON route of a report: the path names the
// resource, is not a PDF variant, and accepts a date range. Routes without a
// date filter only resolve through an operationId override.
func jsonReport(keywords ...string) domain.Matcher {
	return domain.And(
		domain.PathAny(keywords...),
		domain.Not(domain.PathAny("pdf")),
		domain.HasAnyParam(dateRangeParams...),
	)
}

// pdfReport matches the PDF-producing variant of a report.
func pdfReport(keywords ...string) domain.Matcher {
	return domain.And(
		domain.PathAny(keywords...),
		domain.Produces(MediaTypePDF),
	)
}

// DefaultCatalog returns the operations the report facade relies on.
func DefaultCatalog() *Catalog {
	invoice := []string{"invoice", "factura"}
	sales := []string{"sales", "venta"}
	closings := []string{"cierre", "cash-closing", "cashclosing", "closing"}

	return NewCatalog(
		OperationSpec{Key: KeyInvoices, Description: "Invoices issued in a date range", Match: jsonReport(invoice...)},
		OperationSpec{Key: KeyInvoicesPDF, Description: "Invoices report as PDF", Match: pdfReport(invoice...)},
		OperationSpec{Key: KeySales, Description: "Sales in a date range", Match: jsonReport(sales...)},
		OperationSpec{Key: KeySalesPDF, Description: "Sales report as PDF", Match: pdfReport(sales...)},
		OperationSpec{Key: KeyCashClosings, Description: "Cash register closings in a date range", Match: jsonReport(closings...)},
		OperationSpec{Key: KeyCashClosingsPDF, Description: "Cash register closings as PDF", Match: pdfReport(closings...)},
	)
}
