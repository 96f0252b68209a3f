package domain

import "github.com/getkin/kin-openapi/openapi3"

// ResolvedRoute is the concrete route a logical operation key maps to.
type ResolvedRoute struct {
	// Key is the logical operation key, e.g. "invoices.get".
	Key    string `json:"key"`
	Path   string `json:"path"`
	Method string `json:"method"`
	// Strategy names the finder that produced the route ("operation_id" or "heuristic").
	Strategy string `json:"strategy,omitempty"`

	// Operation points into the APIDocument the route was resolved from.
	Operation *openapi3.Operation `json:"-"`
}

// Param is one candidate query parameter. Candidates are passed as an
// ordered slice so projection can preserve insertion order.
type Param struct {
	Key   string
	Value string
}

// P is shorthand for building a Param.
func P(key, value string) Param {
	return Param{Key: key, Value: value}
}
