package domain

import (
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// DocumentFormat identifies the dialect the API description was written in.
type DocumentFormat string

const (
	DocumentFormatOpenAPI3 DocumentFormat = "openapi3"
	DocumentFormatSwagger2 DocumentFormat = "swagger2" // converted to OpenAPI 3 on load
)

// APIDocument is the parsed API description of the remote service.
// It is immutable once loaded and shared by every resolution in the process.
type APIDocument struct {
	// Source is the URL, file path or github:// location the document came from.
	Source string
	// Format records the dialect of RawData.
	Format DocumentFormat
	// RawData holds the unprocessed document bytes.
	RawData []byte
	// Spec is the parsed route table. Swagger 2.0 input is converted to OpenAPI 3.
	Spec *openapi3.T
}

// Parameter is a flattened view of one declared operation parameter.
type Parameter struct {
	Name     string
	In       string
	Required bool
}

// Paths returns every declared route path, shortest first.
// Paths of equal length are ordered lexicographically so that the result
// does not depend on map iteration order.
func (d *APIDocument) Paths() []string {
	if d == nil || d.Spec == nil || d.Spec.Paths == nil {
		return nil
	}
	paths := make([]string, 0, d.Spec.Paths.Len())
	for p := range d.Spec.Paths.Map() {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool {
		if len(paths[i]) != len(paths[j]) {
			return len(paths[i]) < len(paths[j])
		}
		return paths[i] < paths[j]
	})
	return paths
}

// Operation returns the operation declared for method on path, or nil.
func (d *APIDocument) Operation(path, method string) *openapi3.Operation {
	item := d.pathItem(path)
	if item == nil {
		return nil
	}
	return item.GetOperation(strings.ToUpper(method))
}

// Parameters returns the parameters of an operation, merging path-level
// parameters with operation-level ones. Operation-level declarations win
// when both declare the same (name, in) pair. Order follows the document:
// path-level first, then operation-level.
func (d *APIDocument) Parameters(path, method string) []Parameter {
	item := d.pathItem(path)
	if item == nil {
		return nil
	}
	op := item.GetOperation(strings.ToUpper(method))
	if op == nil {
		return nil
	}

	type key struct{ name, in string }
	var params []Parameter
	index := make(map[key]int)
	add := func(refs openapi3.Parameters) {
		for _, ref := range refs {
			if ref == nil || ref.Value == nil {
				continue
			}
			p := Parameter{Name: ref.Value.Name, In: ref.Value.In, Required: ref.Value.Required}
			k := key{p.Name, p.In}
			if i, ok := index[k]; ok {
				params[i] = p
				continue
			}
			index[k] = len(params)
			params = append(params, p)
		}
	}
	add(item.Parameters)
	add(op.Parameters)
	return params
}

// QueryParameterNames returns the names of the declared query parameters
// of an operation in declaration order.
func (d *APIDocument) QueryParameterNames(path, method string) []string {
	var names []string
	for _, p := range d.Parameters(path, method) {
		if p.In == openapi3.ParameterInQuery {
			names = append(names, p.Name)
		}
	}
	return names
}

// ResponseMediaTypes returns every media type declared by any response of
// the operation, lower-cased and without parameters.
func (d *APIDocument) ResponseMediaTypes(path, method string) []string {
	op := d.Operation(path, method)
	if op == nil || op.Responses == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var types []string
	for _, ref := range op.Responses.Map() {
		if ref == nil || ref.Value == nil {
			continue
		}
		for mt := range ref.Value.Content {
			norm := normalizeMediaType(mt)
			if _, ok := seen[norm]; ok {
				continue
			}
			seen[norm] = struct{}{}
			types = append(types, norm)
		}
	}
	sort.Strings(types)
	return types
}

// FindOperationID returns the path and method of the operation carrying the
// given operationId.
func (d *APIDocument) FindOperationID(operationID string) (string, string, bool) {
	for _, p := range d.Paths() {
		item := d.pathItem(p)
		if item == nil {
			continue
		}
		methods := make([]string, 0, 8)
		for m := range item.Operations() {
			methods = append(methods, m)
		}
		sort.Strings(methods)
		for _, m := range methods {
			if op := item.GetOperation(m); op != nil && op.OperationID == operationID {
				return p, m, true
			}
		}
	}
	return "", "", false
}

func (d *APIDocument) pathItem(path string) *openapi3.PathItem {
	if d == nil || d.Spec == nil || d.Spec.Paths == nil {
		return nil
	}
	return d.Spec.Paths.Value(path)
}

func normalizeMediaType(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
