package domain

import "strings"

// Matcher decides whether a declared route satisfies a logical operation.
// Matchers are composed with And, Or and Not; there is no expression grammar.
type Matcher func(doc *APIDocument, path, method string) bool

// PathContainsAny reports whether path contains any of the keywords,
// ignoring case.
func PathContainsAny(path string, keywords ...string) bool {
	lower := strings.ToLower(path)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// PathContainsAll reports whether path contains every keyword, ignoring case.
// An empty keyword list never matches.
func PathContainsAll(path string, keywords ...string) bool {
	if len(keywords) == 0 {
		return false
	}
	lower := strings.ToLower(path)
	for _, kw := range keywords {
		if !strings.Contains(lower, strings.ToLower(kw)) {
			return false
		}
	}
	return true
}

// DeclaresParams reports whether the operation declares a query parameter
// for every given name.
func DeclaresParams(doc *APIDocument, path, method string, names ...string) bool {
	if len(names) == 0 {
		return false
	}
	declared := queryNameSet(doc, path, method)
	for _, n := range names {
		if _, ok := declared[n]; !ok {
			return false
		}
	}
	return true
}

// DeclaresAnyParam reports whether the operation declares a query parameter
// for at least one of the given names.
func DeclaresAnyParam(doc *APIDocument, path, method string, names ...string) bool {
	declared := queryNameSet(doc, path, method)
	for _, n := range names {
		if _, ok := declared[n]; ok {
			return true
		}
	}
	return false
}

// ProducesBinary reports whether any declared response of the operation
// lists mediaType among its content types.
func ProducesBinary(doc *APIDocument, path, method, mediaType string) bool {
	want := normalizeMediaType(mediaType)
	for _, mt := range doc.ResponseMediaTypes(path, method) {
		if mt == want {
			return true
		}
	}
	return false
}

func queryNameSet(doc *APIDocument, path, method string) map[string]struct{} {
	names := doc.QueryParameterNames(path, method)
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// PathAny adapts PathContainsAny into a Matcher.
func PathAny(keywords ...string) Matcher {
	return func(_ *APIDocument, path, _ string) bool {
		return PathContainsAny(path, keywords...)
	}
}

// PathAll adapts PathContainsAll into a Matcher.
func PathAll(keywords ...string) Matcher {
	return func(_ *APIDocument, path, _ string) bool {
		return PathContainsAll(path, keywords...)
	}
}

// HasParams adapts DeclaresParams into a Matcher.
func HasParams(names ...string) Matcher {
	return func(doc *APIDocument, path, method string) bool {
		return DeclaresParams(doc, path, method, names...)
	}
}

// HasAnyParam adapts DeclaresAnyParam into a Matcher.
func HasAnyParam(names ...string) Matcher {
	return func(doc *APIDocument, path, method string) bool {
		return DeclaresAnyParam(doc, path, method, names...)
	}
}

// Produces adapts ProducesBinary into a Matcher.
func Produces(mediaType string) Matcher {
	return func(doc *APIDocument, path, method string) bool {
		return ProducesBinary(doc, path, method, mediaType)
	}
}

// And matches when every matcher matches.
func And(ms ...Matcher) Matcher {
	return func(doc *APIDocument, path, method string) bool {
		for _, m := range ms {
			if !m(doc, path, method) {
				return false
			}
		}
		return true
	}
}

// Or matches when at least one matcher matches.
func Or(ms ...Matcher) Matcher {
	return func(doc *APIDocument, path, method string) bool {
		for _, m := range ms {
			if m(doc, path, method) {
				return true
			}
		}
		return false
	}
}

// Not inverts a matcher.
func Not(m Matcher) Matcher {
	return func(doc *APIDocument, path, method string) bool {
		return !m(doc, path, method)
	}
}
