package usecase

import (
	"bytes"
	"encoding/json"

	"github.com/i2y/reportbridge/internal/domain"
)

// ExtractRows returns the report rows carried by body. Bodies are usually
// wrapped as {success, message, data}. It recognizes, in order: {"data":{"items":[...]}}, {"data":[...]} and a bare [...]. Anything
// else yields an empty list.
func ExtractRows(body string) []domain.Row {
	rows, err := ParseRows([]byte(body))
	if err != nil {
		return []domain.Row{}
	}
	return rows
}

// ParseRows is ExtractRows with the reason for an unrecognized body
// reported as an *domain.EnvelopeParseError.
func ParseRows(body []byte) ([]domain.Row, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, &domain.EnvelopeParseError{Reason: "empty body"}
	}

	switch trimmed[0] {
	case '[':
		return decodeRows(trimmed)
	case '{':
		// Only data matters; success and message vary in type between endpoints.
		var env map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, &domain.EnvelopeParseError{Reason: "malformed object", Err: err}
		}
		data := bytes.TrimSpace(env["data"])
		if len(data) == 0 || bytes.Equal(data, []byte("null")) {
			return nil, &domain.EnvelopeParseError{Reason: "no data field"}
		}
		switch data[0] {
		case '{':
			var page struct {
				Items json.RawMessage `json:"items"`
			}
			if err := json.Unmarshal(data, &page); err != nil {
				return nil, &domain.EnvelopeParseError{Reason: "malformed data object", Err: err}
			}
			items := bytes.TrimSpace(page.Items)
			if len(items) == 0 || items[0] != '[' {
				return []domain.Row{}, nil
			}
			return decodeRows(items)
		case '[':
			return decodeRows(data)
		}
		return nil, &domain.EnvelopeParseError{Reason: "data is neither object nor array"}
	}
	return nil, &domain.EnvelopeParseError{Reason: "body is neither object nor array"}
}

// decodeRows decodes a JSON array, skipping elements that are not objects.
func decodeRows(arr []byte) ([]domain.Row, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(arr, &elems); err != nil {
		return nil, &domain.EnvelopeParseError{Reason: "malformed array", Err: err}
	}
	rows := make([]domain.Row, 0, len(elems))
	for _, e := range elems {
		var row domain.Row
		if err := json.Unmarshal(e, &row); err != nil {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}
