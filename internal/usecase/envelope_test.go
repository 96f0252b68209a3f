package usecase_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/reportbridge/internal/domain"
	"github.com/i2y/reportbridge/internal/usecase"
)

const invoiceRows = `[{"numero":"F-001","total":125.5},{"numero":"F-002","total":80}]`

func TestExtractRows_FallbackChainAgrees(t *testing.T) {
	bodies := map[string]string{
		"paged":           `{"success":true,"message":"ok","data":{"items":` + invoiceRows + `,"total":2}}`,
		"data":            `{"success":true,"data":` + invoiceRows + `}`,
		"bare":            invoiceRows,
		"padded":          "\n\t " + invoiceRows + "\n",
		"no flags":        `{"data":` + invoiceRows + `}`,
		"string success":  `{"success":"true","data":` + invoiceRows + `}`,
		"object message":  `{"success":true,"message":{"code":1},"data":` + invoiceRows + `}`,
		"numeric success": `{"success":1,"data":{"items":` + invoiceRows + `}}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			rows := usecase.ExtractRows(body)
			require.Len(t, rows, 2)
			assert.Equal(t, []string{"numero", "total"}, rows[0].Keys())

			numero, err := rows[1].GetString("numero")
			require.NoError(t, err)
			assert.Equal(t, "F-002", numero)

			total, err := rows[0].GetNumber("total")
			require.NoError(t, err)
			assert.InDelta(t, 125.5, total, 1e-9)
		})
	}
}

func TestExtractRows_DegradesToEmpty(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "data object without items", body: `{"data":{}}`},
		{name: "items not an array", body: `{"data":{"items":{"a":1}}}`},
		{name: "items null", body: `{"data":{"items":null}}`},
		{name: "empty array", body: `{"data":[]}`},
		{name: "failure envelope", body: `{"success":false,"message":"sin permisos"}`},
		{name: "data is a string", body: `{"data":"nope"}`},
		{name: "scalar body", body: `"ok"`},
		{name: "empty body", body: ""},
		{name: "malformed json", body: `{"data":[{"a":1}`},
		{name: "html", body: "<html><body>error</body></html>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := usecase.ExtractRows(tt.body)
			assert.NotNil(t, rows)
			assert.Empty(t, rows)
		})
	}
}

func TestParseRows_ReportsReason(t *testing.T) {
	_, err := usecase.ParseRows([]byte(`{"success":false}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEnvelopeParse))

	rows, err := usecase.ParseRows([]byte(`{"data":{}}`))
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = usecase.ParseRows([]byte(`[{"a":1}, 2, "x", {"b":2}]`))
	require.NoError(t, err)
	require.Len(t, rows, 2, "non-object elements are skipped")
	assert.Equal(t, []string{"b"}, rows[1].Keys())
}
