package usecase_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/i2y/reportbridge/internal/domain"
)

// backendDoc mirrors the report routes of the point-of-sale backend.
const backendDoc = `{
  "openapi": "3.0.3",
  "info": {"title": "pos-backend", "version": "1"},
  "paths": {
    "/reports/invoices/pdf": {
      "get": {
        "parameters": [
          {"name": "fechaInicio", "in": "query"},
          {"name": "fechaFin", "in": "query"},
          {"name": "estado", "in": "query"}
        ],
        "responses": {"200": {"description": "ok", "content": {"application/pdf": {}}}}
      }
    },
    "/reports/invoices": {
      "get": {
        "parameters": [
          {"name": "fechaInicio", "in": "query"},
          {"name": "fechaFin", "in": "query"},
          {"name": "estado", "in": "query"},
          {"name": "X-Tenant", "in": "header"}
        ],
        "responses": {"200": {"description": "ok", "content": {"application/json": {}}}}
      }
    },
    "/reports/ventas": {
      "get": {
        "parameters": [
          {"name": "desde", "in": "query"},
          {"name": "hasta", "in": "query"},
          {"name": "cajero", "in": "query"}
        ],
        "responses": {"200": {"description": "ok", "content": {"application/json": {}}}}
      }
    },
    "/reports/ventas/pdf": {
      "get": {
        "parameters": [
          {"name": "desde", "in": "query"},
          {"name": "hasta", "in": "query"},
          {"name": "cajero", "in": "query"}
        ],
        "responses": {"200": {"description": "ok", "content": {"application/pdf": {}}}}
      }
    },
    "/cierres-caja": {
      "get": {
        "parameters": [
          {"name": "fechaInicio", "in": "query"},
          {"name": "fechaFin", "in": "query"},
          {"name": "usuario", "in": "query"}
        ],
        "responses": {"200": {"description": "ok", "content": {"application/json": {}}}}
      }
    },
    "/cierres-caja/pdf": {
      "get": {
        "parameters": [{"name": "fechaInicio", "in": "query"}, {"name": "fechaFin", "in": "query"}],
        "responses": {"200": {"description": "ok", "content": {"application/pdf": {}}}}
      }
    },
    "/auth/login": {
      "post": {"responses": {"200": {"description": "ok"}}}
    }
  }
}`

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func loadDoc(t *testing.T, raw string) *domain.APIDocument {
	t.Helper()
	spec, err := openapi3.NewLoader().LoadFromData([]byte(raw))
	require.NoError(t, err)
	return &domain.APIDocument{Source: "http://backend/openapi.json", Format: domain.DocumentFormatOpenAPI3, RawData: []byte(raw), Spec: spec}
}

// MockDocumentSource is a mock implementation of the DocumentSource interface.
type MockDocumentSource struct {
	mock.Mock
}

func (m *MockDocumentSource) Load(ctx context.Context) (*domain.APIDocument, error) {
	args := m.Called(ctx)
	doc, _ := args.Get(0).(*domain.APIDocument) // Handle nil document on error
	return doc, args.Error(1)
}

func (m *MockDocumentSource) URL() string {
	args := m.Called()
	return args.String(0)
}

// staticSource serves a fixed document.
func staticSource(doc *domain.APIDocument) *MockDocumentSource {
	src := new(MockDocumentSource)
	src.On("Load", mock.Anything).Return(doc, nil)
	src.On("URL").Return(doc.Source).Maybe()
	return src
}
