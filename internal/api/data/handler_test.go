package data

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cloakedsheets/internal/connector"
	"cloakedsheets/internal/conversation"
	"cloakedsheets/internal/domain"
)

// countingClient counts catalog fetches so cache behavior is observable.
type countingClient struct {
	connector.Client
	catalogCalls atomic.Int64
}

func (c *countingClient) GetDatasetCatalog(ctx context.Context, datasetID string) (*domain.DatasetCatalog, error) {
	c.catalogCalls.Add(1)
	return c.Client.GetDatasetCatalog(ctx, datasetID)
}

func newCatalogRouter(t *testing.T) (*gin.Engine, *Handler, *countingClient) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	client := &countingClient{Client: connector.NewMockClient()}
	processor := conversation.NewProcessor(client, nil, nil, nil, zap.NewNop(), "c-1", "demo-sales")
	handler := NewHandler(client, processor, nil, nil, zap.NewNop())

	router := gin.New()
	handler.RegisterRoutes(router.Group("/datasets"), router.Group("/reports"))
	return router, handler, client
}

func getCatalog(t *testing.T, router *gin.Engine) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/datasets/demo-sales/catalog", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func TestHandler_CatalogServedFromCache(t *testing.T) {
	router, _, client := newCatalogRouter(t)

	require.Equal(t, http.StatusOK, getCatalog(t, router))
	require.Equal(t, http.StatusOK, getCatalog(t, router))

	assert.Equal(t, int64(1), client.catalogCalls.Load())
}

func TestHandler_InvalidateCatalogsForcesRefetch(t *testing.T) {
	router, handler, client := newCatalogRouter(t)

	require.Equal(t, http.StatusOK, getCatalog(t, router))
	require.Equal(t, int64(1), client.catalogCalls.Load())

	// A connector disconnect flushes the cache; the next read hits the
	// connector again.
	handler.InvalidateCatalogs()

	require.Equal(t, http.StatusOK, getCatalog(t, router))
	assert.Equal(t, int64(2), client.catalogCalls.Load())
}
