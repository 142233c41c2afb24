package connector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cloakedsheets/internal/domain"
)

func TestHTTPClient_ChatRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/chat", r.URL.Path)

		var req domain.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ds-1", req.DatasetID)
		assert.Equal(t, "show revenue", req.Message)
		assert.True(t, req.PrivacyMode)

		json.NewEncoder(w).Encode(domain.ChatResponse{
			Type:     domain.KindNeedsClarification,
			Question: "Which period?",
			Choices:  []string{"last_7_days"},
			Intent:   "set_time_period",
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, 5*time.Second, zap.NewNop())
	resp, err := client.SendChatMessage(context.Background(), domain.ChatRequest{
		DatasetID:   "ds-1",
		Message:     "show revenue",
		PrivacyMode: true,
	})
	require.NoError(t, err)

	ev, err := resp.Event()
	require.NoError(t, err)
	clarification, ok := ev.(domain.NeedsClarification)
	require.True(t, ok)
	assert.Equal(t, "Which period?", clarification.Question)
}

func TestHTTPClient_NormalizesBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"unknown dataset"}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, 5*time.Second, zap.NewNop())
	_, err := client.GetDatasetCatalog(context.Background(), "nope")
	require.Error(t, err)

	apiErr, ok := domain.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "unknown dataset", apiErr.Message)
	assert.Equal(t, http.MethodGet, apiErr.Method)
	assert.Contains(t, apiErr.URL, "/datasets/nope/catalog")
}

func TestHTTPClient_NormalizesTransportError(t *testing.T) {
	client := NewHTTPClient("http://127.0.0.1:1", 100*time.Millisecond, zap.NewNop())
	_, err := client.CheckHealth(context.Background())
	require.Error(t, err)

	apiErr, ok := domain.AsAPIError(err)
	require.True(t, ok)
	assert.Zero(t, apiErr.Status)
	assert.NotEmpty(t, apiErr.Message)
}

func TestHTTPClient_ExecuteQueries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/queries/execute", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"results": []domain.QueryResult{
				{Name: "q1", Columns: []string{"a"}, Rows: [][]any{{"x"}}},
			},
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, 5*time.Second, zap.NewNop())
	results, err := client.ExecuteQueries(context.Background(), "ds-1",
		[]domain.Query{{Name: "q1", SQL: "SELECT 1"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "q1", results[0].Name)
}

func TestHTTPClient_DecodeFailureIsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, 5*time.Second, zap.NewNop())
	_, err := client.CheckHealth(context.Background())
	require.Error(t, err)

	apiErr, ok := domain.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, apiErr.Status)
	assert.Contains(t, apiErr.Message, "decode response")
}
