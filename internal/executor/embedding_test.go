package executor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randcorp/docscope/internal/apierr"
)

func TestEmbeddingClient_Embed_ParsesOpenAICompatibleResponse(t *testing.T) {
	var gotBody embedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(embedResponse{Data: []struct {
			Embedding []float32 `json:"embedding"`
		}{{Embedding: []float32{0.1, 0.2, 0.3}}}})
	}))
	defer srv.Close()

	client := NewEmbeddingClient(srv.URL, "test-key", "text-embedding-3-small", 3, 2*time.Second, time.Hour, 100)
	vec, err := client.Embed(context.Background(), "hello world")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, []string{"hello world"}, gotBody.Input)
	assert.Equal(t, "text-embedding-3-small", gotBody.Model)
}

func TestEmbeddingClient_Embed_SendsBearerAuthHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(embedResponse{Data: []struct {
			Embedding []float32 `json:"embedding"`
		}{{Embedding: []float32{0.1}}}})
	}))
	defer srv.Close()

	client := NewEmbeddingClient(srv.URL, "s3cr3t-key", "a-model", 1, 2*time.Second, time.Hour, 100)
	_, err := client.Embed(context.Background(), "auth check")

	require.NoError(t, err)
	assert.Equal(t, "Bearer s3cr3t-key", gotAuth)
}

func TestEmbeddingClient_Embed_CachesSecondCall(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(embedResponse{Data: []struct {
			Embedding []float32 `json:"embedding"`
		}{{Embedding: []float32{1, 2}}}})
	}))
	defer srv.Close()

	client := NewEmbeddingClient(srv.URL, "test-key", "text-embedding-3-small", 2, 2*time.Second, time.Hour, 100)
	ctx := context.Background()

	_, err := client.Embed(ctx, "repeat me")
	require.NoError(t, err)
	_, err = client.Embed(ctx, "repeat me")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}

func TestEmbeddingClient_Embed_PermanentFailureReturnsEmbeddingServiceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewEmbeddingClient(srv.URL, "test-key", "text-embedding-3-small", 2, 2*time.Second, time.Hour, 100)
	_, err := client.Embed(context.Background(), "bad request")

	require.Error(t, err)
	apiErr, ok := err.(*apierr.Error)
	require.True(t, ok)
	assert.Equal(t, apierr.CodeEmbeddingServiceUnavailable, apiErr.Code)
}
