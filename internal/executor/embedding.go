package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/randcorp/docscope/internal/apierr"
)

// EmbeddingClient calls the external embedding service and caches
// results by a digest of the input text (see cache.go). It retries
// transient failures with exponential backoff before surfacing
// EMBEDDING_SERVICE_UNAVAILABLE, the failure-semantics mapping of
// spec.md §4.4.6.
type EmbeddingClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	dim        int
	cache      *embeddingCache
	maxRetries uint64
}

// NewEmbeddingClient builds a client against serviceURL, authenticating
// with apiKey and requesting embeddings from model, caching resolved
// vectors for ttl and evicting past maxCacheItems.
func NewEmbeddingClient(serviceURL, apiKey, model string, dim int, requestTimeout, cacheTTL time.Duration, maxCacheItems int) *EmbeddingClient {
	return &EmbeddingClient{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    serviceURL,
		apiKey:     apiKey,
		model:      model,
		dim:        dim,
		cache:      newEmbeddingCache(cacheTTL, maxCacheItems),
		maxRetries: 3,
	}
}

// embedRequest/embedResponse mirror the OpenAI-compatible embeddings
// contract spec.md §6 specifies: POST {"input": [...text], "model": "..."}
// with an `Authorization: Bearer <EMBEDDING_API_KEY>` header, receive
// {"data": [{"embedding": [...float]}]}.
type embedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed resolves text to a vector of cfg.Embedding.Dim dimensions,
// consulting the cache first. A cache hit never touches the network.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := c.cache.get(text); ok {
		return cached, nil
	}

	var result []float32
	operation := func() error {
		vec, err := c.callService(ctx, text)
		if err != nil {
			return err
		}
		result = vec
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, apierr.Wrap(apierr.CodeEmbeddingServiceUnavailable, "embedding service unavailable", err)
	}

	c.cache.put(text, result)
	return result, nil
}

func (c *EmbeddingClient) callService(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Input: []string{text}, Model: c.model})
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err // network errors are retryable
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("embedding service returned %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, backoff.Permanent(fmt.Errorf("embedding service returned %d: %s", resp.StatusCode, respBody))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, backoff.Permanent(err)
	}
	if len(out.Data) == 0 {
		return nil, backoff.Permanent(fmt.Errorf("embedding service returned no data"))
	}
	vec := out.Data[0].Embedding
	if len(vec) != c.dim {
		return nil, backoff.Permanent(fmt.Errorf("embedding service returned %d dims, want %d", len(vec), c.dim))
	}
	return vec, nil
}
