package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/randcorp/docscope/internal/apierr"
)

func TestParseVectorLiteral(t *testing.T) {
	vec, err := parseVectorLiteral("[0.1,0.2,-0.3]")
	assert := assert.New(t)
	assert.NoError(err)
	assert.Equal([]float32{0.1, 0.2, -0.3}, vec)
}

func TestParseVectorLiteral_Empty(t *testing.T) {
	vec, err := parseVectorLiteral("[]")
	assert.NoError(t, err)
	assert.Equal(t, []float32{}, vec)
}

func TestFilterBySimilarity_DropsBelowThreshold(t *testing.T) {
	rows := []map[string]any{
		{"similarity_score": 0.9},
		{"similarity_score": 0.3},
		{"similarity_score": 0.6},
	}
	filtered := filterBySimilarity(rows, 0.5)
	assert.Len(t, filtered, 2)
}

func TestFilterBySimilarity_ZeroThresholdKeepsAll(t *testing.T) {
	rows := []map[string]any{{"similarity_score": 0.1}, {"similarity_score": 0.0}}
	filtered := filterBySimilarity(rows, 0)
	assert.Len(t, filtered, 2)
}

func TestPaginate_WithinBounds(t *testing.T) {
	rows := []map[string]any{{"id": 1}, {"id": 2}, {"id": 3}, {"id": 4}}
	page := paginate(rows, 1, 2)
	assert.Len(t, page, 2)
	assert.Equal(t, 2, page[0]["id"])
}

func TestPaginate_OffsetBeyondLengthReturnsEmpty(t *testing.T) {
	rows := []map[string]any{{"id": 1}}
	page := paginate(rows, 5, 2)
	assert.Empty(t, page)
}

func TestPaginate_LimitPastEndClamps(t *testing.T) {
	rows := []map[string]any{{"id": 1}, {"id": 2}}
	page := paginate(rows, 0, 10)
	assert.Len(t, page, 2)
}

func TestIsEmbeddingDegradable_ServiceUnavailableCode(t *testing.T) {
	err := apierr.New(apierr.CodeEmbeddingServiceUnavailable, "down")
	assert.True(t, isEmbeddingDegradable(err))
}

func TestIsEmbeddingDegradable_DeadlineExceeded(t *testing.T) {
	assert.True(t, isEmbeddingDegradable(context.DeadlineExceeded))
}

func TestIsEmbeddingDegradable_OtherCodesDoNotDegrade(t *testing.T) {
	err := apierr.New(apierr.CodeInternalError, "boom")
	assert.False(t, isEmbeddingDegradable(err))
}

func TestIsEmbeddingDegradable_PlainErrorDoesNotDegrade(t *testing.T) {
	assert.False(t, isEmbeddingDegradable(errors.New("plain")))
}
