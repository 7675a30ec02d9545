package executor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingCache_PutThenGet(t *testing.T) {
	c := newEmbeddingCache(time.Hour, 10)
	c.put("neural networks", []float32{1, 2, 3})

	vec, ok := c.get("neural networks")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, vec)
}

func TestEmbeddingCache_TrimsTextBeforeKeying(t *testing.T) {
	c := newEmbeddingCache(time.Hour, 10)
	c.put("  neural networks  ", []float32{1, 2, 3})

	vec, ok := c.get("neural networks")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, vec)
}

func TestEmbeddingCache_ExpiresAfterTTL(t *testing.T) {
	c := newEmbeddingCache(1*time.Millisecond, 10)
	c.put("x", []float32{1})
	time.Sleep(5 * time.Millisecond)

	_, ok := c.get("x")
	assert.False(t, ok)
}

func TestEmbeddingCache_MissReturnsFalse(t *testing.T) {
	c := newEmbeddingCache(time.Hour, 10)
	_, ok := c.get("never cached")
	assert.False(t, ok)
}

func TestEmbeddingCache_EvictsWhenFull(t *testing.T) {
	c := newEmbeddingCache(time.Hour, 2)
	c.put("a", []float32{1})
	c.put("b", []float32{2})
	c.put("c", []float32{3})

	assert.LessOrEqual(t, len(c.entries), 2)
}

func TestDigestOf_SameTextSameDigest(t *testing.T) {
	assert.Equal(t, digestOf("hello"), digestOf("hello"))
	assert.NotEqual(t, digestOf("hello"), digestOf("world"))
}
