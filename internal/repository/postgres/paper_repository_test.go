package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVectorLiteral_Format(t *testing.T) {
	lit := vectorLiteral([]float32{1, 0.5, -2})
	assert.Equal(t, "[1,0.5,-2]", lit)
}

func TestVectorLiteral_Empty(t *testing.T) {
	lit := vectorLiteral(nil)
	assert.Equal(t, "[]", lit)
}
