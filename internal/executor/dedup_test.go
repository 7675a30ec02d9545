package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/randcorp/docscope/internal/domain"
)

func TestRequestKey_SameContentsSameKey(t *testing.T) {
	a := domain.FilterRequest{Fields: []string{"title", "abstract"}, Limit: 10, SearchText: "fusion"}
	b := domain.FilterRequest{Fields: []string{"title", "abstract"}, Limit: 10, SearchText: "fusion"}

	assert.Equal(t, requestKey(a), requestKey(b))
}

func TestRequestKey_DifferingFieldsDifferentKey(t *testing.T) {
	a := domain.FilterRequest{Limit: 10}
	b := domain.FilterRequest{Limit: 20}

	assert.NotEqual(t, requestKey(a), requestKey(b))
}

func TestRequestKey_BBoxAffectsKey(t *testing.T) {
	withBBox := domain.FilterRequest{BBox: &domain.BBox{X1: 1, Y1: 2, X2: 3, Y2: 4}}
	withoutBBox := domain.FilterRequest{}

	assert.NotEqual(t, requestKey(withBBox), requestKey(withoutBBox))
}

func TestRequestKey_YearRangeAffectsKey(t *testing.T) {
	withYears := domain.FilterRequest{YearRange: &domain.YearRange{Start: 2000, End: 2010}}
	withoutYears := domain.FilterRequest{}

	assert.NotEqual(t, requestKey(withYears), requestKey(withoutYears))
}
