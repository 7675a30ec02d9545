package http

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randcorp/docscope/internal/domain"
)

func TestParseListPapersRequest_BasicFields(t *testing.T) {
	r := httptest.NewRequest("GET", "/papers?fields=title,abstract&limit=10&offset=5&sort_field=year&sort_direction=DESC", nil)

	req, err := parseListPapersRequest(r)
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "abstract"}, req.Fields)
	assert.Equal(t, 10, req.Limit)
	assert.Equal(t, 5, req.Offset)
	assert.Equal(t, "year", req.SortField)
	assert.Equal(t, domain.SortDesc, req.SortDirection)
}

func TestParseListPapersRequest_Defaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/papers", nil)

	req, err := parseListPapersRequest(r)
	require.NoError(t, err)
	assert.Empty(t, req.Fields)
	assert.Nil(t, req.BBox)
	assert.Equal(t, 0, req.Limit)
}

func TestParseListPapersRequest_BBox(t *testing.T) {
	r := httptest.NewRequest("GET", "/papers?bbox=1.5,2.5,3.5,4.5", nil)

	req, err := parseListPapersRequest(r)
	require.NoError(t, err)
	require.NotNil(t, req.BBox)
	assert.Equal(t, domain.BBox{X1: 1.5, Y1: 2.5, X2: 3.5, Y2: 4.5}, *req.BBox)
}

func TestParseListPapersRequest_InvalidLimit(t *testing.T) {
	r := httptest.NewRequest("GET", "/papers?limit=notanumber", nil)

	_, err := parseListPapersRequest(r)
	assert.Error(t, err)
}

func TestParseListPapersRequest_InvalidSimilarityThreshold(t *testing.T) {
	r := httptest.NewRequest("GET", "/papers?similarity_threshold=abc", nil)

	_, err := parseListPapersRequest(r)
	assert.Error(t, err)
}

func TestParseListPapersRequest_TargetCountAcceptedButIgnored(t *testing.T) {
	r := httptest.NewRequest("GET", "/papers?target_count=500", nil)

	req, err := parseListPapersRequest(r)
	require.NoError(t, err)
	assert.Zero(t, req.Limit)
	assert.Empty(t, req.SQLFilter)
}

func TestParseListPapersRequest_DisableSort(t *testing.T) {
	r := httptest.NewRequest("GET", "/papers?disable_sort=true", nil)

	req, err := parseListPapersRequest(r)
	require.NoError(t, err)
	assert.True(t, req.DisableSort)
}

func TestParseListPapersRequest_InvalidDisableSort(t *testing.T) {
	r := httptest.NewRequest("GET", "/papers?disable_sort=maybe", nil)

	_, err := parseListPapersRequest(r)
	assert.Error(t, err)
}

func TestParseBBox_WrongPartCount(t *testing.T) {
	_, err := parseBBox("1,2,3")
	assert.Error(t, err)
}

func TestParseBBox_NonNumeric(t *testing.T) {
	_, err := parseBBox("1,2,x,4")
	assert.Error(t, err)
}

func TestSplitTrimmed_DropsEmptyAndTrims(t *testing.T) {
	out := splitTrimmed(" a , b,, c ")
	assert.Equal(t, []string{"a", "b", "c"}, out)
}

func TestSplitTrimmed_EmptyString(t *testing.T) {
	out := splitTrimmed("")
	assert.Empty(t, out)
}
