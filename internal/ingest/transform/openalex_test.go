package transform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randcorp/docscope/pkg/openalex"
)

func openAlexPage(count int) string {
	results := ""
	for i := 0; i < count; i++ {
		if i > 0 {
			results += ","
		}
		results += `{"id":"https://openalex.org/W` + string(rune('1'+i)) + `","title":"Paper","publication_year":2020}`
	}
	return `{"meta":{"count":250},"results":[` + results + `]}`
}

func TestOpenAlexSource_FetchAdvancesOffsetCursor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(openAlexPage(2)))
	}))
	defer srv.Close()

	client := openalex.NewClientWithBaseURL("", srv.URL)
	src := NewOpenAlexSource(client, "test", 2)

	records, next, more, err := src.Fetch(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, "2", next)
	assert.True(t, more)
}
