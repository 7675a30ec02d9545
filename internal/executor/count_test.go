package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewriteCountSQLForEstimate_ReplacesCountWithOne(t *testing.T) {
	got := rewriteCountSQLForEstimate("SELECT COUNT(*) FROM papers dp WHERE dp.source IN ($1)")
	assert.Equal(t, "SELECT 1 FROM papers dp WHERE dp.source IN ($1)", got)
}

func TestRewriteCountSQLForEstimate_LeavesUnrecognizedSQLUntouched(t *testing.T) {
	sql := "SELECT 1 FROM papers dp"
	assert.Equal(t, sql, rewriteCountSQLForEstimate(sql))
}
