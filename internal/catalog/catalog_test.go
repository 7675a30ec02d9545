package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_SimpleAndQualifiedNamesAgree(t *testing.T) {
	c := New()

	simple, ok := c.Lookup("title")
	require.True(t, ok)

	qualified, ok := c.Lookup("papers.title")
	require.True(t, ok)

	assert.Equal(t, simple, qualified)
	assert.Equal(t, BaseAlias, simple.Alias)
}

func TestLookup_UnknownFieldFails(t *testing.T) {
	c := New()
	_, ok := c.Lookup("nonexistent_field")
	assert.False(t, ok)
}

func TestLookup_EnrichmentCountryResolvesToItsOwnAlias(t *testing.T) {
	c := New()
	f, ok := c.Lookup("country_name")
	require.True(t, ok)
	assert.Equal(t, "enrichment_country", f.Table)
	assert.Equal(t, "ec", f.Alias)
	assert.True(t, f.Filterable)
}

func TestAliasFor_KnownTables(t *testing.T) {
	c := New()

	alias, ok := c.AliasFor(BaseTable)
	require.True(t, ok)
	assert.Equal(t, BaseAlias, alias)

	alias, ok = c.AliasFor("enrichment_category")
	require.True(t, ok)
	assert.Equal(t, "ecat", alias)
}

func TestAliasFor_UnknownTable(t *testing.T) {
	c := New()
	_, ok := c.AliasFor("no_such_table")
	assert.False(t, ok)
}

func TestFieldsForTable_ExcludesOtherTables(t *testing.T) {
	c := New()
	fields := c.FieldsForTable("enrichment_country")
	assert.Len(t, fields, 4)
	for _, f := range fields {
		assert.Equal(t, "enrichment_country", f.Table)
	}
}

func TestEnrichmentTables_ExcludesBaseTable(t *testing.T) {
	c := New()
	tables := c.EnrichmentTables()
	assert.NotContains(t, tables, BaseTable)
	assert.Contains(t, tables, "enrichment_country")
	assert.Contains(t, tables, "enrichment_category")
}

func TestErrUnknownField_Message(t *testing.T) {
	err := ErrUnknownField{Name: "bogus"}
	assert.Contains(t, err.Error(), "bogus")
}
