package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCategoryFromTaxonomy_KnownCategory(t *testing.T) {
	id := uuid.New()
	e := CategoryFromTaxonomy(id, "cs.AI")
	assert.Equal(t, id, e.PaperID)
	assert.Equal(t, "Artificial Intelligence", e.CategoryName)
	assert.Equal(t, "Computer Science", e.CategoryGroup)
}

func TestCategoryFromTaxonomy_UnknownCategoryFallsBackToOther(t *testing.T) {
	e := CategoryFromTaxonomy(uuid.New(), "zz.bogus")
	assert.Equal(t, "Other", e.CategoryGroup)
	assert.Equal(t, "zz.bogus", e.CategoryName)
}
