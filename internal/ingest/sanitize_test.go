package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeTitle_StripsHTMLAndNormalizesPunctuation(t *testing.T) {
	in := "A <b>Survey</b> of “Deep” Learning—Methods"
	got := SanitizeTitle(in)
	assert.Equal(t, `A Survey of "Deep" Learning-Methods`, got)
}

func TestSanitizeTitle_TruncatesToMaxLength(t *testing.T) {
	in := strings.Repeat("a", maxTitleLength+500)
	got := SanitizeTitle(in)
	assert.Len(t, []rune(got), maxTitleLength)
}

func TestSanitizeAbstract_RemovesControlCharsAndCollapsesWhitespace(t *testing.T) {
	in := "line one\x00\x01   \n\n line   two"
	got := SanitizeAbstract(in)
	assert.Equal(t, "line one line two", got)
}

func TestSanitizeText_EmptyInputStaysEmpty(t *testing.T) {
	assert.Equal(t, "", SanitizeTitle(""))
	assert.Equal(t, "", SanitizeAbstract("   "))
}
