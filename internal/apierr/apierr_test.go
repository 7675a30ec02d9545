package apierr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus_KnownCodes(t *testing.T) {
	cases := map[Code]int{
		CodeInvalidParameter:            400,
		CodePaperNotFound:               404,
		CodeResourceNotFound:            404,
		CodeForbiddenSQL:                400,
		CodeEmbeddingServiceUnavailable: 503,
		CodeQueryTimeout:                504,
		CodeDatabaseUnavailable:         503,
		CodeInternalPlanError:           500,
		CodeInternalError:               500,
	}
	for code, want := range cases {
		e := New(code, "x")
		assert.Equal(t, want, e.HTTPStatus(), "code %s", code)
	}
}

func TestWrap_UnwrapsToCause(t *testing.T) {
	cause := errors.New("pool exhausted")
	e := Wrap(CodeDatabaseUnavailable, "connect failed", cause)

	assert.ErrorIs(t, e, cause)
	assert.Contains(t, e.Error(), "pool exhausted")
}

func TestInvalidf_FormatsMessage(t *testing.T) {
	e := Invalidf("field %q is not sortable", "abstract")
	assert.Equal(t, CodeInvalidParameter, e.Code)
	assert.Contains(t, e.Error(), "abstract")
}
