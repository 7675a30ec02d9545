package http

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/randcorp/docscope/internal/domain"
	"github.com/randcorp/docscope/pkg/arxiv"
	"github.com/randcorp/docscope/pkg/oaipmh"
	"github.com/randcorp/docscope/pkg/openalex"
	"github.com/randcorp/docscope/pkg/semanticscholar"
)

func TestIngestionTrigger_Run_UnsupportedSource(t *testing.T) {
	trigger := NewIngestionTrigger(nil, arxiv.NewClient(), openalex.NewClient(""), oaipmh.NewClient(), semanticscholar.NewClient())

	_, err := trigger.Run(context.Background(), domain.Source("not-a-source"), TriggerOptions{})
	assert.Error(t, err)
}
