package export

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTargetRejectsEmptyBucket(t *testing.T) {
	_, err := NewTarget(context.Background(), "", "")
	require.Error(t, err)
}

func TestObjectKeyWithAndWithoutPrefix(t *testing.T) {
	withPrefix := &Target{bucket: "b", prefix: "reports"}
	assert.Equal(t, "reports/runs/run-1/risk_scores.ndjson", withPrefix.objectKey("run-1"))

	noPrefix := &Target{bucket: "b"}
	assert.Equal(t, "runs/run-1/risk_scores.ndjson", noPrefix.objectKey("run-1"))
}
