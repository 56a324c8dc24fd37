package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmcsa-watch/chameleon-backend/internal/model"
)

func TestConnectWithEmptyURLReturnsNilPublisher(t *testing.T) {
	p, err := Connect("")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestNilPublisherMethodsAreNoOps(t *testing.T) {
	var p *Publisher
	assert.NotPanics(t, func() {
		p.PublishIngestDone("run-1", model.SyncRunDone, 10, "")
		p.PublishDetectDone("run-1", 5)
		p.Close()
	})
}

func TestConnectWithUnreachableURLReturnsError(t *testing.T) {
	_, err := Connect("nats://127.0.0.1:1")
	assert.Error(t, err)
}
