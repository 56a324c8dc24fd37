package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmcsa-watch/chameleon-backend/internal/fetch"
	"github.com/fmcsa-watch/chameleon-backend/internal/runner"
)

func TestRegisterPeriodicIngestRejectsNonPositiveInterval(t *testing.T) {
	s, err := New(runner.New(nil, fetch.NewClient("http://unused.invalid", 0)))
	require.NoError(t, err)
	assert.Error(t, s.RegisterPeriodicIngest(0))
}

func TestRegisterPeriodicIngestAcceptsPositiveInterval(t *testing.T) {
	s, err := New(runner.New(nil, fetch.NewClient("http://unused.invalid", 0)))
	require.NoError(t, err)
	require.NoError(t, s.RegisterPeriodicIngest(time.Hour))
	s.Start()
	require.NoError(t, s.Shutdown())
}
