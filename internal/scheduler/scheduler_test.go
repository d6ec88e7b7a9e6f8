package scheduler

import (
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toy-rental-pricing/internal/logger"
)

type fakeCatalog struct {
	reloads atomic.Int32
	err     error
}

func (f *fakeCatalog) Reload() error {
	f.reloads.Add(1)
	return f.err
}

func (f *fakeCatalog) Len() int { return 3 }

func TestNew_InvalidSchedule(t *testing.T) {
	_, err := New("every five minutes", &fakeCatalog{})
	assert.Error(t, err)
}

func TestReloadCatalog(t *testing.T) {
	logger.InitializeTo(io.Discard, "error", "text")

	ok := &fakeCatalog{}
	ReloadCatalog(ok)()
	assert.Equal(t, int32(1), ok.reloads.Load())

	failing := &fakeCatalog{err: errors.New("bad json")}
	assert.NotPanics(t, ReloadCatalog(failing))
	assert.Equal(t, int32(1), failing.reloads.Load())
}

func TestScheduler_RunsJob(t *testing.T) {
	logger.InitializeTo(io.Discard, "error", "text")

	c := &fakeCatalog{}
	s, err := New("* * * * * *", c)
	require.NoError(t, err)

	s.Start()
	assert.Eventually(t, func() bool { return c.reloads.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	<-s.Stop().Done()
}
