package clock_test

import (
	"sync"
	"testing"
	"time"

	"github.com/db47h/logicsim"
	"github.com/db47h/logicsim/internal/clock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	mu    sync.Mutex
	ticks map[logicsim.ComponentID]int
}

func (c *counter) tick(id logicsim.ComponentID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks[id]++
	if id == "clock_bad" {
		return errors.New("gone")
	}
	return nil
}

func (c *counter) get(id logicsim.ComponentID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks[id]
}

func TestScheduler(t *testing.T) {
	c := &counter{ticks: make(map[logicsim.ComponentID]int)}
	s := clock.New(c.tick)
	s.Start("clock_0", time.Millisecond)
	s.Start("clock_1", time.Millisecond)
	s.Start("clock_bad", time.Millisecond)

	require.Eventually(t, func() bool {
		return c.get("clock_0") >= 3 && c.get("clock_1") >= 3 && s.Running() == 2
	}, 5*time.Second, time.Millisecond)
	assert.Equal(t, 1, c.get("clock_bad"))

	assert.True(t, s.Stop("clock_0"))
	assert.False(t, s.Stop("clock_0"))
	assert.Equal(t, 1, s.Running())

	require.NoError(t, s.Close())
	assert.Equal(t, 0, s.Running())
	n := c.get("clock_1")
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, n, c.get("clock_1"))

	// no-op after close
	s.Start("clock_2", time.Millisecond)
	assert.Equal(t, 0, s.Running())
}
