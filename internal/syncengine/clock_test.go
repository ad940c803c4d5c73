package syncengine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"bidvault/internal/syncengine"
)

func TestManualClock_FiresInOrder(t *testing.T) {
	c := syncengine.NewManualClock(time.Unix(0, 0))
	var fired []string
	c.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })
	c.AfterFunc(time.Second, func() {
		fired = append(fired, "a")
		c.AfterFunc(500*time.Millisecond, func() { fired = append(fired, "a2") })
	})
	stopped := c.AfterFunc(1500*time.Millisecond, func() { fired = append(fired, "never") })
	assert.True(t, stopped.Stop())
	assert.False(t, stopped.Stop())

	c.Advance(1700 * time.Millisecond)
	assert.Equal(t, []string{"a", "a2"}, fired)
	assert.Equal(t, 1, c.Pending())

	c.Advance(time.Second)
	assert.Equal(t, []string{"a", "a2", "b"}, fired)
	assert.Equal(t, time.Unix(0, 0).Add(2700*time.Millisecond), c.Now())
}
