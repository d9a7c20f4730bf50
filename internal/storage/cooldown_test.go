package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCooldowns(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewCooldowns()
	c.now = func() time.Time { return now }

	ok, _ := c.Allow("ping:1", 5*time.Second)
	assert.True(t, ok)

	ok, left := c.Allow("ping:1", 5*time.Second)
	assert.False(t, ok)
	assert.Equal(t, 5*time.Second, left)

	ok, _ = c.Allow("ping:2", 5*time.Second)
	assert.True(t, ok, "keys are independent")

	ok, _ = c.Allow("ping:1", 0)
	assert.True(t, ok, "zero duration never blocks")

	now = now.Add(5 * time.Second)
	ok, _ = c.Allow("ping:1", 5*time.Second)
	assert.True(t, ok)
}

func TestCooldowns_Prune(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewCooldowns()
	c.now = func() time.Time { return now }

	c.Allow("a", time.Second)
	c.Allow("b", time.Minute)
	now = now.Add(2 * time.Second)

	assert.Equal(t, 1, c.Prune())
	assert.Equal(t, 1, c.Len())
}
