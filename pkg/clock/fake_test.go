package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFake_AdvanceFiresInDeadlineOrder(t *testing.T) {
	c := NewFake(epoch)
	var fired []string
	var at []time.Duration

	c.AfterFunc(3*time.Second, func() { fired = append(fired, "c"); at = append(at, c.Now().Sub(epoch)) })
	c.AfterFunc(1*time.Second, func() { fired = append(fired, "a"); at = append(at, c.Now().Sub(epoch)) })
	c.AfterFunc(2*time.Second, func() { fired = append(fired, "b"); at = append(at, c.Now().Sub(epoch)) })
	assert.Equal(t, 3, c.PendingCount())

	c.Advance(2 * time.Second)
	assert.Equal(t, []string{"a", "b"}, fired)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, at)
	assert.Equal(t, []time.Duration{time.Second}, c.Deadlines())

	c.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, fired)
	assert.Equal(t, 0, c.PendingCount())
	assert.Equal(t, epoch.Add(3*time.Second), c.Now())
}

func TestFake_Stop(t *testing.T) {
	c := NewFake(epoch)
	called := false
	tm := c.AfterFunc(time.Second, func() { called = true })

	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop())
	c.Advance(time.Minute)
	assert.False(t, called)
	assert.Equal(t, 0, c.PendingCount())
}

func TestFake_CallbackSchedulesWithinAdvance(t *testing.T) {
	c := NewFake(epoch)
	var second time.Time
	c.AfterFunc(time.Second, func() {
		c.AfterFunc(time.Second, func() { second = c.Now() })
	})

	c.Advance(5 * time.Second)
	assert.Equal(t, epoch.Add(2*time.Second), second)
	assert.Equal(t, epoch.Add(5*time.Second), c.Now())
}

func TestFake_ZeroDelayFiresOnNextAdvance(t *testing.T) {
	c := NewFake(epoch)
	called := false
	c.AfterFunc(0, func() { called = true })
	assert.False(t, called)

	c.Advance(0)
	assert.True(t, called)
}
