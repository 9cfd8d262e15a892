package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifiersReuseReleasedSlots(t *testing.T) {
	ids := NewIdentifiers(4)
	a := ids.AquireNewID("a")
	b := ids.AquireNewID("b")
	assert.Equal(t, uint32(0), a)
	assert.Equal(t, uint32(1), b)

	require.NoError(t, ids.ReleaseID(a))
	assert.Nil(t, ids.Owner(a))
	assert.Equal(t, uint32(0), ids.AquireNewID("c"))
	assert.Equal(t, "c", ids.Owner(0))
	assert.Equal(t, 2, ids.Live())

	assert.ErrorIs(t, ids.ReleaseID(7), ErrIdentifierRelease)
}

func TestEventBusDispatch(t *testing.T) {
	bus := NewEventBus()
	var got []uint64
	listener := &struct{ name string }{"l"}
	ok := bus.Register(EVENT_CODE_OBJECT_DESTROYED, listener, func(code SystemEventCode, sender, l interface{}, data EventContext) bool {
		got = append(got, data.Data.U64[0])
		return false
	})
	require.True(t, ok)
	assert.False(t, bus.Register(EVENT_CODE_OBJECT_DESTROYED, listener, nil), "duplicate listener")

	ctx := EventContext{}
	ctx.Data.U64[0] = 42
	assert.False(t, bus.Fire(EVENT_CODE_OBJECT_DESTROYED, nil, ctx))
	assert.Equal(t, []uint64{42}, got)

	assert.True(t, bus.Unregister(EVENT_CODE_OBJECT_DESTROYED, listener))
	bus.Fire(EVENT_CODE_OBJECT_DESTROYED, nil, ctx)
	assert.Len(t, got, 1)
	assert.Zero(t, bus.Listeners(EVENT_CODE_OBJECT_DESTROYED))
}

func TestEventBusHandledStopsPropagation(t *testing.T) {
	bus := NewEventBus()
	calls := 0
	handler := func(SystemEventCode, interface{}, interface{}, EventContext) bool {
		calls++
		return true
	}
	bus.Register(EVENT_CODE_SETTINGS_RELOADED, "first", handler)
	bus.Register(EVENT_CODE_SETTINGS_RELOADED, "second", handler)
	assert.True(t, bus.Fire(EVENT_CODE_SETTINGS_RELOADED, nil, EventContext{}))
	assert.Equal(t, 1, calls)
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.Count("VUID-b")
	m.Count("VUID-a")
	m.Count("VUID-b")
	snap := m.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, MetricCount{ID: "VUID-b", Count: 2}, snap[0])
	assert.Equal(t, uint64(1), m.Counter("VUID-a"))

	for i := 0; i < int(AVG_COUNT); i++ {
		m.SubmitUpdate(2 * time.Millisecond)
	}
	n, avg := m.SubmitTime()
	assert.Equal(t, uint64(AVG_COUNT), n)
	assert.Equal(t, 2*time.Millisecond, avg)
}

func TestClockKeepsElapsedAfterStop(t *testing.T) {
	c := NewClock()
	c.Update()
	assert.Zero(t, c.Elapsed(), "a clock that never started stays at zero")

	c.Start()
	time.Sleep(time.Millisecond)
	c.Stop()
	elapsed := c.Elapsed()
	assert.GreaterOrEqual(t, elapsed, time.Millisecond)

	c.Update()
	assert.Equal(t, elapsed, c.Elapsed())
}
