package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/polity/internal/world"
)

func TestStepRunsDueCallbacks(t *testing.T) {
	e := NewEngine(TicksPerSimHour - 2)
	var ticks, hours, days []uint64
	e.OnTick = func(tick uint64) { ticks = append(ticks, tick) }
	e.OnHour = func(tick uint64) { hours = append(hours, tick) }
	e.OnDay = func(tick uint64) { days = append(days, tick) }

	for i := 0; i < 3; i++ {
		e.Step()
	}
	assert.Equal(t, []uint64{59, 60, 61}, ticks)
	assert.Equal(t, []uint64{60}, hours)
	assert.Empty(t, days)
	assert.Equal(t, uint64(61), e.Tick())
}

func TestRunStopsOnCancel(t *testing.T) {
	e := NewEngine(0)
	e.Interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return e.Tick() >= 3 }, 5*time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop")
	}
}

func TestSimTime(t *testing.T) {
	assert.Equal(t, "Spring Day 1, 0:00 Year 1", SimTime(0))
	assert.Equal(t, "Spring Day 2, 1:05 Year 1", SimTime(TicksPerSimDay+65))
	assert.Equal(t, "Summer Day 1, 0:00 Year 1", SimTime(90*TicksPerSimDay))
	assert.Equal(t, "Spring Day 1, 0:00 Year 2", SimTime(360*TicksPerSimDay))
}

type fakeStore struct {
	mu    sync.Mutex
	ticks []uint64
	err   error
}

func (f *fakeStore) SaveWorld(_ *world.World, tick uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.ticks = append(f.ticks, tick)
	return nil
}

func TestAutosave(t *testing.T) {
	store := &fakeStore{}
	sim := NewSimulation(world.New(nil), store, 5)
	e := NewEngine(0)
	sim.Attach(e)

	for i := 0; i < 12; i++ {
		e.Step()
	}
	assert.Equal(t, []uint64{5, 10}, store.ticks)
	assert.Equal(t, uint64(10), sim.LastSaved())

	store.err = errors.New("disk full")
	for i := 0; i < 3; i++ {
		e.Step()
	}
	assert.Equal(t, uint64(10), sim.LastSaved())
	require.Error(t, sim.Save(e.Tick()))
}

func TestSaveWithoutStore(t *testing.T) {
	sim := NewSimulation(world.New(nil), nil, 1)
	require.NoError(t, sim.Save(1))
	sim.Report(TicksPerSimDay)
}
