package adb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func drainEvents(t *testing.T, w *DeviceWatcher, n int) []TrackerEvent {
	t.Helper()
	var events []TrackerEvent
	for i := 0; i < n; i++ {
		events = append(events, <-w.eventChan)
	}
	return events
}

func newTestWatcher() *DeviceWatcher {
	return &DeviceWatcher{
		eventChan: make(chan TrackerEvent, 16),
		errChan:   make(chan error, 1),
		quit:      make(chan struct{}),
	}
}

func TestPublishDiffFirstSnapshotAllComeOnline(t *testing.T) {
	w := newTestWatcher()
	lastKnown := make(map[string]DeviceState)
	snapshot := []*DeviceInfo{
		{Serial: "a", State: StateOnline},
		{Serial: "b", State: StateUnauthorized},
	}

	ok := w.publishDiff(lastKnown, snapshot)
	assert.True(t, ok)

	events := drainEvents(t, w, 3)
	for _, e := range events[:2] {
		change := e.(DeviceStateChangeEvent)
		assert.True(t, change.CameOnline())
	}
	cs := events[2].(ChangeSet)
	assert.ElementsMatch(t, []string{"a", "b"}, cs.Added)
	assert.Empty(t, cs.Removed)
	assert.Empty(t, cs.Changed)
	assert.Equal(t, StateOnline, lastKnown["a"])
	assert.Equal(t, StateUnauthorized, lastKnown["b"])
}

func TestPublishDiffStateChange(t *testing.T) {
	w := newTestWatcher()
	lastKnown := map[string]DeviceState{"a": StateUnauthorized}
	snapshot := []*DeviceInfo{{Serial: "a", State: StateOnline}}

	ok := w.publishDiff(lastKnown, snapshot)
	assert.True(t, ok)

	events := drainEvents(t, w, 2)
	change := events[0].(DeviceStateChangeEvent)
	assert.Equal(t, StateUnauthorized, change.OldState)
	assert.Equal(t, StateOnline, change.NewState)
	assert.False(t, change.CameOnline())
	assert.False(t, change.WentOffline())

	cs := events[1].(ChangeSet)
	assert.Equal(t, []string{"a"}, cs.Changed)
	assert.Empty(t, cs.Added)
	assert.Empty(t, cs.Removed)
}

func TestPublishDiffNoChangeStillEmitsChangeSet(t *testing.T) {
	w := newTestWatcher()
	lastKnown := map[string]DeviceState{"a": StateOnline}
	snapshot := []*DeviceInfo{{Serial: "a", State: StateOnline}}

	ok := w.publishDiff(lastKnown, snapshot)
	assert.True(t, ok)

	events := drainEvents(t, w, 1)
	cs := events[0].(ChangeSet)
	assert.Empty(t, cs.Added)
	assert.Empty(t, cs.Removed)
	assert.Empty(t, cs.Changed)
	assert.Equal(t, StateOnline, cs.Devices["a"])
}

func TestPublishDiffDeviceRemovedWentOffline(t *testing.T) {
	w := newTestWatcher()
	lastKnown := map[string]DeviceState{"a": StateOnline, "b": StateOnline}
	snapshot := []*DeviceInfo{{Serial: "a", State: StateOnline}}

	ok := w.publishDiff(lastKnown, snapshot)
	assert.True(t, ok)

	events := drainEvents(t, w, 2)
	change := events[0].(DeviceStateChangeEvent)
	assert.Equal(t, "b", change.Serial)
	assert.True(t, change.WentOffline())
	_, stillKnown := lastKnown["b"]
	assert.False(t, stillKnown)

	cs := events[1].(ChangeSet)
	assert.Equal(t, []string{"b"}, cs.Removed)
	_, stillInSnapshot := cs.Devices["b"]
	assert.False(t, stillInSnapshot)
}

func TestPublishDiffStopsOnShutdown(t *testing.T) {
	w := newTestWatcher()
	w.eventChan = make(chan TrackerEvent) // unbuffered, so send blocks
	close(w.quit)

	lastKnown := make(map[string]DeviceState)
	snapshot := []*DeviceInfo{{Serial: "a", State: StateOnline}}

	ok := w.publishDiff(lastKnown, snapshot)
	assert.False(t, ok)
}

func TestDeviceStateChangeEventCameOnlineWentOffline(t *testing.T) {
	came := DeviceStateChangeEvent{OldState: StateDisconnected, NewState: StateOnline}
	assert.True(t, came.CameOnline())
	assert.False(t, came.WentOffline())

	went := DeviceStateChangeEvent{OldState: StateOnline, NewState: StateDisconnected}
	assert.True(t, went.WentOffline())
	assert.False(t, went.CameOnline())
}
