package adb

import (
	"github.com/openadb/goadb/internal/errors"
	"github.com/openadb/goadb/wire"
)

// TrackerEvent is the sum type streamed by DeviceWatcher.C(): either a
// DeviceStateChangeEvent (one device's add/remove/change) or a
// ChangeSet (the aggregate always emitted once after the per-device
// events of the same snapshot).
type TrackerEvent interface {
	isTrackerEvent()
}

// DeviceStateChangeEvent describes a single device transition observed
// by a DeviceWatcher: a device attaching, detaching, or changing state
// (e.g. offline -> device, device -> unauthorized).
type DeviceStateChangeEvent struct {
	Serial   string
	OldState DeviceState
	NewState DeviceState
}

func (DeviceStateChangeEvent) isTrackerEvent() {}

// CameOnline reports whether this event is a device appearing for the
// first time (OldState is StateDisconnected, meaning absent).
func (e DeviceStateChangeEvent) CameOnline() bool {
	return e.OldState == StateDisconnected && e.NewState != StateDisconnected
}

// WentOffline reports whether this event is a device disappearing.
func (e DeviceStateChangeEvent) WentOffline() bool {
	return e.OldState != StateDisconnected && e.NewState == StateDisconnected
}

// ChangeSet is the aggregate event a DeviceWatcher emits after the
// per-device events of a single host:track-devices snapshot. Added,
// Removed, and Changed list the serials touched by this snapshot;
// Devices is the full resulting state, keyed by serial.
type ChangeSet struct {
	Added   []string
	Removed []string
	Changed []string
	Devices map[string]DeviceState
}

func (ChangeSet) isTrackerEvent() {}

// DeviceWatcher streams device connect/disconnect/state-change events by
// diffing successive host:track-devices snapshots. Create one with
// Adb.NewDeviceWatcher.
type DeviceWatcher struct {
	server server

	eventChan chan TrackerEvent
	errChan   chan error
	quit      chan struct{}
}

func newDeviceWatcher(s server) *DeviceWatcher {
	w := &DeviceWatcher{
		server:    s,
		eventChan: make(chan TrackerEvent),
		errChan:   make(chan error, 1),
		quit:      make(chan struct{}),
	}
	go w.run()
	return w
}

// C returns the channel events are delivered on. It's closed when the
// watcher stops, after Err() is populated (if it stopped due to an
// error) and, for a clean Shutdown, without an error.
func (w *DeviceWatcher) C() <-chan TrackerEvent {
	return w.eventChan
}

// Err returns the error that caused the watcher to stop, if any. It's
// only meaningful after C() has been closed.
func (w *DeviceWatcher) Err() error {
	select {
	case err := <-w.errChan:
		return err
	default:
		return nil
	}
}

// Shutdown stops the watcher and closes its connection to the server.
func (w *DeviceWatcher) Shutdown() {
	close(w.quit)
}

func (w *DeviceWatcher) run() {
	defer close(w.eventChan)

	conn, err := w.server.Dial()
	if err != nil {
		w.fail(errors.WrapErrorf(err, errors.ConnectionError, "error connecting to track-devices"))
		return
	}
	defer conn.Close()

	// Shutdown closes quit; closing the connection then unblocks a
	// pending ReadMessage so run can return.
	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-w.quit:
			conn.Close()
		case <-stopped:
		}
	}()

	if err := wire.SendMessageString(conn, "host:track-devices"); err != nil {
		w.fail(err)
		return
	}
	if _, err := conn.ReadStatus("host:track-devices"); err != nil {
		w.fail(err)
		return
	}

	lastKnown := make(map[string]DeviceState)

	for {
		msg, err := conn.ReadMessage()
		if err != nil {
			// A clean EOF after Shutdown just means we closed our own
			// connection; don't report it as a failure.
			select {
			case <-w.quit:
			default:
				w.fail(errors.WrapErrorf(err, errors.ConnectionError, "error reading device list"))
			}
			return
		}

		devices, err := parseDeviceList(string(msg), parseDeviceShort)
		if err != nil {
			w.fail(err)
			return
		}

		if !w.publishDiff(lastKnown, devices) {
			return
		}
	}
}

// publishDiff computes add/remove/change events between lastKnown and
// the new snapshot, updates lastKnown in place, sends each per-device
// event, and finally sends the aggregate ChangeSet for the snapshot.
// It returns false if the watcher was shut down mid-send.
func (w *DeviceWatcher) publishDiff(lastKnown map[string]DeviceState, snapshot []*DeviceInfo) bool {
	seen := make(map[string]bool, len(snapshot))
	var added, removed, changed []string

	for _, dev := range snapshot {
		seen[dev.Serial] = true
		old, known := lastKnown[dev.Serial]
		if !known {
			old = StateDisconnected
		}
		if old == dev.State {
			continue
		}
		lastKnown[dev.Serial] = dev.State
		if !w.send(DeviceStateChangeEvent{Serial: dev.Serial, OldState: old, NewState: dev.State}) {
			return false
		}
		if old == StateDisconnected {
			added = append(added, dev.Serial)
		} else {
			changed = append(changed, dev.Serial)
		}
	}

	for serial, old := range lastKnown {
		if seen[serial] {
			continue
		}
		delete(lastKnown, serial)
		if !w.send(DeviceStateChangeEvent{Serial: serial, OldState: old, NewState: StateDisconnected}) {
			return false
		}
		removed = append(removed, serial)
	}

	devices := make(map[string]DeviceState, len(lastKnown))
	for serial, state := range lastKnown {
		devices[serial] = state
	}

	return w.send(ChangeSet{Added: added, Removed: removed, Changed: changed, Devices: devices})
}

func (w *DeviceWatcher) send(event TrackerEvent) bool {
	select {
	case w.eventChan <- event:
		return true
	case <-w.quit:
		return false
	}
}

func (w *DeviceWatcher) fail(err error) {
	w.errChan <- err
}
