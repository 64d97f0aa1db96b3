/*
Package adb is a client for the Android Debug Bridge (ADB) host
protocol: it dials the adb server over TCP and speaks the framed
request/response protocol described in the Android platform's
SERVICES.TXT, including the device-scoped shell, SYNC, framebuffer,
and device-tracking sub-protocols.

	client, err := adb.New()
	client.ListDevices()

See the list of host services at
https://android.googlesource.com/platform/system/core/+/master/adb/SERVICES.TXT.
*/
package adb

import (
	"fmt"

	"github.com/openadb/goadb/wire"
)

// Adb communicates with host services on the adb server. Create one
// with New or NewWithConfig.
type Adb struct {
	server server
}

// New creates a new Adb client that uses the default ServerConfig
// (127.0.0.1:5037, adb resolved via PATH).
func New() (*Adb, error) {
	return NewWithConfig(ServerConfig{})
}

// NewWithConfig creates a new Adb client for the given server.
func NewWithConfig(config ServerConfig) (*Adb, error) {
	srv, err := newServer(config)
	if err != nil {
		return nil, err
	}
	return &Adb{srv}, nil
}

func (c *Adb) String() string {
	return fmt.Sprintf("%v", c.server)
}

// Dial establishes a new connection with the adb server. Most callers
// should use a higher-level method instead; Dial is exposed for host
// commands this package doesn't wrap directly.
func (c *Adb) Dial() (*wire.Conn, error) {
	return c.server.Dial()
}

// StartServer starts the adb server if it isn't running.
func (c *Adb) StartServer() error {
	return c.server.Start()
}

// Device returns a client scoped to the device matched by descriptor.
func (c *Adb) Device(descriptor DeviceDescriptor) *Device {
	return &Device{
		server:         c.server,
		descriptor:     descriptor,
		deviceListFunc: c.ListDevices,
	}
}

// NewDeviceWatcher returns a tracker that streams device add/remove/
// change events from host:track-devices. Callers must call Shutdown
// when done.
func (c *Adb) NewDeviceWatcher() *DeviceWatcher {
	return newDeviceWatcher(c.server)
}

// ServerVersion asks the adb server for its internal protocol version.
//
// Corresponds to the command:
//
//	adb version
func (c *Adb) ServerVersion() (int, error) {
	resp, err := roundTripSingleResponse(c.server, "host:version")
	if err != nil {
		return 0, wrapClientError(err, c, "ServerVersion")
	}

	version, err := parseServerVersion(resp)
	if err != nil {
		return 0, wrapClientError(err, c, "ServerVersion")
	}
	return version, nil
}

// KillServer tells the server to quit immediately.
//
// Corresponds to the command:
//
//	adb kill-server
func (c *Adb) KillServer() error {
	conn, err := c.server.Dial()
	if err != nil {
		return wrapClientError(err, c, "KillServer")
	}
	defer conn.Close()

	if err := wire.SendMessageString(conn, "host:kill"); err != nil {
		return wrapClientError(err, c, "KillServer")
	}
	return nil
}

// ListDeviceSerials returns the serial numbers of all attached devices.
//
// Corresponds to the command:
//
//	adb devices
func (c *Adb) ListDeviceSerials() ([]string, error) {
	resp, err := roundTripSingleResponse(c.server, "host:devices")
	if err != nil {
		return nil, wrapClientError(err, c, "ListDeviceSerials")
	}

	devices, err := parseDeviceList(string(resp), parseDeviceShort)
	if err != nil {
		return nil, wrapClientError(err, c, "ListDeviceSerials")
	}

	serials := make([]string, len(devices))
	for i, dev := range devices {
		serials[i] = dev.Serial
	}
	return serials, nil
}

// ListDevices returns the list of connected devices, with the extra
// metadata the long form reports.
//
// Corresponds to the command:
//
//	adb devices -l
func (c *Adb) ListDevices() ([]*DeviceInfo, error) {
	resp, err := roundTripSingleResponse(c.server, "host:devices-l")
	if err != nil {
		return nil, wrapClientError(err, c, "ListDevices")
	}

	devices, err := parseDeviceList(string(resp), parseDeviceLong)
	if err != nil {
		return nil, wrapClientError(err, c, "ListDevices")
	}
	return devices, nil
}

// Connect connects the adb server to a device over TCP/IP.
//
// Corresponds to the command:
//
//	adb connect <host>:<port>
func (c *Adb) Connect(host string, port int) error {
	_, err := roundTripSingleResponse(c.server, fmt.Sprintf("host:connect:%s:%d", host, port))
	if err != nil {
		return wrapClientError(err, c, "Connect")
	}
	return nil
}

// Disconnect disconnects the adb server from a TCP/IP-connected device.
//
// Corresponds to the command:
//
//	adb disconnect <host>:<port>
func (c *Adb) Disconnect(host string, port int) error {
	_, err := roundTripSingleResponse(c.server, fmt.Sprintf("host:disconnect:%s:%d", host, port))
	if err != nil {
		return wrapClientError(err, c, "Disconnect")
	}
	return nil
}
