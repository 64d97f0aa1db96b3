package adb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/openadb/goadb/internal/errors"
)

// DeviceDescriptor identifies a device to route a command to, the way
// the adb server's host-prefix commands do (host-serial:, host-usb:,
// host-local:, host:).
type DeviceDescriptor interface {
	// getHostPrefix returns the prefix used for host-* attribute
	// commands, e.g. "host-serial:abc123".
	getHostPrefix() string
	// getTransportDescriptor returns the suffix of "host:transport:...".
	getTransportDescriptor() string
	String() string
}

type anyDeviceDescriptor struct{}

func (anyDeviceDescriptor) getHostPrefix() string          { return "host" }
func (anyDeviceDescriptor) getTransportDescriptor() string { return "transport-any" }
func (anyDeviceDescriptor) String() string                 { return "any" }

type anyUsbDeviceDescriptor struct{}

func (anyUsbDeviceDescriptor) getHostPrefix() string          { return "host" }
func (anyUsbDeviceDescriptor) getTransportDescriptor() string { return "transport-usb" }
func (anyUsbDeviceDescriptor) String() string                 { return "usb" }

type localDeviceDescriptor struct{}

func (localDeviceDescriptor) getHostPrefix() string          { return "host" }
func (localDeviceDescriptor) getTransportDescriptor() string { return "transport-local" }
func (localDeviceDescriptor) String() string                 { return "local" }

type serialDeviceDescriptor struct {
	serial string
}

func (d serialDeviceDescriptor) getHostPrefix() string {
	return fmt.Sprintf("host-serial:%s", d.serial)
}
func (d serialDeviceDescriptor) getTransportDescriptor() string {
	return fmt.Sprintf("transport:%s", d.serial)
}
func (d serialDeviceDescriptor) String() string { return d.serial }

// AnyDevice matches any single attached device; the server errors if
// more than one is attached.
func AnyDevice() DeviceDescriptor { return anyDeviceDescriptor{} }

// AnyUsbDevice matches any single USB-attached device.
func AnyUsbDevice() DeviceDescriptor { return anyUsbDeviceDescriptor{} }

// LocalDevice matches any single local (emulator) device.
func LocalDevice() DeviceDescriptor { return localDeviceDescriptor{} }

// DeviceWithSerial matches the device with the given serial number.
func DeviceWithSerial(serial string) DeviceDescriptor {
	return serialDeviceDescriptor{serial}
}

// DeviceState is the connection/auth state the server reports for a
// device, the second field of a host:devices(-l) line.
type DeviceState int

const (
	StateInvalid DeviceState = iota
	StateDisconnected
	StateOffline
	StateOnline
	StateUnauthorized
	StateBootloader
	StateRecovery
	StateNoPermissions
	StateHost
)

var deviceStateStrings = map[string]DeviceState{
	"":              StateDisconnected,
	"offline":       StateOffline,
	"device":        StateOnline,
	"unauthorized":  StateUnauthorized,
	"bootloader":    StateBootloader,
	"recovery":      StateRecovery,
	"no permissions": StateNoPermissions,
	"host":          StateHost,
}

func (s DeviceState) String() string {
	for str, state := range deviceStateStrings {
		if state == s {
			if str == "" {
				return "disconnected"
			}
			return str
		}
	}
	return "invalid"
}

// parseDeviceState maps the server's type token to a DeviceState. Tokens
// the server might add in the future are preserved as StateInvalid
// rather than erroring, matching the host protocol's forward-compat
// posture.
func parseDeviceState(str string) (DeviceState, error) {
	if state, ok := deviceStateStrings[str]; ok {
		return state, nil
	}
	return StateInvalid, nil
}

// DeviceInfo is one entry of a device list snapshot (host:devices-l).
type DeviceInfo struct {
	Serial     string
	State      DeviceState
	DevicePath string

	// Product, Model, Device, TransportID are only present in the "-l"
	// long form; they are empty otherwise.
	Product     string
	Model       string
	Device      string
	TransportID string
}

// deviceLineParser maps a device-list line's fields into a DeviceInfo.
type deviceLineParser func(fields []string) (*DeviceInfo, error)

// parseDeviceList parses the newline-separated output of host:devices
// or host:devices-l.
func parseDeviceList(list string, lineParser deviceLineParser) ([]*DeviceInfo, error) {
	var devices []*DeviceInfo
	for lineNum, line := range strings.Split(list, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		device, err := lineParser(fields)
		if err != nil {
			return nil, errors.WrapErrorf(err, errors.ParseError,
				"error parsing device list line %d: %s", lineNum, line)
		}
		devices = append(devices, device)
	}
	return devices, nil
}

// parseDeviceShort parses a "serial\tstate" line (host:devices).
func parseDeviceShort(fields []string) (*DeviceInfo, error) {
	if len(fields) != 2 {
		return nil, errors.Errorf(errors.ParseError,
			"malformed device line, expected 2 fields: %v", fields)
	}
	state, err := parseDeviceState(fields[1])
	if err != nil {
		return nil, err
	}
	return &DeviceInfo{Serial: fields[0], State: state}, nil
}

// parseDeviceLong parses a "serial state [path] key:value..." line
// (host:devices-l).
func parseDeviceLong(fields []string) (*DeviceInfo, error) {
	if len(fields) < 2 {
		return nil, errors.Errorf(errors.ParseError,
			"malformed device line, expected at least 2 fields: %v", fields)
	}
	state, err := parseDeviceState(fields[1])
	if err != nil {
		return nil, err
	}
	info := &DeviceInfo{Serial: fields[0], State: state}

	rest := fields[2:]
	if len(rest) > 0 && !strings.Contains(rest[0], ":") {
		info.DevicePath = rest[0]
		rest = rest[1:]
	}
	for _, kv := range rest {
		parts := strings.SplitN(kv, ":", 2)
		if len(parts) != 2 {
			continue
		}
		switch parts[0] {
		case "product":
			info.Product = parts[1]
		case "model":
			info.Model = parts[1]
		case "device":
			info.Device = parts[1]
		case "transport_id":
			info.TransportID = parts[1]
		}
	}
	return info, nil
}

// parseForwardList parses the newline-separated "serial local remote"
// triples of host:list-forward.
func parseForwardList(list string) ([]ForwardPair, error) {
	var pairs []ForwardPair
	for lineNum, line := range strings.Split(list, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, errors.Errorf(errors.ParseError,
				"malformed forward list line %d: %s", lineNum, line)
		}
		var local, remote ForwardSpec
		if err := local.parseString(fields[1]); err != nil {
			return nil, err
		}
		if err := remote.parseString(fields[2]); err != nil {
			return nil, err
		}
		pairs = append(pairs, ForwardPair{Serial: fields[0], Local: local, Remote: remote})
	}
	return pairs, nil
}

// parseFeatureMap parses the output of "pm list features".
func parseFeatureMap(output string) map[string]string {
	features := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "feature:") {
			continue
		}
		rest := strings.TrimPrefix(line, "feature:")
		if idx := strings.IndexByte(rest, '='); idx >= 0 {
			features[rest[:idx]] = rest[idx+1:]
		} else {
			features[rest] = "true"
		}
	}
	return features
}

// parsePackageList parses the output of "pm list packages".
func parsePackageList(output string) []string {
	var packages []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if pkg, ok := strings.CutPrefix(line, "package:"); ok {
			packages = append(packages, pkg)
		}
	}
	return packages
}

// isInstalled interprets the output of "pm path <pkg>".
func isInstalled(output string) (bool, error) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "package:") {
			return true, nil
		}
		if strings.HasPrefix(line, "Error") {
			return false, errors.Errorf(errors.DeviceError, "pm path failed: %s", line)
		}
	}
	return false, nil
}

// checkAmStartOutput inspects the output of "am start"/"am broadcast"
// for a reported failure line.
func checkAmStartOutput(output string) error {
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "Error:") || strings.HasPrefix(trimmed, "Exception:") {
			return errors.Errorf(errors.DeviceError, "%s", trimmed)
		}
	}
	return nil
}

// parseServerVersion parses the 4-hex-digit version string host:version
// returns.
func parseServerVersion(raw []byte) (int, error) {
	version, err := strconv.ParseInt(string(raw), 16, 32)
	if err != nil {
		return 0, errors.WrapErrorf(err, errors.ParseError,
			"error parsing server version: %s", raw)
	}
	return int(version), nil
}
