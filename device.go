package adb

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/openadb/goadb/internal/errors"
	"github.com/openadb/goadb/wire"
)

// MtimeOfClose should be passed to OpenWrite to set the file
// modification time to the time the Close method is called.
var MtimeOfClose = time.Time{}

// Device communicates with a specific Android device.
// To get an instance, call Device() on an Adb.
type Device struct {
	server     server
	descriptor DeviceDescriptor

	// Used to get device info.
	deviceListFunc func() ([]*DeviceInfo, error)
}

func (c *Device) String() string {
	return c.descriptor.String()
}

// get-product is documented, but not implemented, in the server.
func (c *Device) product() (string, error) {
	attr, err := c.getAttribute("get-product")
	return attr, wrapClientError(err, c, "Product")
}

func (c *Device) Serial() (string, error) {
	attr, err := c.getAttribute("get-serialno")
	return attr, wrapClientError(err, c, "Serial")
}

func (c *Device) DevicePath() (string, error) {
	attr, err := c.getAttribute("get-devpath")
	return attr, wrapClientError(err, c, "DevicePath")
}

func (c *Device) State() (DeviceState, error) {
	attr, err := c.getAttribute("get-state")
	if err != nil {
		return StateInvalid, wrapClientError(err, c, "State")
	}
	state, err := parseDeviceState(attr)
	return state, wrapClientError(err, c, "State")
}

var (
	FProtocolTcp        = "tcp"
	FProtocolAbstract   = "localabstract"
	FProtocolReserved   = "localreserved"
	FProtocolFilesystem = "localfilesystem"
)

// ForwardSpec is one side (local or remote) of a port forward.
type ForwardSpec struct {
	Protocol   string
	PortOrName string
}

func (f ForwardSpec) String() string {
	return fmt.Sprintf("%s:%s", f.Protocol, f.PortOrName)
}

func (f *ForwardSpec) parseString(s string) error {
	fields := strings.SplitN(s, ":", 2)
	if len(fields) != 2 {
		return errors.Errorf(errors.ParseError, "expect string contains only one ':', str = %s", s)
	}
	f.Protocol = fields[0]
	f.PortOrName = fields[1]
	return nil
}

// ForwardPair is one entry of host:list-forward.
type ForwardPair struct {
	Serial string
	Local  ForwardSpec
	Remote ForwardSpec
}

// ForwardList lists the port forwards registered for this device.
func (c *Device) ForwardList() ([]ForwardPair, error) {
	var devSerial string
	if d, ok := c.descriptor.(serialDeviceDescriptor); ok {
		devSerial = d.serial
	} else {
		serial, err := c.Serial()
		if err != nil {
			return nil, err
		}
		devSerial = serial
	}
	attr, err := c.getAttribute("list-forward")
	if err != nil {
		return nil, err
	}
	all, err := parseForwardList(attr)
	if err != nil {
		return nil, wrapClientError(err, c, "ForwardList")
	}

	fs := make([]ForwardPair, 0, len(all))
	for _, pair := range all {
		// list-forward reports forwards for every device; filter to ours.
		if pair.Serial == devSerial {
			fs = append(fs, pair)
		}
	}
	return fs, nil
}

func (c *Device) ForwardRemove(local ForwardSpec) error {
	err := roundTripSingleNoResponse(c.server,
		fmt.Sprintf("%s:killforward:%v", c.descriptor.getHostPrefix(), local))
	return wrapClientError(err, c, "ForwardRemove")
}

func (c *Device) ForwardRemoveAll() error {
	err := roundTripSingleNoResponse(c.server,
		fmt.Sprintf("%s:killforward-all", c.descriptor.getHostPrefix()))
	return wrapClientError(err, c, "ForwardRemoveAll")
}

// Forward forwards the remote connection to local.
func (c *Device) Forward(local, remote ForwardSpec) error {
	err := roundTripSingleNoResponse(c.server,
		fmt.Sprintf("%s:forward:%v;%v", c.descriptor.getHostPrefix(), local, remote))
	return wrapClientError(err, c, "Forward")
}

func (c *Device) DeviceInfo() (*DeviceInfo, error) {
	// Adb doesn't actually provide a way to get this for an individual
	// device, so we have to just list devices and find ourselves.

	serial, err := c.Serial()
	if err != nil {
		return nil, wrapClientError(err, c, "DeviceInfo(GetSerial)")
	}

	devices, err := c.deviceListFunc()
	if err != nil {
		return nil, wrapClientError(err, c, "DeviceInfo(ListDevices)")
	}

	for _, deviceInfo := range devices {
		if deviceInfo.Serial == serial {
			return deviceInfo, nil
		}
	}

	err = errors.Errorf(errors.DeviceNotFound, "device list doesn't contain serial %s", serial)
	return nil, wrapClientError(err, c, "DeviceInfo")
}

// ShellExitError is returned by RunCommand when the shell command's
// exit code (recovered via the "; echo :$?" trick) is non-zero.
type ShellExitError struct {
	Command  string
	ExitCode int
}

func (s ShellExitError) Error() string {
	return fmt.Sprintf("shell %s exit code %d", s.Command, s.ExitCode)
}

/*
RunCommand runs the specified commands on a shell on the device.

From the Android docs:

	Run 'command arg1 arg2 ...' in a shell on the device, and return
	its output and error streams. Note that arguments must be separated
	by spaces. If an argument contains a space, it must be quoted with
	double-quotes. Arguments cannot contain double quotes or things
	will go very wrong.

	Note that this is the non-interactive version of "adb shell"

Source: https://android.googlesource.com/platform/system/core/+/master/adb/SERVICES.TXT

This method quotes each argument with shellQuote, so arguments may
contain spaces, double quotes or other shell metacharacters.

The command line is followed by "; echo :$?" so the exit code can be
recovered from the output; a non-zero code is returned as a
ShellExitError.

Because the adb shell converts all "\n" into "\r\n", this converts it
back (which may mangle genuinely binary output).
*/
func (c *Device) RunCommand(cmd string, args ...string) (string, error) {
	cmdLine, err := prepareCommandLine(cmd, args...)
	if err != nil {
		return "", wrapClientError(err, c, "RunCommand")
	}
	// The marker is appended after quoting so the shell sees ";" as a
	// command separator, not as a literal argument.
	outStr, err := c.commandOutput(cmdLine + "; echo :$?")
	if err != nil {
		return outStr, err
	}
	idx := strings.LastIndexByte(outStr, ':')
	if idx == -1 {
		return outStr, errors.Errorf(errors.ParseError, "adb shell error, parse exit code failed")
	}
	exitCode, _ := strconv.Atoi(strings.TrimSpace(outStr[idx+1:]))
	if exitCode != 0 {
		err = ShellExitError{strings.Join(args, " "), exitCode}
	}
	outStr = strings.Replace(outStr[0:idx], "\r\n", "\n", -1)
	return outStr, err
}

func (c *Device) commandOutput(cmd string, args ...string) (string, error) {
	conn, err := c.OpenCommand(cmd, args...)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	resp, err := conn.ReadUntilEof()
	if err != nil {
		return "", wrapClientError(err, c, "RunCommand")
	}
	return string(resp), nil
}

// OpenCommand opens "shell:<cmd> <args...>" on a fresh device transport
// and returns the live connection once the server has acknowledged it.
// Shell responses carry no length header; callers read until EOF.
func (c *Device) OpenCommand(cmd string, args ...string) (conn *wire.Conn, err error) {
	cmd, err = prepareCommandLine(cmd, args...)
	if err != nil {
		return nil, wrapClientError(err, c, "OpenCommand")
	}
	conn, err = c.dialDevice()
	if err != nil {
		return nil, wrapClientError(err, c, "OpenCommand")
	}
	defer func() {
		if err != nil {
			conn.Close()
		}
	}()

	req := fmt.Sprintf("shell:%s", cmd)
	if err = conn.SendMessage([]byte(req)); err != nil {
		return nil, wrapClientError(err, c, "OpenCommand")
	}
	if _, err = conn.ReadStatus(req); err != nil {
		return nil, wrapClientError(err, c, "OpenCommand")
	}
	return conn, nil
}

// Properties runs "getprop" and parses its "[key]: [value]" lines.
func (c *Device) Properties() (map[string]string, error) {
	propOutput, err := c.commandOutput("getprop")
	if err != nil {
		return nil, err
	}
	props := make(map[string]string)
	for _, line := range strings.Split(propOutput, "\n") {
		line = strings.TrimRight(line, "\r")
		if !strings.HasPrefix(line, "[") {
			continue
		}
		closeKey := strings.Index(line, "]:")
		if closeKey < 0 {
			continue
		}
		key := line[1:closeKey]
		rest := strings.TrimSpace(line[closeKey+2:])
		if !strings.HasPrefix(rest, "[") || !strings.HasSuffix(rest, "]") {
			continue
		}
		props[key] = rest[1 : len(rest)-1]
	}
	return props, nil
}

// Features runs "pm list features" and returns the declared feature
// set. Features without an "=value" suffix map to "true".
func (c *Device) Features() (map[string]string, error) {
	out, err := c.RunCommand("pm", "list", "features")
	if err != nil {
		return nil, wrapClientError(err, c, "Features")
	}
	return parseFeatureMap(out), nil
}

// Packages runs "pm list packages" and returns the installed package
// names.
func (c *Device) Packages() ([]string, error) {
	out, err := c.RunCommand("pm", "list", "packages")
	if err != nil {
		return nil, wrapClientError(err, c, "Packages")
	}
	return parsePackageList(out), nil
}

// IsInstalled runs "pm path <pkg>" and reports whether the package is
// installed.
func (c *Device) IsInstalled(pkg string) (bool, error) {
	out, err := c.RunCommand("pm", "path", pkg)
	if err != nil {
		if _, ok := err.(ShellExitError); !ok {
			return false, wrapClientError(err, c, "IsInstalled")
		}
	}
	installed, err := isInstalled(out)
	return installed, wrapClientError(err, c, "IsInstalled")
}

/*
Remount, from the official adb command's docs:

	Ask adbd to remount the device's filesystem in read-write mode,
	instead of read-only. This is usually necessary before performing
	an "adb sync" or "adb push" request.
	This request may not succeed on certain builds which do not allow
	that.

Source: https://android.googlesource.com/platform/system/core/+/master/adb/SERVICES.TXT
*/
func (c *Device) Remount() (string, error) {
	conn, err := c.dialDevice()
	if err != nil {
		return "", wrapClientError(err, c, "Remount")
	}
	defer conn.Close()

	if err := conn.SendMessage([]byte("remount:")); err != nil {
		return "", wrapClientError(err, c, "Remount")
	}
	if _, err := conn.ReadStatus("remount:"); err != nil {
		return "", wrapClientError(err, c, "Remount")
	}
	resp, err := conn.ReadUntilEof()
	return string(resp), wrapClientError(err, c, "Remount")
}

// Reboot reboots the device into the given mode ("", "bootloader",
// "recovery", "sideload", "sideload-auto-reboot").
func (c *Device) Reboot(mode string) error {
	req := fmt.Sprintf("reboot:%s", mode)
	conn, err := c.dialDevice()
	if err != nil {
		return wrapClientError(err, c, "Reboot")
	}
	defer conn.Close()

	if err := conn.SendMessage([]byte(req)); err != nil {
		return wrapClientError(err, c, "Reboot")
	}
	_, err = conn.ReadStatus(req)
	return wrapClientError(err, c, "Reboot")
}

// WaitForDevice polls "getprop sys.boot_completed" on fresh transports,
// roughly once a second, until it reports "1" or ctx is done.
func (c *Device) WaitForDevice(ctx context.Context) error {
	for {
		out, err := c.RunCommand("getprop", "sys.boot_completed")
		if err == nil && strings.TrimSpace(out) == "1" {
			return nil
		}

		select {
		case <-ctx.Done():
			return wrapClientError(errors.Errorf(errors.Cancelled, "wait for device cancelled"), c, "WaitForDevice")
		case <-time.After(time.Second):
		}
	}
}

func (c *Device) ListDirEntries(path string) (*DirEntries, error) {
	conn, err := c.getSyncConn()
	if err != nil {
		return nil, wrapClientError(err, c, "ListDirEntries(%s)", path)
	}

	entries, err := listDirEntries(conn, path)
	return entries, wrapClientError(err, c, "ListDirEntries(%s)", path)
}

func (c *Device) Stat(path string) (*DirEntry, error) {
	conn, err := c.getSyncConn()
	if err != nil {
		return nil, wrapClientError(err, c, "Stat(%s)", path)
	}
	defer conn.Close()

	entry, err := stat(conn, path)
	return entry, wrapClientError(err, c, "Stat(%s)", path)
}

func (c *Device) OpenRead(path string) (io.ReadCloser, error) {
	conn, err := c.getSyncConn()
	if err != nil {
		return nil, wrapClientError(err, c, "OpenRead(%s)", path)
	}

	reader, err := receiveFile(conn, path)
	return reader, wrapClientError(err, c, "OpenRead(%s)", path)
}

// OpenWrite opens the file at path on the device, creating it with the
// permissions specified by perms if necessary, and returns a writer
// that writes to the file. The file's modification time is set to
// mtime when the WriteCloser is closed; the zero value is
// MtimeOfClose, which uses the time Close is called.
func (c *Device) OpenWrite(path string, perms os.FileMode, mtime time.Time) (io.WriteCloser, error) {
	conn, err := c.getSyncConn()
	if err != nil {
		return nil, wrapClientError(err, c, "OpenWrite(%s)", path)
	}

	writer, err := sendFile(conn, path, perms, mtime)
	return writer, wrapClientError(err, c, "OpenWrite(%s)", path)
}

// Framebuffer captures the device's current screen contents.
// See framebuffer.go for the wire format.
func (c *Device) Framebuffer() (*FramebufferInfo, io.ReadCloser, error) {
	conn, err := c.dialDevice()
	if err != nil {
		return nil, nil, wrapClientError(err, c, "Framebuffer")
	}

	if err := conn.SendMessage([]byte("framebuffer:")); err != nil {
		conn.Close()
		return nil, nil, wrapClientError(err, c, "Framebuffer")
	}
	if _, err := conn.ReadStatus("framebuffer:"); err != nil {
		conn.Close()
		return nil, nil, wrapClientError(err, c, "Framebuffer")
	}

	info, pixels, err := readFramebuffer(conn)
	if err != nil {
		conn.Close()
		return nil, nil, wrapClientError(err, c, "Framebuffer")
	}
	return info, pixels, nil
}

// StartActivity starts the given activity via "am start".
func (c *Device) StartActivity(intent Intent) (string, error) {
	out, err := c.RunCommand("am", append([]string{"start"}, intent.Args()...)...)
	if err != nil {
		return out, err
	}
	if err := checkAmStartOutput(out); err != nil {
		return out, wrapClientError(err, c, "StartActivity")
	}
	return out, nil
}

// Broadcast sends the given intent via "am broadcast".
func (c *Device) Broadcast(intent Intent) (string, error) {
	out, err := c.RunCommand("am", append([]string{"broadcast"}, intent.Args()...)...)
	if err != nil {
		return out, err
	}
	if err := checkAmStartOutput(out); err != nil {
		return out, wrapClientError(err, c, "Broadcast")
	}
	return out, nil
}

// getAttribute returns the first message returned by the server by
// running <host-prefix>:<attr>, where host-prefix is determined from
// the DeviceDescriptor.
func (c *Device) getAttribute(attr string) (string, error) {
	resp, err := roundTripSingleResponse(c.server,
		fmt.Sprintf("%s:%s", c.descriptor.getHostPrefix(), attr))
	if err != nil {
		return "", err
	}
	return string(resp), nil
}

func (c *Device) getSyncConn() (*wire.SyncConn, error) {
	conn, err := c.dialDevice()
	if err != nil {
		return nil, err
	}

	// Switch the connection to sync mode.
	if err := wire.SendMessageString(conn, "sync:"); err != nil {
		return nil, err
	}
	if _, err := conn.ReadStatus("sync"); err != nil {
		return nil, err
	}

	return conn.NewSyncConn(), nil
}

// dialDevice switches the connection to communicate directly with the
// device by requesting the transport defined by the DeviceDescriptor.
func (c *Device) dialDevice() (*wire.Conn, error) {
	conn, err := c.server.Dial()
	if err != nil {
		return nil, err
	}

	req := fmt.Sprintf("host:%s", c.descriptor.getTransportDescriptor())
	if err = wire.SendMessageString(conn, req); err != nil {
		conn.Close()
		return nil, errors.WrapErrf(err, "error connecting to device '%s'", c.descriptor)
	}

	if _, err = conn.ReadStatus(req); err != nil {
		conn.Close()
		return nil, err
	}

	return conn, nil
}

// prepareCommandLine validates the command string and quotes each
// argument with shellQuote, joining them into a single shell command
// line safe to send as "shell:<cmd>".
func prepareCommandLine(cmd string, args ...string) (string, error) {
	if isBlank(cmd) {
		return "", errors.AssertionErrorf("command cannot be empty")
	}

	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = shellQuote(arg)
	}

	if len(quoted) > 0 {
		cmd = fmt.Sprintf("%s %s", cmd, strings.Join(quoted, " "))
	}

	return cmd, nil
}
