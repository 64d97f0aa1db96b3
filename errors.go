package adb

import (
	"fmt"

	"github.com/openadb/goadb/internal/errors"
)

// HasErrCode reports whether err is an *errors.Err (possibly wrapped)
// carrying the given code, re-exported here so callers don't need to
// import the internal package directly.
func HasErrCode(err error, code errors.ErrCode) bool {
	return errors.HasErrCode(err, code)
}

// Error codes callers can branch on with HasErrCode.
const (
	AssertionError     = errors.AssertionError
	ParseError         = errors.ParseError
	ConnectionError    = errors.ConnectionError
	NetworkError       = errors.NetworkError
	ServerNotAvailable = errors.ServerNotAvailable
	DeviceNotFound     = errors.DeviceNotFound
	Unauthorized       = errors.Unauthorized
	DeviceError        = errors.DeviceError
	Cancelled          = errors.Cancelled
)

// wrapClientError annotates err with the subject (a *Device, *Adb, or
// similar) and the method that failed, preserving err's code.
func wrapClientError(err error, subject fmt.Stringer, method string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if len(args) > 0 {
		method = fmt.Sprintf(method, args...)
	}
	return errors.WrapErrf(err, "%s(%s)", method, subject)
}

var (
	// ErrPackageNotExist is returned by StatPackage when the package
	// isn't found.
	ErrPackageNotExist = errors.Errorf(errors.DeviceNotFound, "package does not exist")
)

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

func containsWhitespace(s string) bool {
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return true
		}
	}
	return false
}
