package faceemotion

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/swdee/go-depthai-lite"
)

var (
	// ErrStage2Timeout is returned when the emotion network does not reply
	// within the configured timeout
	ErrStage2Timeout = errors.New("second stage reply timed out")
	// ErrStage2Failed is returned when the request/reply round trip with the
	// emotion network fails for any reason other than a timeout
	ErrStage2Failed = errors.New("second stage round trip failed")
)

// ErrorKind enumerates the fixed error strings returned to the caller
type ErrorKind int

const (
	NoDevice         ErrorKind = 1
	DeviceNotRunning ErrorKind = 2
	Stage2Timeout    ErrorKind = 3
	Stage2Failed     ErrorKind = 4
	Internal         ErrorKind = 5
)

// String returns the wire form of the error kind
func (k ErrorKind) String() string {
	switch k {
	case NoDevice:
		return "NO_DEVICE"
	case DeviceNotRunning:
		return "DEVICE_NOT_RUNNING"
	case Stage2Timeout:
		return "STAGE2_TIMEOUT"
	case Stage2Failed:
		return "STAGE2_FAILED"
	case Internal:
		return "INTERNAL"
	default:
		return fmt.Sprintf("UNKNOWN_%d", int(k))
	}
}

// KindOf maps an error to the ErrorKind reported for it
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, depthai.ErrNoDevice):
		return NoDevice
	case errors.Is(err, depthai.ErrDeviceNotRunning):
		return DeviceNotRunning
	case errors.Is(err, ErrStage2Timeout):
		return Stage2Timeout
	case errors.Is(err, ErrStage2Failed):
		return Stage2Failed
	default:
		return Internal
	}
}

// ErrorResult returns the serialized error object for the given kind, eg:
// {"error":"NO_DEVICE"}
func ErrorResult(kind ErrorKind) string {

	b, err := json.Marshal(struct {
		Error string `json:"error"`
	}{kind.String()})

	if err != nil {
		return `{"error":"INTERNAL"}`
	}

	return string(b)
}
