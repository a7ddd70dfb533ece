// Package sensor drives an optical fingerprint module through one
// verification attempt: connect, wait for a finger, extract features, and
// search the voter's enrolled template pages. The physical sensor is a
// single serial device, so attempts are serialized and every attempt opens
// and closes its own channel.
package sensor

import "errors"

// Code is a module confirmation code, returned in the acknowledge packet of
// every command.
type Code byte

// Confirmation codes used by the session. The module defines more; anything
// the session does not recognize is treated as a device error.
const (
	CodeOK            Code = 0x00
	CodePacketErr     Code = 0x01
	CodeNoFinger      Code = 0x02
	CodeCaptureFailed Code = 0x03
	CodeImageMessy    Code = 0x06
	CodeFewFeatures   Code = 0x07
	CodeNoMatch       Code = 0x08
	CodeBadPageID     Code = 0x0B
	CodeReadTemplate  Code = 0x0C
)

// Feature buffer slots on the module.
const (
	Buffer1 uint8 = 0x01
	Buffer2 uint8 = 0x02
)

// Device is the low-level command surface of the fingerprint module. Each
// call issues one command and returns the module's confirmation code; the
// error return is reserved for transport failures.
type Device interface {
	Connect() error
	Disconnect() error

	// CaptureImage asks the module to scan the sensor surface once.
	// CodeNoFinger means nothing was on the sensor.
	CaptureImage() (Code, error)

	// ExtractFeatures converts the captured image into a feature template
	// stored in the given buffer slot.
	ExtractFeatures(buffer uint8) (Code, error)

	// LoadTemplate loads the stored template page into the given buffer.
	LoadTemplate(buffer uint8, page uint16) (Code, error)

	// MatchTemplates compares Buffer1 against Buffer2 and returns the
	// match score. CodeNoMatch is the negative outcome, not an error.
	MatchTemplates() (Code, uint16, error)
}

// Terminal session outcomes. Each maps to one rejection message at the
// verification layer; none of them is retried automatically.
var (
	ErrDeviceUnavailable = errors.New("fingerprint device unavailable")
	ErrNoFinger          = errors.New("no finger detected")
	ErrExtractionFailed  = errors.New("fingerprint extraction failed")
)
