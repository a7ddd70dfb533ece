package sensor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// Wire framing of the optical module: every packet starts with a two-byte
// header and the four-byte module address, followed by a packet id, a
// two-byte length, the payload, and a two-byte checksum over id+length+payload.
const (
	packetHeader  uint16 = 0xEF01
	moduleAddress uint32 = 0xFFFFFFFF

	pidCommand byte = 0x01
	pidAck     byte = 0x07

	cmdCaptureImage    byte = 0x01 // GenImg
	cmdExtractFeatures byte = 0x02 // Img2Tz
	cmdMatch           byte = 0x03 // Match
	cmdLoadTemplate    byte = 0x07 // LoadChar
)

const (
	// DefaultBaudRate is the module's factory serial speed.
	DefaultBaudRate = 57600

	// readTimeout bounds a single acknowledge read so a wedged module
	// cannot hang a session past its poll budget.
	readTimeout = 2 * time.Second
)

// SerialDevice speaks the module packet protocol over a serial port.
type SerialDevice struct {
	portName string
	baudRate int
	port     serial.Port
}

// NewSerialDevice creates a device for the given port. A zero baud rate
// selects the module default.
func NewSerialDevice(portName string, baudRate int) *SerialDevice {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	return &SerialDevice{portName: portName, baudRate: baudRate}
}

// Connect opens the serial channel. Fails when the port does not exist or
// is held by another process; there is no retry at this layer.
func (d *SerialDevice) Connect() error {
	if d.portName == "" {
		return errors.New("no serial port configured")
	}

	port, err := serial.Open(d.portName, &serial.Mode{BaudRate: d.baudRate})
	if err != nil {
		return fmt.Errorf("opening %s: %w", d.portName, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return fmt.Errorf("setting read timeout on %s: %w", d.portName, err)
	}

	d.port = port
	return nil
}

// Disconnect closes the serial channel. Safe to call on a device that never
// connected.
func (d *SerialDevice) Disconnect() error {
	if d.port == nil {
		return nil
	}
	err := d.port.Close()
	d.port = nil
	if err != nil {
		return fmt.Errorf("closing %s: %w", d.portName, err)
	}
	return nil
}

// CaptureImage issues GenImg.
func (d *SerialDevice) CaptureImage() (Code, error) {
	payload, err := d.command(cmdCaptureImage)
	if err != nil {
		return 0, err
	}
	return Code(payload[0]), nil
}

// ExtractFeatures issues Img2Tz into the given buffer.
func (d *SerialDevice) ExtractFeatures(buffer uint8) (Code, error) {
	payload, err := d.command(cmdExtractFeatures, buffer)
	if err != nil {
		return 0, err
	}
	return Code(payload[0]), nil
}

// LoadTemplate issues LoadChar for the stored page into the given buffer.
func (d *SerialDevice) LoadTemplate(buffer uint8, page uint16) (Code, error) {
	payload, err := d.command(cmdLoadTemplate, buffer, byte(page>>8), byte(page))
	if err != nil {
		return 0, err
	}
	return Code(payload[0]), nil
}

// MatchTemplates issues Match, comparing Buffer1 against Buffer2. The ack
// payload carries the match score after the confirmation code.
func (d *SerialDevice) MatchTemplates() (Code, uint16, error) {
	payload, err := d.command(cmdMatch)
	if err != nil {
		return 0, 0, err
	}
	var score uint16
	if len(payload) >= 3 {
		score = binary.BigEndian.Uint16(payload[1:3])
	}
	return Code(payload[0]), score, nil
}

// command writes one command packet and reads its acknowledge packet,
// returning the ack payload (confirmation code plus any parameters).
func (d *SerialDevice) command(cmd byte, params ...byte) ([]byte, error) {
	if d.port == nil {
		return nil, errors.New("device not connected")
	}

	packet := buildPacket(pidCommand, append([]byte{cmd}, params...))
	if _, err := d.port.Write(packet); err != nil {
		return nil, fmt.Errorf("writing command %#02x: %w", cmd, err)
	}

	payload, err := d.readAck()
	if err != nil {
		return nil, fmt.Errorf("reading ack for command %#02x: %w", cmd, err)
	}
	return payload, nil
}

// buildPacket frames a payload for the wire.
func buildPacket(pid byte, payload []byte) []byte {
	// Length covers the payload plus the checksum.
	length := uint16(len(payload) + 2)

	packet := make([]byte, 0, 9+len(payload)+2)
	packet = binary.BigEndian.AppendUint16(packet, packetHeader)
	packet = binary.BigEndian.AppendUint32(packet, moduleAddress)
	packet = append(packet, pid)
	packet = binary.BigEndian.AppendUint16(packet, length)
	packet = append(packet, payload...)

	var sum uint16
	for _, b := range packet[6:] {
		sum += uint16(b)
	}
	return binary.BigEndian.AppendUint16(packet, sum)
}

// readAck reads and validates one acknowledge packet.
func (d *SerialDevice) readAck() ([]byte, error) {
	header := make([]byte, 9)
	if _, err := io.ReadFull(d.port, header); err != nil {
		return nil, fmt.Errorf("reading packet header: %w", err)
	}

	if binary.BigEndian.Uint16(header[0:2]) != packetHeader {
		return nil, errors.New("bad packet header")
	}
	if binary.BigEndian.Uint32(header[2:6]) != moduleAddress {
		return nil, errors.New("unexpected module address")
	}
	if header[6] != pidAck {
		return nil, fmt.Errorf("unexpected packet id %#02x", header[6])
	}

	length := binary.BigEndian.Uint16(header[7:9])
	if length < 3 {
		return nil, fmt.Errorf("short ack packet: length %d", length)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(d.port, body); err != nil {
		return nil, fmt.Errorf("reading packet body: %w", err)
	}

	payload := body[:length-2]
	var sum uint16
	sum += uint16(header[6])
	sum += uint16(header[7]) + uint16(header[8])
	for _, b := range payload {
		sum += uint16(b)
	}
	if sum != binary.BigEndian.Uint16(body[length-2:]) {
		return nil, errors.New("ack checksum mismatch")
	}

	return payload, nil
}
