package dispatch

import (
	"fmt"
	"strings"

	"go.bug.st/serial"
)

// Serial defaults for the motor controller board.
const (
	DefaultPortPath = "/dev/ttyUSB0"
	DefaultBaudRate = 9600
)

var standardBaudRates = map[int]bool{
	1200: true, 2400: true, 4800: true, 9600: true, 19200: true,
	38400: true, 57600: true, 115200: true,
}

// PortOptions describes the serial connection parameters for the motor board.
type PortOptions struct {
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`
}

// Normalize validates the options and applies defaults for any unset values.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o

	if opts.BaudRate <= 0 {
		opts.BaudRate = DefaultBaudRate
	}
	if !standardBaudRates[opts.BaudRate] {
		return opts, fmt.Errorf("invalid baud rate %d", opts.BaudRate)
	}

	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	switch strings.TrimSpace(strings.ToUpper(opts.Parity)) {
	case "", "N", "NONE":
		opts.Parity = "N"
	case "E", "EVEN":
		opts.Parity = "E"
	case "O", "ODD":
		opts.Parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}

	return opts, nil
}

// SerialMode converts the options into the go.bug.st/serial Mode.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}

	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	}

	return mode, nil
}
