package dispatch

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/navigation"
)

// DefaultRepeat is how often Hold re-sends a command. The motor board stops
// on its own if it stops hearing from us.
const DefaultRepeat = 100 * time.Millisecond

// Mover sends one direction to the motors.
type Mover interface {
	Move(ctx context.Context, dir Direction) error
}

// Port is the write side of a serial connection. serial.Port satisfies it.
type Port interface {
	io.Writer
	Close() error
}

// Dispatcher writes motor commands to a serial port.
type Dispatcher struct {
	port  Port
	speed int
	mu    sync.Mutex
}

// New creates a dispatcher over an already-open port.
func New(port Port, speed int) *Dispatcher {
	if speed <= 0 {
		speed = DefaultSpeed
	}
	return &Dispatcher{port: port, speed: speed}
}

// Open opens the serial port at path and returns a dispatcher for it.
func Open(path string, opts PortOptions, speed int) (*Dispatcher, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", path, err)
	}

	log.Info("serial port opened", "path", path, "baud", mode.BaudRate)
	return New(port, speed), nil
}

// Move writes the command for dir once.
func (d *Dispatcher) Move(ctx context.Context, dir Direction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := io.WriteString(d.port, dir.Command(d.speed)); err != nil {
		return fmt.Errorf("write %s: %w", dir, err)
	}
	return nil
}

// Close closes the underlying port.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.port.Close()
}

// Execute sends the plan for instr to m, stopping at the first error.
func Execute(ctx context.Context, m Mover, instr navigation.Instruction) error {
	for _, dir := range Plan(instr) {
		if err := m.Move(ctx, dir); err != nil {
			return err
		}
	}
	return nil
}

// Hold repeats dir every interval until ctx is done, then sends Stop.
// Cancellation is the normal way to end a hold and is not reported as an error.
func Hold(ctx context.Context, m Mover, dir Direction, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultRepeat
	}

	if err := m.Move(ctx, dir); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if dir == Stop {
				return nil
			}
			// ctx is already done; the stop must still go out.
			return m.Move(context.Background(), Stop)
		case <-ticker.C:
			if err := m.Move(ctx, dir); err != nil && ctx.Err() == nil {
				return err
			}
		}
	}
}
