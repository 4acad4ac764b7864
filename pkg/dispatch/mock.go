package dispatch

import (
	"bytes"
	"errors"
	"strings"
	"sync"
)

// ErrPortClosed is returned by MockPort after Close.
var ErrPortClosed = errors.New("dispatch: port closed")

// MockPort implements Port for testing.
type MockPort struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool

	// WriteErr, when set, is returned by every Write.
	WriteErr error
}

// Write implements io.Writer.
func (p *MockPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, ErrPortClosed
	}
	if p.WriteErr != nil {
		return 0, p.WriteErr
	}
	return p.buf.Write(b)
}

// Close implements Port.
func (p *MockPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Commands returns every command written so far, without the trailing \r.
func (p *MockPort) Commands() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	raw := strings.TrimSuffix(p.buf.String(), "\r")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "\r")
}
