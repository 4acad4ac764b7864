package detection

import (
	"sync"

	"github.com/teslashibe/go-rover/pkg/navigation"
)

// Mock implements Detector for testing and offline runs.
type Mock struct {
	// DetectFunc is called when Detect is invoked.
	DetectFunc func(jpeg []byte) (Frame, error)

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	mu    sync.Mutex
	calls int
}

// NewMock creates a mock that always reports the given frame.
func NewMock(frame Frame) *Mock {
	return &Mock{
		DetectFunc: func([]byte) (Frame, error) {
			return frame, nil
		},
	}
}

// NewEmptyMock creates a mock that sees nothing in a 416x416 detector frame.
func NewEmptyMock() *Mock {
	return NewMock(Frame{Width: 416, Height: 416, Space: navigation.SpaceDetector})
}

// Detect implements Detector.
func (m *Mock) Detect(jpeg []byte) (Frame, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.DetectFunc == nil {
		return Frame{}, nil
	}
	return m.DetectFunc(jpeg)
}

// Close implements Detector.
func (m *Mock) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Calls returns how many times Detect was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
