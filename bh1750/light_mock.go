package bh1750

import (
	"context"
	"sync"
)

// ReadBehaviorFunc defines the function signature for mocked measurements.
// It returns the raw reading or an error.
type ReadBehaviorFunc func(ctx context.Context, mode Mode) (uint16, error)

var _ Device = &MockDevice{}

// MockDevice is a Device that produces readings from a behavior function
// without requiring any hardware. Power, reset and timing requests are
// validated and recorded the way a Session records them.
//
// Example usage:
//
//	// Static value
//	dev := NewMockDevice(func(ctx context.Context, mode Mode) (uint16, error) {
//		return 500, nil
//	})
//
//	// Error simulation
//	dev := NewMockDevice(func(ctx context.Context, mode Mode) (uint16, error) {
//		return 0, fmt.Errorf("%w: sensor malfunction", ErrBus)
//	})
type MockDevice struct {
	mx       sync.Mutex
	behavior ReadBehaviorFunc
	power    PowerState
	timing   int
	resets   int
}

func NewMockDevice(behavior ReadBehaviorFunc) *MockDevice {
	return &MockDevice{
		behavior: behavior,
		timing:   DefaultTiming,
	}
}

func (m *MockDevice) Power(ctx context.Context, on bool) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.power = PoweredDown
	if on {
		m.power = PoweredOn
	}
	return nil
}

func (m *MockDevice) Reset(ctx context.Context) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.resets++
	return nil
}

func (m *MockDevice) SetTiming(ctx context.Context, value int) error {
	if _, _, err := EncodeTiming(value); err != nil {
		return &OpError{Op: "set timing", Err: err}
	}
	m.mx.Lock()
	defer m.mx.Unlock()
	m.timing = value
	return nil
}

// Read returns the result of the behavior function. A successful one-shot
// read leaves the mock powered down.
func (m *MockDevice) Read(ctx context.Context, mode Mode) (uint16, error) {
	if !mode.Valid() {
		_, err := EncodeMode(mode)
		return 0, &OpError{Op: "read", Err: err}
	}
	value, err := m.behavior(ctx, mode)
	if err != nil {
		return 0, err
	}
	if mode.OneShot() {
		m.mx.Lock()
		m.power = PoweredDown
		m.mx.Unlock()
	}
	return value, nil
}

func (m *MockDevice) PowerState() PowerState {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.power
}

func (m *MockDevice) Timing() int {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.timing
}

// Resets returns how many reset requests were received.
func (m *MockDevice) Resets() int {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.resets
}
