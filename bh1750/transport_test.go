package bh1750

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/lightsensor"
)

// MockI2CBus is a mock implementation of lightsensor.I2CBus using testify/mock
type MockI2CBus struct {
	mock.Mock
	concurrentOps int64
	maxConcurrent int64
	mu            sync.Mutex
}

func (m *MockI2CBus) track(delta int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	concurrent := atomic.AddInt64(&m.concurrentOps, delta)
	if concurrent > atomic.LoadInt64(&m.maxConcurrent) {
		atomic.StoreInt64(&m.maxConcurrent, concurrent)
	}
}

func (m *MockI2CBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	m.track(1)
	defer m.track(-1)
	args := m.Called(ctx, address, buffer)
	return args.Error(0)
}

func (m *MockI2CBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	m.track(1)
	defer m.track(-1)
	args := m.Called(ctx, address, buffer)
	if data, ok := args.Get(0).([]byte); ok && len(data) <= len(buffer) {
		copy(buffer, data)
	}
	return args.Error(1)
}

func (m *MockI2CBus) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestBusTransport_WriteCommand(t *testing.T) {
	bus := new(MockI2CBus)
	tr := NewBusTransport(bus, AddrHigh)
	bus.On("WriteToAddr", mock.Anything, byte(0x5C), []byte{0x23}).Return(nil).Once()
	bus.On("WriteToAddr", mock.Anything, byte(0x5C), []byte{0x07}).Return(errors.New("nack")).Once()

	require.NoError(t, tr.WriteCommand(context.Background(), 0x23))
	assert.EqualError(t, tr.WriteCommand(context.Background(), 0x07), "nack")
	bus.AssertExpectations(t)
}

func TestBusTransport_ReadBytes(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		err      error
		expected []byte
		wantErr  bool
	}{
		{"full read", []byte{0x12, 0x34}, nil, []byte{0x12, 0x34}, false},
		{"short read", []byte{0x12}, &lightsensor.ShortReadError{Want: 2, Got: 1}, []byte{0x12}, false},
		{"empty read", nil, &lightsensor.ShortReadError{Want: 2, Got: 0}, []byte{}, false},
		{"bus failure", nil, errors.New("timeout"), nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := new(MockI2CBus)
			tr := NewBusTransport(bus, AddrLow)
			bus.On("ReadFromAddr", mock.Anything, byte(0x23), mock.MatchedBy(func(b []byte) bool { return len(b) == 2 })).
				Return(tt.data, tt.err).Once()

			data, err := tr.ReadBytes(context.Background(), 2)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, data)
			bus.AssertExpectations(t)
		})
	}
}

func TestSession_OverBusTransport(t *testing.T) {
	bus := new(MockI2CBus)
	s := NewSession(NewBusTransport(bus, AddrLow), WithLogger(quietLogger()))
	ctx := context.Background()
	slow := func(mock.Arguments) { time.Sleep(2 * time.Millisecond) }

	bus.On("WriteToAddr", mock.Anything, byte(AddrLow), []byte{opCodeOneShotHighRes1}).Return(nil).Run(slow)
	bus.On("ReadFromAddr", mock.Anything, byte(AddrLow), mock.Anything).Return([]byte{0x00, 0x64}, nil).Run(slow)
	bus.On("WriteToAddr", mock.Anything, byte(AddrLow), []byte{opCodePowerDown}).Return(nil).Run(slow)

	const numOps = 3
	var wg sync.WaitGroup
	wg.Add(numOps)
	for i := 0; i < numOps; i++ {
		go func() {
			defer wg.Done()
			value, err := s.Read(ctx, OneShotHighRes1)
			assert.NoError(t, err)
			assert.Equal(t, uint16(100), value)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt64(&bus.maxConcurrent), int64(1), "Mutex should serialize operations")
	bus.AssertNumberOfCalls(t, "WriteToAddr", 2*numOps)
	bus.AssertNumberOfCalls(t, "ReadFromAddr", numOps)
}

func TestSession_ShortReadFromBus(t *testing.T) {
	bus := new(MockI2CBus)
	s := NewSession(NewBusTransport(bus, AddrLow), WithLogger(quietLogger()))
	bus.On("WriteToAddr", mock.Anything, byte(AddrLow), []byte{opCodeContinuousHighRes1}).Return(nil).Once()
	bus.On("ReadFromAddr", mock.Anything, byte(AddrLow), mock.Anything).
		Return([]byte{0x01}, &lightsensor.ShortReadError{Want: 2, Got: 1}).Once()

	_, err := s.Read(context.Background(), ContinuousHighRes1)
	assert.ErrorIs(t, err, ErrReadSizeMismatch)
	bus.AssertExpectations(t)
}
