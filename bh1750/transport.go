package bh1750

import (
	"context"
	"errors"

	"github.com/mklimuk/lightsensor"
)

const AddrHigh = 0b1011100
const AddrLow = 0b0100011

// Transport is the byte level channel to a single sensor address.
// Implementations are not expected to be safe for concurrent use; Session
// serializes every call.
type Transport interface {
	WriteCommand(ctx context.Context, cmd byte) error
	// ReadBytes reads up to n bytes. A transport that can detect a short
	// transfer returns the bytes it got with a nil error.
	ReadBytes(ctx context.Context, n int) ([]byte, error)
}

var _ Transport = &BusTransport{}

// BusTransport addresses one device on a shared I2C bus.
type BusTransport struct {
	bus  lightsensor.I2CBus
	addr byte
}

func NewBusTransport(bus lightsensor.I2CBus, addr byte) *BusTransport {
	return &BusTransport{bus: bus, addr: addr}
}

func (t *BusTransport) WriteCommand(ctx context.Context, cmd byte) error {
	return t.bus.WriteToAddr(ctx, t.addr, []byte{cmd})
}

func (t *BusTransport) ReadBytes(ctx context.Context, n int) ([]byte, error) {
	buf := make([]byte, n)
	err := t.bus.ReadFromAddr(ctx, t.addr, buf)
	var short *lightsensor.ShortReadError
	if errors.As(err, &short) && short.Got >= 0 && short.Got < n {
		return buf[:short.Got], nil
	}
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Release frees the underlying bus, if the backend holds it.
func (t *BusTransport) Release(ctx context.Context) error {
	return t.bus.Release(ctx)
}
