package lightsensor

import (
	"context"
	"fmt"
)

var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")

// ErrShortRead is returned by backends that can tell how many bytes the
// device actually delivered and got fewer than requested.
var ErrShortRead = fmt.Errorf("short read from i2c device")

// ShortReadError reports a read that delivered N bytes instead of the
// requested size.
type ShortReadError struct {
	Want int
	Got  int
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("%s: wanted %d bytes, got %d", ErrShortRead, e.Want, e.Got)
}

func (e *ShortReadError) Unwrap() error {
	return ErrShortRead
}

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

type I2CBus interface {
	AddressableReader
	AddressableWriter
}
