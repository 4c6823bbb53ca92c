package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"

	"github.com/mklimuk/lightsensor"
	"github.com/mklimuk/lightsensor/adapter"
	"github.com/mklimuk/lightsensor/bh1750"
	"github.com/mklimuk/lightsensor/cmd/lightsensor/console"
	"github.com/mklimuk/lightsensor/config"
	"github.com/mklimuk/lightsensor/i2c"
	"github.com/mklimuk/lightsensor/metrics"
	"github.com/mklimuk/lightsensor/snsctx"
)

// sensor is an opened device together with the dispatcher driving it.
type sensor struct {
	dispatcher *bh1750.Dispatcher
	timing     func() int
	closers    []func() error
}

func (s *sensor) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// openSensor connects the configured backend. collector may be nil.
func openSensor(ctx context.Context, cfg *config.Config, collector *metrics.Collector) (*sensor, error) {
	s := &sensor{}
	var dev bh1750.Device
	if cfg.Adapter == config.AdapterMock {
		mock := bh1750.NewMockDevice(simulatedLight)
		dev = mock
		s.timing = mock.Timing
	} else {
		addr, err := cfg.AddressByte()
		if err != nil {
			return nil, err
		}
		bus, closeBus, err := openBus(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, closeBus)
		session := bh1750.NewSession(bh1750.NewBusTransport(bus, addr),
			bh1750.WithLogger(snsctx.Logger(ctx)),
			bh1750.WithWarningHandler(func(op string, err error) {
				console.Warnf("%s: %s", op, err)
				if collector != nil {
					collector.ObserveWarning(op, err)
				}
			}),
		)
		dev = session
		s.timing = session.Timing
	}
	opts := []bh1750.DispatcherOpt{bh1750.WithDispatchLogger(snsctx.Logger(ctx))}
	if collector != nil {
		opts = append(opts, bh1750.WithObserver(collector))
	}
	s.dispatcher = bh1750.NewDispatcher(dev, opts...)
	return s, nil
}

func openBus(ctx context.Context, cfg *config.Config) (lightsensor.I2CBus, func() error, error) {
	switch cfg.Adapter {
	case config.AdapterMCP2221:
		a := adapter.NewMCP2221()
		if err := a.Init(); err != nil {
			return nil, nil, fmt.Errorf("adapter initialization error: %w", err)
		}
		if cfg.Speed > 0 {
			if err := a.SetSpeed(ctx, cfg.Speed); err != nil {
				return nil, nil, err
			}
		}
		return a, func() error { return nil }, nil
	case config.AdapterGeneric:
		b, err := i2c.NewGenericBus(cfg.Device)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Speed > 0 {
			if err := b.SetSpeed(int64(cfg.Speed)); err != nil {
				_ = b.Close()
				return nil, nil, err
			}
		}
		return b, b.Close, nil
	case config.AdapterNanoPi:
		npi := nanopi.NewNeoAdaptor()
		if err := npi.I2cBusAdaptor.Connect(); err != nil {
			return nil, nil, fmt.Errorf("adaptor connect error: %w", err)
		}
		b := i2c.NewGobotBus(npi, cfg.Bus)
		return b, func() error {
			return errors.Join(b.Close(), npi.I2cBusAdaptor.Finalize())
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown adapter %q", cfg.Adapter)
}

// simulatedLight backs the mock adapter with an office-like reading.
func simulatedLight(ctx context.Context, mode bh1750.Mode) (uint16, error) {
	raw := 480 + rand.IntN(40)
	if mode.Resolution() == bh1750.ResolutionHigh2 {
		raw *= 2
	}
	return uint16(raw), nil
}
