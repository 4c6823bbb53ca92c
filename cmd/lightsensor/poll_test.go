package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/lightsensor/bh1750"
	"github.com/mklimuk/lightsensor/metrics"
	"github.com/mklimuk/lightsensor/sink"
)

type recordingSink struct {
	mx       sync.Mutex
	readings []sink.Reading
	onWrite  func()
}

func (r *recordingSink) Write(ctx context.Context, reading sink.Reading) error {
	r.mx.Lock()
	r.readings = append(r.readings, reading)
	r.mx.Unlock()
	if r.onWrite != nil {
		r.onWrite()
	}
	return nil
}

func (r *recordingSink) Close() error { return nil }

func newTestPoller(dev *bh1750.MockDevice, out sink.Sink) *poller {
	return &poller{
		dispatcher: bh1750.NewDispatcher(dev),
		timing:     dev.Timing,
		sink:       out,
		collector:  metrics.NewCollector(),
		mode:       bh1750.OneShotLowRes,
		interval:   time.Millisecond,
	}
}

func TestPoller_Run(t *testing.T) {
	dev := bh1750.NewMockDevice(func(ctx context.Context, mode bh1750.Mode) (uint16, error) {
		return 120, nil
	})
	out := &recordingSink{}
	p := newTestPoller(dev, out)
	p.count = 3
	p.setTiming = 100

	n, err := p.run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, out.readings, 3)
	assert.Equal(t, 100, out.readings[0].Timing)
	assert.InDelta(t, 69.0, out.readings[0].Lux, 0.001)
	assert.Equal(t, 100, dev.Timing())
	assert.Equal(t, bh1750.PoweredDown, dev.PowerState())
}

func TestPoller_BusErrorsDoNotStopPolling(t *testing.T) {
	calls := 0
	dev := bh1750.NewMockDevice(func(ctx context.Context, mode bh1750.Mode) (uint16, error) {
		calls++
		if calls%2 == 0 {
			return 0, fmt.Errorf("%w: nack", bh1750.ErrBus)
		}
		return 7, nil
	})
	out := &recordingSink{}
	p := newTestPoller(dev, out)
	p.count = 4

	n, err := p.run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, out.readings, 2)
	expected := `
# HELP lightsensor_last_reading_raw Raw value of the last successful measurement.
# TYPE lightsensor_last_reading_raw gauge
lightsensor_last_reading_raw 7
`
	assert.NoError(t, testutil.GatherAndCompare(p.collector.Registry(), strings.NewReader(expected), "lightsensor_last_reading_raw"))
}

func TestPoller_InvalidTiming(t *testing.T) {
	dev := bh1750.NewMockDevice(func(ctx context.Context, mode bh1750.Mode) (uint16, error) {
		return 1, nil
	})
	out := &recordingSink{}
	p := newTestPoller(dev, out)
	p.setTiming = 10

	n, err := p.run(context.Background())
	assert.ErrorIs(t, err, bh1750.ErrInvalidArgument)
	assert.Zero(t, n)
	assert.Empty(t, out.readings)
}

func TestPoller_StopsOnCancel(t *testing.T) {
	dev := bh1750.NewMockDevice(func(ctx context.Context, mode bh1750.Mode) (uint16, error) {
		return 1, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &recordingSink{onWrite: cancel}
	p := newTestPoller(dev, out)
	p.interval = time.Hour

	n, err := p.run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, bh1750.PoweredDown, dev.PowerState())
}
