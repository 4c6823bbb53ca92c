package bh1750

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Device is the set of operations the dispatcher drives. *Session implements it.
type Device interface {
	Power(ctx context.Context, on bool) error
	Reset(ctx context.Context) error
	SetTiming(ctx context.Context, value int) error
	Read(ctx context.Context, mode Mode) (uint16, error)
}

var _ Device = &Session{}

// Observer is notified about every dispatched request.
type Observer interface {
	ObserveOperation(tag string, d time.Duration, err error)
	ObserveWarning(tag string, err error)
}

// Response carries the reading of a read request. HasReading is false for
// power, reset and timing requests.
type Response struct {
	Tag        string
	Reading    uint16
	HasReading bool
}

type DispatcherOpt func(*Dispatcher)

func WithObserver(o Observer) DispatcherOpt {
	return func(d *Dispatcher) {
		d.observer = o
	}
}

func WithDispatchLogger(logger *slog.Logger) DispatcherOpt {
	return func(d *Dispatcher) {
		d.log = logger
	}
}

// Dispatcher routes external requests to a single device.
type Dispatcher struct {
	dev      Device
	observer Observer
	log      *slog.Logger
}

func NewDispatcher(dev Device, opts ...DispatcherOpt) *Dispatcher {
	d := &Dispatcher{dev: dev}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = slog.Default()
	}
	return d
}

// Dispatch executes req. Device errors are returned unchanged.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Response, error) {
	if req == nil {
		return Response{}, fmt.Errorf("%w: empty request", ErrUnsupportedOperation)
	}
	start := time.Now()
	res := Response{Tag: req.Tag()}
	var err error
	switch r := req.(type) {
	case PowerOn:
		err = d.dev.Power(ctx, true)
	case PowerOff:
		err = d.dev.Power(ctx, false)
	case Reset:
		err = d.dev.Reset(ctx)
	case ChangeTiming:
		err = d.dev.SetTiming(ctx, r.Value)
	case Read:
		res.Reading, err = d.dev.Read(ctx, r.Mode)
		res.HasReading = err == nil
	default:
		err = fmt.Errorf("%w: %T", ErrUnsupportedOperation, req)
	}
	elapsed := time.Since(start)
	if d.observer != nil {
		d.observer.ObserveOperation(res.Tag, elapsed, err)
	}
	if err != nil {
		d.log.Debug("request failed", "request", res.Tag, "error", err)
		return Response{Tag: res.Tag}, err
	}
	d.log.Debug("request done", "request", res.Tag, "elapsed", elapsed)
	return res, nil
}

// DispatchTag parses a textual request and dispatches it.
func (d *Dispatcher) DispatchTag(ctx context.Context, tag string, args ...string) (Response, error) {
	req, err := ParseRequest(tag, args...)
	if err != nil {
		return Response{Tag: tag}, err
	}
	return d.Dispatch(ctx, req)
}
