// Package sink forwards measurements to their consumers.
package sink

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mklimuk/lightsensor/bh1750"
)

type Reading struct {
	Time   time.Time
	Mode   bh1750.Mode
	Timing int
	Raw    uint16
	Lux    float64
}

// NewReading stamps a raw measurement and converts it to lux.
func NewReading(mode bh1750.Mode, timing int, raw uint16) Reading {
	return Reading{
		Time:   time.Now(),
		Mode:   mode,
		Timing: timing,
		Raw:    raw,
		Lux:    bh1750.Lux(raw, mode, timing),
	}
}

type Sink interface {
	Write(ctx context.Context, r Reading) error
	Close() error
}

// Log writes readings to a structured logger.
type Log struct {
	log *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{log: logger}
}

func (l *Log) Write(ctx context.Context, r Reading) error {
	l.log.InfoContext(ctx, "measurement", "mode", r.Mode, "raw", r.Raw, "lux", r.Lux)
	return nil
}

func (l *Log) Close() error {
	return nil
}

type multi []Sink

// Multi writes every reading to all sinks and joins their errors.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

func (m multi) Write(ctx context.Context, r Reading) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
