package bh1750

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// MinSettleTime is the shortest wait between a measurement command and the
// data read. High resolution conversions take up to 180ms at the default
// measurement time; reading earlier returns the previous result.
const MinSettleTime = 180 * time.Millisecond

// WarningHandler receives failures that do not change the outcome of an
// operation, such as the power-down after a one-shot read.
type WarningHandler func(op string, err error)

type SessionOpts struct {
	SettleTime     time.Duration
	Logger         *slog.Logger
	WarningHandler WarningHandler
}

type SessionOpt func(*SessionOpts)

// WithSettleTime lengthens the wait after a measurement command. Values
// below MinSettleTime are raised to it.
func WithSettleTime(d time.Duration) SessionOpt {
	return func(o *SessionOpts) {
		o.SettleTime = d
	}
}

func WithLogger(logger *slog.Logger) SessionOpt {
	return func(o *SessionOpts) {
		o.Logger = logger
	}
}

func WithWarningHandler(h WarningHandler) SessionOpt {
	return func(o *SessionOpts) {
		o.WarningHandler = h
	}
}

// Session owns a single BH1750 and guarantees that operations on it never
// interleave on the bus. A read holds the session for the whole settling
// time, so a concurrent caller waits for the measurement to finish.
//
// There is no timeout here: a device that never answers blocks its caller for
// as long as the transport lets it.
type Session struct {
	mx sync.Mutex

	config    SessionOpts
	transport Transport
	log       *slog.Logger

	stateMx sync.Mutex
	power   PowerState
	timing  int
}

func NewSession(transport Transport, opts ...SessionOpt) *Session {
	config := SessionOpts{
		SettleTime: MinSettleTime,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.SettleTime < MinSettleTime {
		config.SettleTime = MinSettleTime
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		config:    config,
		transport: transport,
		log:       logger.With("device", "bh1750"),
		power:     PoweredDown,
		timing:    DefaultTiming,
	}
}

// Init powers the device on so that it is ready for reset and measurement commands.
func (s *Session) Init(ctx context.Context) error {
	return s.Power(ctx, true)
}

// PowerState returns the last power state the session commanded successfully.
func (s *Session) PowerState() PowerState {
	s.stateMx.Lock()
	defer s.stateMx.Unlock()
	return s.power
}

// Timing returns the last measurement time coefficient applied successfully.
func (s *Session) Timing() int {
	s.stateMx.Lock()
	defer s.stateMx.Unlock()
	return s.timing
}

func (s *Session) Power(ctx context.Context, on bool) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	cmd := EncodePower(on)
	if err := s.transport.WriteCommand(ctx, cmd); err != nil {
		return &OpError{Op: "power", Err: fmt.Errorf("could not write power command %#02x: %w", cmd, busError(err))}
	}
	state := PoweredDown
	if on {
		state = PoweredOn
	}
	s.setPower(state)
	s.log.Debug("power state changed", "power", state)
	return nil
}

// Reset clears the data register. The part only accepts it while powered on;
// issuing it in power down is left to the caller.
func (s *Session) Reset(ctx context.Context) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.PowerState() != PoweredOn {
		s.log.Debug("reset requested while powered down, the device will ignore it")
	}
	cmd := EncodeReset()
	if err := s.transport.WriteCommand(ctx, cmd); err != nil {
		return &OpError{Op: "reset", Err: fmt.Errorf("could not write reset command: %w", busError(err))}
	}
	s.log.Debug("data register reset")
	return nil
}

// SetTiming changes the measurement time register. If the second fragment
// fails to write the register holds an unknown value; the part has no way to
// roll it back.
func (s *Session) SetTiming(ctx context.Context, value int) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	high, low, err := EncodeTiming(value)
	if err != nil {
		return &OpError{Op: "set timing", Err: err}
	}
	if err := s.transport.WriteCommand(ctx, high); err != nil {
		return &OpError{Op: "set timing", Err: fmt.Errorf("could not write high fragment %#02x: %w", high, busError(err))}
	}
	if err := s.transport.WriteCommand(ctx, low); err != nil {
		return &OpError{Op: "set timing", Err: fmt.Errorf("could not write low fragment %#02x: %w", low, busError(err))}
	}
	s.stateMx.Lock()
	s.timing = value
	s.stateMx.Unlock()
	s.log.Debug("measurement time changed", "timing", value)
	return nil
}

// Read starts a measurement in the given mode, waits for the conversion and
// returns the raw 16 bit result. After a one-shot measurement the device is
// powered down; a failure to do so is reported as a warning only.
func (s *Session) Read(ctx context.Context, mode Mode) (uint16, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	cmd, err := EncodeMode(mode)
	if err != nil {
		return 0, &OpError{Op: "read", Err: err}
	}
	log := s.log.With("mode", mode)
	if err := s.transport.WriteCommand(ctx, cmd); err != nil {
		return 0, &OpError{Op: "read", Err: fmt.Errorf("could not write mode command %#02x: %w", cmd, busError(err))}
	}
	// a started conversion cannot be aborted, so the wait ignores ctx
	time.Sleep(s.config.SettleTime)
	data, err := s.transport.ReadBytes(ctx, 2)
	if err != nil {
		return 0, &OpError{Op: "read", Err: fmt.Errorf("could not read data: %w", busError(err))}
	}
	if len(data) != 2 {
		return 0, &OpError{Op: "read", Err: fmt.Errorf("%w: expected 2 bytes, got %d", ErrReadSizeMismatch, len(data))}
	}
	value := DecodeReading([2]byte{data[0], data[1]})
	log.Debug("measurement read", "raw", value)
	if mode.OneShot() {
		s.powerDownAfterRead(ctx, log)
	}
	return value, nil
}

func (s *Session) powerDownAfterRead(ctx context.Context, log *slog.Logger) {
	err := s.transport.WriteCommand(ctx, EncodePower(false))
	if err != nil {
		err = fmt.Errorf("could not power down after one-shot read: %w", busError(err))
		log.Warn("power down failed", "error", err)
		if s.config.WarningHandler != nil {
			s.config.WarningHandler("read", err)
		}
		return
	}
	s.setPower(PoweredDown)
}

func (s *Session) setPower(state PowerState) {
	s.stateMx.Lock()
	s.power = state
	s.stateMx.Unlock()
}
