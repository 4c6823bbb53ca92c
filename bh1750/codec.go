package bh1750

import (
	"fmt"
	"strings"
)

// Instruction set of the BH1750FVI (datasheet rev. D, p. 5).
const (
	opCodePowerDown = 0b0000_0000
	opCodePowerOn   = 0b0000_0001
	opCodeReset     = 0b0000_0111

	opCodeContinuousHighRes1 = 0b0001_0000
	opCodeContinuousHighRes2 = 0b0001_0001
	opCodeContinuousLowRes   = 0b0001_0011
	opCodeOneShotHighRes1    = 0b0010_0000
	opCodeOneShotHighRes2    = 0b0010_0001
	opCodeOneShotLowRes      = 0b0010_0011

	// measurement time register is written in two halves:
	// 01000_MT[7:5] and 011_MT[4:0]
	opCodeTimingHigh = 0b0100_0000
	opCodeTimingLow  = 0b0110_0000
	timingFragment   = 0b0001_1111
)

// Measurement time coefficient limits. DefaultTiming is the power-on value of
// the MTreg register and corresponds to the nominal 120ms window.
const (
	MinTiming     = 31
	MaxTiming     = 254
	DefaultTiming = 69
)

// Mode selects the resolution and whether the part keeps converting after a read.
type Mode int

const (
	ContinuousHighRes1 Mode = iota
	OneShotHighRes1
	ContinuousHighRes2
	OneShotHighRes2
	ContinuousLowRes
	OneShotLowRes
)

// Resolution is the measurement resolution class of a mode.
type Resolution int

const (
	// ResolutionHigh measures in 1 lx steps.
	ResolutionHigh Resolution = iota
	// ResolutionHigh2 measures in 0.5 lx steps.
	ResolutionHigh2
	// ResolutionLow measures in 4 lx steps.
	ResolutionLow
)

func (r Resolution) String() string {
	switch r {
	case ResolutionHigh:
		return "high"
	case ResolutionHigh2:
		return "high2"
	case ResolutionLow:
		return "low"
	default:
		return "unknown"
	}
}

type modeConfig struct {
	name       string
	opCode     byte
	oneShot    bool
	resolution Resolution
}

var modes = [...]modeConfig{
	ContinuousHighRes1: {"continuous-highres-1", opCodeContinuousHighRes1, false, ResolutionHigh},
	OneShotHighRes1:    {"oneshot-highres-1", opCodeOneShotHighRes1, true, ResolutionHigh},
	ContinuousHighRes2: {"continuous-highres-2", opCodeContinuousHighRes2, false, ResolutionHigh2},
	OneShotHighRes2:    {"oneshot-highres-2", opCodeOneShotHighRes2, true, ResolutionHigh2},
	ContinuousLowRes:   {"continuous-lowres", opCodeContinuousLowRes, false, ResolutionLow},
	OneShotLowRes:      {"oneshot-lowres", opCodeOneShotLowRes, true, ResolutionLow},
}

// Modes lists every measurement mode in declaration order.
func Modes() []Mode {
	return []Mode{ContinuousHighRes1, OneShotHighRes1, ContinuousHighRes2, OneShotHighRes2, ContinuousLowRes, OneShotLowRes}
}

func (m Mode) Valid() bool {
	return m >= ContinuousHighRes1 && int(m) < len(modes)
}

// OneShot reports whether the part powers down after a measurement in this mode.
func (m Mode) OneShot() bool {
	return m.Valid() && modes[m].oneShot
}

func (m Mode) Resolution() Resolution {
	if !m.Valid() {
		return ResolutionHigh
	}
	return modes[m].resolution
}

func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modes[m].name
}

// ParseMode accepts the names returned by Mode.String.
func ParseMode(name string) (Mode, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, cfg := range modes {
		if cfg.name == name {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown measurement mode %q", ErrUnsupportedOperation, name)
}

// PowerState is the logical power state of the part.
type PowerState int

const (
	PoweredDown PowerState = iota
	PoweredOn
)

func (p PowerState) String() string {
	if p == PoweredOn {
		return "on"
	}
	return "down"
}

func EncodePower(on bool) byte {
	if on {
		return opCodePowerOn
	}
	return opCodePowerDown
}

// EncodeReset returns the data register reset command. The part ignores it
// unless it is powered on.
func EncodeReset() byte {
	return opCodeReset
}

func EncodeMode(mode Mode) (byte, error) {
	if !mode.Valid() {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedOperation, mode)
	}
	return modes[mode].opCode, nil
}

// EncodeTiming splits a measurement time coefficient into the two command
// bytes that must be sent high first. Values outside [MinTiming, MaxTiming]
// are rejected rather than masked.
func EncodeTiming(value int) (byte, byte, error) {
	if value < MinTiming || value > MaxTiming {
		return 0, 0, fmt.Errorf("%w: measurement time %d out of range [%d, %d]", ErrInvalidArgument, value, MinTiming, MaxTiming)
	}
	high := opCodeTimingHigh | byte(value>>5)&timingFragment
	low := opCodeTimingLow | byte(value)&timingFragment
	return high, low, nil
}

// DecodeReading assembles the big-endian measurement result.
func DecodeReading(data [2]byte) uint16 {
	return uint16(data[0])<<8 | uint16(data[1])
}

// Lux converts a raw reading into lux for the given mode and measurement time
// coefficient. A non-positive timing is treated as DefaultTiming.
func Lux(raw uint16, mode Mode, timing int) float64 {
	if timing <= 0 {
		timing = DefaultTiming
	}
	// measurement accuracy is 1.2 counts per lx at the default window
	lux := float64(raw) / 1.2 * float64(DefaultTiming) / float64(timing)
	if mode.Resolution() == ResolutionHigh2 {
		lux /= 2
	}
	return lux
}
