package bh1750

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	TagPowerOn      = "power-on"
	TagPowerOff     = "power-off"
	TagReset        = "reset"
	TagChangeTiming = "change-timing"

	readTagPrefix = "read-"
)

// Request is one of PowerOn, PowerOff, Reset, ChangeTiming or Read.
type Request interface {
	Tag() string
	isRequest()
}

type PowerOn struct{}

type PowerOff struct{}

type Reset struct{}

// ChangeTiming sets the measurement time coefficient.
type ChangeTiming struct {
	Value int
}

// Read measures once in Mode.
type Read struct {
	Mode Mode
}

func (PowerOn) Tag() string      { return TagPowerOn }
func (PowerOff) Tag() string     { return TagPowerOff }
func (Reset) Tag() string        { return TagReset }
func (ChangeTiming) Tag() string { return TagChangeTiming }
func (r Read) Tag() string       { return readTagPrefix + r.Mode.String() }

func (PowerOn) isRequest()      {}
func (PowerOff) isRequest()     {}
func (Reset) isRequest()        {}
func (ChangeTiming) isRequest() {}
func (Read) isRequest()         {}

// Tags lists the ten request tags understood by ParseRequest.
func Tags() []string {
	tags := []string{TagPowerOn, TagPowerOff, TagReset, TagChangeTiming}
	for _, m := range Modes() {
		tags = append(tags, Read{Mode: m}.Tag())
	}
	return tags
}

// ParseRequest builds a request from its textual tag. change-timing needs an
// integer argument; other requests ignore arguments.
func ParseRequest(tag string, args ...string) (Request, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	switch tag {
	case TagPowerOn:
		return PowerOn{}, nil
	case TagPowerOff:
		return PowerOff{}, nil
	case TagReset:
		return Reset{}, nil
	case TagChangeTiming:
		if len(args) == 0 {
			return nil, fmt.Errorf("%w: %s requires a measurement time argument", ErrInvalidArgument, tag)
		}
		value, err := strconv.Atoi(strings.TrimSpace(args[0]))
		if err != nil {
			return nil, fmt.Errorf("%w: measurement time %q is not an integer", ErrInvalidArgument, args[0])
		}
		return ChangeTiming{Value: value}, nil
	}
	if name, ok := strings.CutPrefix(tag, readTagPrefix); ok {
		mode, err := ParseMode(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedOperation, tag)
		}
		return Read{Mode: mode}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedOperation, tag)
}

// Command numbers of the legacy character device interface.
const (
	CommandPowerOn           uint = 1
	CommandPowerOff          uint = 2
	CommandReadContinuousH1  uint = 3
	CommandReadOneShotH1     uint = 4
	CommandReadContinuousH2  uint = 5
	CommandReadOneShotH2     uint = 6
	CommandReset             uint = 7
	CommandChangeTiming      uint = 8
	CommandReadContinuousLow uint = 9
	CommandReadOneShotLow    uint = 10
)

// RequestFromCommand maps a legacy command number to a request. arg is only
// used by CommandChangeTiming.
func RequestFromCommand(nr uint, arg int) (Request, error) {
	switch nr {
	case CommandPowerOn:
		return PowerOn{}, nil
	case CommandPowerOff:
		return PowerOff{}, nil
	case CommandReadContinuousH1:
		return Read{Mode: ContinuousHighRes1}, nil
	case CommandReadOneShotH1:
		return Read{Mode: OneShotHighRes1}, nil
	case CommandReadContinuousH2:
		return Read{Mode: ContinuousHighRes2}, nil
	case CommandReadOneShotH2:
		return Read{Mode: OneShotHighRes2}, nil
	case CommandReset:
		return Reset{}, nil
	case CommandChangeTiming:
		return ChangeTiming{Value: arg}, nil
	case CommandReadContinuousLow:
		return Read{Mode: ContinuousLowRes}, nil
	case CommandReadOneShotLow:
		return Read{Mode: OneShotLowRes}, nil
	default:
		return nil, fmt.Errorf("%w: command number %d", ErrUnsupportedOperation, nr)
	}
}
