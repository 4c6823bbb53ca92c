package console

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/lightsensor/bh1750"
)

// Exit codes for sensor failures.
const (
	ExitFailure     = 1
	ExitInvalidArg  = 2
	ExitUnsupported = 3
	ExitBus         = 4
)

func Exit(code int, msg string, args ...interface{}) cli.ExitCoder {
	return cli.Exit(fmt.Sprintf(msg, args...), code)
}

// ExitCode maps a sensor error to the process exit code.
func ExitCode(err error) int {
	switch {
	case errors.Is(err, bh1750.ErrInvalidArgument):
		return ExitInvalidArg
	case errors.Is(err, bh1750.ErrUnsupportedOperation):
		return ExitUnsupported
	case errors.Is(err, bh1750.ErrBus):
		return ExitBus
	default:
		return ExitFailure
	}
}

// ExitErr wraps err into an exit error carrying ExitCode(err).
func ExitErr(msg string, err error) cli.ExitCoder {
	return Exit(ExitCode(err), "%s: %s", msg, Red(err))
}
