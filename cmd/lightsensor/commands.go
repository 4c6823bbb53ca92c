package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/lightsensor/bh1750"
	"github.com/mklimuk/lightsensor/cmd/lightsensor/console"
)

var powerCmd = cli.Command{
	Name:      "power",
	Usage:     "switch the sensor on or off",
	ArgsUsage: "on|off",
	Action: func(c *cli.Context) error {
		var req bh1750.Request
		switch strings.ToLower(c.Args().First()) {
		case "on":
			req = bh1750.PowerOn{}
		case "off":
			req = bh1750.PowerOff{}
		default:
			return console.Exit(console.ExitInvalidArg, "expected %s or %s", console.Bold("on"), console.Bold("off"))
		}
		return dispatchAndPrint(c, req)
	},
}

var resetCmd = cli.Command{
	Name:  "reset",
	Usage: "clear the data register (the sensor must be powered on)",
	Action: func(c *cli.Context) error {
		return dispatchAndPrint(c, bh1750.Reset{})
	},
}

var timingCmd = cli.Command{
	Name:      "timing",
	Usage:     fmt.Sprintf("set the measurement time coefficient (%d-%d)", bh1750.MinTiming, bh1750.MaxTiming),
	ArgsUsage: "<value>",
	Action: func(c *cli.Context) error {
		req, err := bh1750.ParseRequest(bh1750.TagChangeTiming, c.Args().Slice()...)
		if err != nil {
			return console.ExitErr("invalid request", err)
		}
		return dispatchAndPrint(c, req)
	},
}

var readCmd = cli.Command{
	Name:    "read",
	Aliases: []string{"rd"},
	Usage:   "take a measurement",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "mode",
			Aliases: []string{"m"},
			Usage:   "measurement mode: " + strings.Join(modeNames(), ", "),
		},
		&cli.BoolFlag{
			Name:  "lux",
			Usage: "print the reading converted to lux",
		},
	},
	Action: func(c *cli.Context) error {
		cfg := getConfig(c)
		name := cfg.Mode
		if c.IsSet("mode") {
			name = c.String("mode")
		}
		mode, err := bh1750.ParseMode(name)
		if err != nil {
			return console.ExitErr("invalid mode", err)
		}
		return withSensor(c, func(ctx context.Context, s *sensor) error {
			res, err := s.dispatcher.Dispatch(ctx, bh1750.Read{Mode: mode})
			if err != nil {
				return console.ExitErr("error getting light sensor read", err)
			}
			if c.Bool("lux") {
				console.Printf("%s lux\n", console.White(fmt.Sprintf("%.2f", bh1750.Lux(res.Reading, mode, s.timing()))))
				return nil
			}
			console.Printf("%s\n", console.White(res.Reading))
			return nil
		})
	},
}

var execCmd = cli.Command{
	Name:      "exec",
	Usage:     "execute a request by tag or legacy command number",
	ArgsUsage: "<tag|number> [argument]",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "list",
			Usage: "list request tags",
		},
	},
	Action: func(c *cli.Context) error {
		if c.Bool("list") {
			printTags(console.Output())
			return nil
		}
		req, err := parseRequest(c.Args().Slice())
		if err != nil {
			return console.ExitErr("invalid request", err)
		}
		return dispatchAndPrint(c, req)
	},
}

// withSensor opens the configured sensor for the duration of fn.
func withSensor(c *cli.Context, fn func(ctx context.Context, s *sensor) error) error {
	ctx := commandContext(c)
	s, err := openSensor(ctx, getConfig(c), nil)
	if err != nil {
		return console.Exit(console.ExitFailure, "could not open sensor: %s", console.Red(err))
	}
	defer func() {
		if err := s.Close(); err != nil {
			console.Warnf("could not close sensor: %s", err)
		}
	}()
	return fn(ctx, s)
}

func dispatchAndPrint(c *cli.Context, req bh1750.Request) error {
	return withSensor(c, func(ctx context.Context, s *sensor) error {
		res, err := s.dispatcher.Dispatch(ctx, req)
		if err != nil {
			return console.ExitErr(req.Tag()+" failed", err)
		}
		console.Printf("%s\n", formatResponse(req, res, s.timing()))
		return nil
	})
}

// parseRequest builds a request from command line fields. The first field is
// a request tag or a legacy command number; the second is its argument.
func parseRequest(fields []string) (bh1750.Request, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: missing request", bh1750.ErrInvalidArgument)
	}
	nr, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return bh1750.ParseRequest(fields[0], fields[1:]...)
	}
	arg := 0
	if len(fields) > 1 {
		arg, err = strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%w: argument %q is not an integer", bh1750.ErrInvalidArgument, fields[1])
		}
	} else if uint(nr) == bh1750.CommandChangeTiming {
		return nil, fmt.Errorf("%w: command %d requires a measurement time argument", bh1750.ErrInvalidArgument, nr)
	}
	return bh1750.RequestFromCommand(uint(nr), arg)
}

func formatResponse(req bh1750.Request, res bh1750.Response, timing int) string {
	read, ok := req.(bh1750.Read)
	if !ok || !res.HasReading {
		return fmt.Sprintf("%s %s", res.Tag, console.Green("ok"))
	}
	return fmt.Sprintf("%s %s (%s lx)", res.Tag, console.White(res.Reading),
		console.White(fmt.Sprintf("%.2f", bh1750.Lux(res.Reading, read.Mode, timing))))
}

func printTags(w io.Writer) {
	for _, tag := range bh1750.Tags() {
		if tag == bh1750.TagChangeTiming {
			_, _ = fmt.Fprintf(w, "%s <%d-%d>\n", tag, bh1750.MinTiming, bh1750.MaxTiming)
			continue
		}
		_, _ = fmt.Fprintln(w, tag)
	}
}

func modeNames() []string {
	var names []string
	for _, m := range bh1750.Modes() {
		names = append(names, m.String())
	}
	return names
}
