package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/lightsensor/bh1750"
	"github.com/mklimuk/lightsensor/cmd/lightsensor/console"
)

var shellCmd = cli.Command{
	Name:  "shell",
	Usage: "interactive request console",
	Action: func(c *cli.Context) error {
		return withSensor(c, func(ctx context.Context, s *sensor) error {
			items := []readline.PrefixCompleterInterface{readline.PcItem("help"), readline.PcItem("exit")}
			for _, tag := range bh1750.Tags() {
				items = append(items, readline.PcItem(tag))
			}
			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "bh1750> ",
				AutoComplete:    readline.NewPrefixCompleter(items...),
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return console.Exit(console.ExitFailure, "could not start shell: %s", console.Red(err))
			}
			defer func() { _ = rl.Close() }()
			return runShell(ctx, rl, s, rl.Stdout())
		})
	},
}

type lineReader interface {
	Readline() (string, error)
}

// runShell executes one request per line until EOF or exit. Failed requests
// are reported and the shell keeps running.
func runShell(ctx context.Context, rl lineReader, s *sensor, out io.Writer) error {
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		fields, err := shlex.Split(line)
		if err != nil {
			_, _ = fmt.Fprintf(out, "%s: %s\n", console.Red("ERROR"), err)
			continue
		}
		if len(fields) == 0 {
			continue
		}
		switch strings.ToLower(fields[0]) {
		case "exit", "quit":
			return nil
		case "help":
			printTags(out)
			continue
		}
		req, err := parseRequest(fields)
		if err != nil {
			_, _ = fmt.Fprintf(out, "%s: %s\n", console.Red("ERROR"), err)
			continue
		}
		res, err := s.dispatcher.Dispatch(ctx, req)
		if err != nil {
			_, _ = fmt.Fprintf(out, "%s: %s\n", console.Red("ERROR"), err)
			continue
		}
		_, _ = fmt.Fprintln(out, formatResponse(req, res, s.timing()))
	}
}
