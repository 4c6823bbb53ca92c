package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/lightsensor/bh1750"
	"github.com/mklimuk/lightsensor/cmd/lightsensor/console"
	"github.com/mklimuk/lightsensor/config"
	"github.com/mklimuk/lightsensor/metrics"
	"github.com/mklimuk/lightsensor/sink"
	"github.com/mklimuk/lightsensor/snsctx"
)

var pollCmd = cli.Command{
	Name:  "poll",
	Usage: "read the sensor periodically until interrupted",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "mode",
			Aliases: []string{"m"},
			Usage:   "measurement mode",
		},
		&cli.DurationFlag{
			Name:    "interval",
			Aliases: []string{"i"},
			Usage:   "time between measurements",
		},
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"n"},
			Usage:   "stop after n measurements, 0 polls forever",
		},
		&cli.IntFlag{
			Name:  "timing",
			Usage: "measurement time coefficient applied before polling",
		},
		&cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "serve prometheus metrics on this address",
		},
	},
	Action: func(c *cli.Context) error {
		cfg := getConfig(c)
		applyPollFlags(c, cfg)
		if err := cfg.Validate(); err != nil {
			return console.Exit(console.ExitInvalidArg, "configuration error: %s", console.Red(err))
		}
		mode, _ := cfg.ReadMode()
		ctx := commandContext(c)

		collector := metrics.NewCollector()
		s, err := openSensor(ctx, cfg, collector)
		if err != nil {
			return console.Exit(console.ExitFailure, "could not open sensor: %s", console.Red(err))
		}
		defer func() { _ = s.Close() }()

		outputs := []sink.Sink{sink.NewLog(snsctx.Logger(ctx))}
		if cfg.Influx.Enabled() {
			outputs = append(outputs, sink.NewInflux(sink.InfluxOpts{
				URL:         cfg.Influx.URL,
				Token:       cfg.Influx.Token,
				Org:         cfg.Influx.Org,
				Bucket:      cfg.Influx.Bucket,
				Measurement: cfg.Influx.Measurement,
			}))
		}
		out := sink.Multi(outputs...)
		defer func() { _ = out.Close() }()

		if cfg.Metrics.Addr != "" {
			go func() {
				if err := collector.Serve(ctx, cfg.Metrics.Addr); err != nil {
					slog.Error("metrics server failed", "error", err)
				}
			}()
		}

		p := &poller{
			dispatcher: s.dispatcher,
			timing:     s.timing,
			sink:       out,
			collector:  collector,
			mode:       mode,
			interval:   cfg.Poll.Interval,
			count:      cfg.Poll.Count,
			setTiming:  cfg.Timing,
		}
		console.PInfof(console.PictoBulb, "polling %s every %s", mode, cfg.Poll.Interval)
		n, err := p.run(ctx)
		if err != nil {
			return console.ExitErr("polling stopped", err)
		}
		console.PInfof(console.PictoMoon, "%d measurements taken", n)
		return nil
	},
}

func applyPollFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("mode") {
		cfg.Mode = c.String("mode")
	}
	if c.IsSet("interval") {
		cfg.Poll.Interval = c.Duration("interval")
	}
	if c.IsSet("count") {
		cfg.Poll.Count = c.Int("count")
	}
	if c.IsSet("timing") {
		cfg.Timing = c.Int("timing")
	}
	if c.IsSet("metrics-addr") {
		cfg.Metrics.Addr = c.String("metrics-addr")
	}
}

// poller powers the sensor on, optionally applies a measurement time and then
// reads in a loop. Bus failures are logged and polling goes on.
type poller struct {
	dispatcher *bh1750.Dispatcher
	timing     func() int
	sink       sink.Sink
	collector  *metrics.Collector
	mode       bh1750.Mode
	interval   time.Duration
	count      int
	setTiming  int
}

// run returns the number of successful measurements.
func (p *poller) run(ctx context.Context) (int, error) {
	if _, err := p.dispatcher.Dispatch(ctx, bh1750.PowerOn{}); err != nil {
		return 0, err
	}
	defer func() {
		if _, err := p.dispatcher.Dispatch(context.WithoutCancel(ctx), bh1750.PowerOff{}); err != nil {
			slog.Warn("could not power the sensor down", "error", err)
		}
	}()
	if p.setTiming != 0 {
		if _, err := p.dispatcher.Dispatch(ctx, bh1750.ChangeTiming{Value: p.setTiming}); err != nil {
			return 0, err
		}
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	taken, attempts := 0, 0
	for {
		err := p.readOnce(ctx)
		attempts++
		switch {
		case err == nil:
			taken++
		case errors.Is(err, bh1750.ErrBus):
			slog.Warn("measurement failed", "mode", p.mode, "error", err)
		default:
			return taken, err
		}
		if p.count > 0 && attempts >= p.count {
			return taken, nil
		}
		select {
		case <-ctx.Done():
			return taken, nil
		case <-ticker.C:
		}
	}
}

func (p *poller) readOnce(ctx context.Context) error {
	res, err := p.dispatcher.Dispatch(ctx, bh1750.Read{Mode: p.mode})
	if err != nil {
		return err
	}
	r := sink.NewReading(p.mode, p.timing(), res.Reading)
	if p.collector != nil {
		p.collector.ObserveReading(r.Raw, r.Lux)
	}
	if err := p.sink.Write(ctx, r); err != nil {
		slog.Error("could not store measurement", "error", err)
	}
	return nil
}
