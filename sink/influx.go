package sink

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

type InfluxOpts struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string
	// Tags are added to every point.
	Tags map[string]string
}

// Influx writes each reading as one point using the blocking write API.
type Influx struct {
	writer      pointWriter
	close       func()
	measurement string
	tags        map[string]string
}

func NewInflux(opts InfluxOpts) *Influx {
	client := influxdb2.NewClient(opts.URL, opts.Token)
	return newInflux(client.WriteAPIBlocking(opts.Org, opts.Bucket), client.Close, opts.Measurement, opts.Tags)
}

func newInflux(w pointWriter, closeFn func(), measurement string, tags map[string]string) *Influx {
	if measurement == "" {
		measurement = "bh1750"
	}
	return &Influx{
		writer:      w,
		close:       closeFn,
		measurement: measurement,
		tags:        tags,
	}
}

func (s *Influx) Write(ctx context.Context, r Reading) error {
	tags := map[string]string{"mode": r.Mode.String()}
	for k, v := range s.tags {
		tags[k] = v
	}
	p := influxdb2.NewPoint(s.measurement, tags, map[string]interface{}{
		"raw":    int64(r.Raw),
		"lux":    r.Lux,
		"timing": int64(r.Timing),
	}, r.Time)
	if err := s.writer.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("could not write point to influxdb: %w", err)
	}
	return nil
}

func (s *Influx) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}
