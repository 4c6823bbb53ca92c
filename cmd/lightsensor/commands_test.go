package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/lightsensor/bh1750"
	"github.com/mklimuk/lightsensor/config"
	"github.com/mklimuk/lightsensor/metrics"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func TestParseRequest(t *testing.T) {
	tests := []struct {
		fields []string
		want   bh1750.Request
	}{
		{[]string{"power-on"}, bh1750.PowerOn{}},
		{[]string{"change-timing", "100"}, bh1750.ChangeTiming{Value: 100}},
		{[]string{"read-continuous-lowres"}, bh1750.Read{Mode: bh1750.ContinuousLowRes}},
		{[]string{"2"}, bh1750.PowerOff{}},
		{[]string{"8", "40"}, bh1750.ChangeTiming{Value: 40}},
		{[]string{"10"}, bh1750.Read{Mode: bh1750.OneShotLowRes}},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.fields, " "), func(t *testing.T) {
			req, err := parseRequest(tt.fields)
			require.NoError(t, err)
			assert.Equal(t, tt.want, req)
		})
	}
}

func TestParseRequest_Errors(t *testing.T) {
	_, err := parseRequest(nil)
	assert.ErrorIs(t, err, bh1750.ErrInvalidArgument)
	_, err = parseRequest([]string{"8"})
	assert.ErrorIs(t, err, bh1750.ErrInvalidArgument)
	_, err = parseRequest([]string{"8", "lots"})
	assert.ErrorIs(t, err, bh1750.ErrInvalidArgument)
	_, err = parseRequest([]string{"11"})
	assert.ErrorIs(t, err, bh1750.ErrUnsupportedOperation)
	_, err = parseRequest([]string{"read-sometimes"})
	assert.ErrorIs(t, err, bh1750.ErrUnsupportedOperation)
}

func TestFormatResponse(t *testing.T) {
	req := bh1750.Read{Mode: bh1750.OneShotHighRes1}
	res := bh1750.Response{Tag: req.Tag(), Reading: 120, HasReading: true}
	assert.Equal(t, "read-oneshot-highres-1 120 (100.00 lx)", formatResponse(req, res, bh1750.DefaultTiming))
	assert.Equal(t, "reset ok", formatResponse(bh1750.Reset{}, bh1750.Response{Tag: bh1750.TagReset}, bh1750.DefaultTiming))
}

func TestPrintTags(t *testing.T) {
	var buf bytes.Buffer
	printTags(&buf)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 10)
	assert.Contains(t, lines, "change-timing <31-254>")
	assert.Contains(t, lines, "read-oneshot-lowres")
}

func TestOpenSensor_Mock(t *testing.T) {
	cfg := config.Default()
	cfg.Adapter = config.AdapterMock
	collector := metrics.NewCollector()

	s, err := openSensor(context.Background(), cfg, collector)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	res, err := s.dispatcher.Dispatch(context.Background(), bh1750.Read{Mode: bh1750.OneShotHighRes1})
	require.NoError(t, err)
	assert.True(t, res.HasReading)
	assert.GreaterOrEqual(t, res.Reading, uint16(480))
	assert.Equal(t, bh1750.DefaultTiming, s.timing())
}

func TestSensorClose(t *testing.T) {
	var order []int
	boom := errors.New("boom")
	s := &sensor{closers: []func() error{
		func() error { order = append(order, 1); return nil },
		func() error { order = append(order, 2); return boom },
	}}
	assert.ErrorIs(t, s.Close(), boom)
	assert.Equal(t, []int{2, 1}, order)
}
