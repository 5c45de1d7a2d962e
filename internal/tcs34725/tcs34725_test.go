package tcs34725

import (
	"context"
	"testing"

	"ambient-light-meter/internal/sensor"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func TestProbeAndConfigure(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: DefaultAddr, W: []byte{0x92}, R: []byte{0x44}},
			{Addr: DefaultAddr, W: []byte{0x80, 0x01}},
			{Addr: DefaultAddr, W: []byte{0x80, 0x03}},
			{Addr: DefaultAddr, W: []byte{0x81, 0xC0}},
			{Addr: DefaultAddr, W: []byte{0x8F, 0x02}},
		},
	}
	d := New(bus, 0)
	if err := d.Probe(); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if err := d.Configure(sensor.Gain16x, 0xC0); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Fatalf("playback: %v", err)
	}
}

func TestProbeWrongID(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{{Addr: DefaultAddr, W: []byte{0x92}, R: []byte{0x12}}},
	}
	if err := New(bus, DefaultAddr).Probe(); err == nil {
		t.Fatal("expected id mismatch")
	}
}

func TestReadRaw(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: DefaultAddr, W: []byte{0xB4}, R: []byte{0x10, 0x27, 0xE8, 0x03, 0xD0, 0x07, 0xB8, 0x0B}},
		},
	}
	raw, err := New(bus, DefaultAddr).ReadRaw()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := sensor.RawSample{Clear: 10000, Red: 1000, Green: 2000, Blue: 3000}
	if raw != want {
		t.Fatalf("raw = %+v, want %+v", raw, want)
	}
}

func TestConfigureRejectsGain(t *testing.T) {
	bus := &i2ctest.Playback{}
	if err := New(bus, DefaultAddr).Configure(sensor.Gain(2), 0xC0); err == nil {
		t.Fatal("expected gain error")
	}
}

func TestSimulatorClipsAtFullScale(t *testing.T) {
	sim := NewSimulator(WhiteScene(100000))
	if err := sim.Configure(sensor.Gain60x, 0x00); err != nil {
		t.Fatalf("configure: %v", err)
	}
	raw, err := sim.ReadRaw()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if raw.Clear != 65535 {
		t.Fatalf("clear = %d", raw.Clear)
	}

	if err := sim.Configure(sensor.Gain1x, 0xF6); err != nil {
		t.Fatalf("configure: %v", err)
	}
	raw, _ = sim.ReadRaw()
	if raw.Clear != 10240 {
		t.Fatalf("clear = %d, want 10240", raw.Clear)
	}
}

func TestSimulatorDrivesController(t *testing.T) {
	sim := NewSimulator(WhiteScene(5000))
	c := sensor.NewController(sim, sensor.DefaultRanges, sensor.DefaultCalibration)
	if err := c.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	ctx := context.Background()
	var r sensor.Reading
	var err error
	for i := 0; i < sensor.DefaultRanges.Len(); i++ {
		if r, err = c.Measure(ctx); err != nil {
			t.Fatalf("measure: %v", err)
		}
	}
	if r.Adjusted {
		t.Fatalf("still adjusting at index %d", r.RangeIndex)
	}
	if r.Raw.Clear >= 63000 {
		t.Fatalf("settled range saturates: %+v", r.Raw)
	}
	if r.Lux < 1000 || r.Lux > 10000 {
		t.Fatalf("lux = %v", r.Lux)
	}
}

func TestSimulatorMissing(t *testing.T) {
	sim := NewSimulator(WhiteScene(100))
	sim.Missing = true
	if err := sim.Probe(); err == nil {
		t.Fatal("expected probe failure")
	}
}
