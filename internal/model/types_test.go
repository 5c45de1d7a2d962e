package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"ambient-light-meter/internal/sensor"
)

func TestNewReadingGroups(t *testing.T) {
	rd := sensor.RangeDescriptor{Gain: sensor.Gain16x, IntegrationCode: 0xC0}
	sr := sensor.Compensate(sensor.RawSample{Red: 300, Green: 120, Blue: 40, Clear: 500}, rd)
	sr.RangeIndex = 2

	r := NewReading("id-1", "http", time.UnixMilli(1700000000000), sr)
	if r.Raw != (RawChannels{Red: 300, Green: 120, Blue: 40, Clear: 500}) {
		t.Fatalf("raw = %+v", r.Raw)
	}
	if r.Compensated.Hex != "ff7828" {
		t.Fatalf("hex = %q", r.Compensated.Hex)
	}
	if r.Attributes.GainMultiplier != 16 || r.Attributes.IntegrationCode != 0xC0 || r.Attributes.RangeIndex != 2 {
		t.Fatalf("attributes = %+v", r.Attributes)
	}
	if r.Attributes.Illuminance == nil || r.Attributes.ColorTemperatureK == nil {
		t.Fatal("finite values dropped")
	}
	if r.TakenAtUnixMS != 1700000000000 {
		t.Fatalf("taken at = %d", r.TakenAtUnixMS)
	}
}

func TestNewReadingNonFiniteAsNull(t *testing.T) {
	rd := sensor.RangeDescriptor{Gain: sensor.Gain1x, IntegrationCode: 0xC0}
	r := NewReading("id-2", "test", time.Now(), sensor.Compensate(sensor.RawSample{}, rd))
	if r.Attributes.ClearToIRRatio != nil || r.Attributes.ColorTemperatureK != nil {
		t.Fatalf("non-finite values rendered: %+v", r.Attributes)
	}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, `"color_temperature_k":null`) || !strings.Contains(s, `"clear_to_ir_ratio":null`) {
		t.Fatalf("unexpected json: %s", s)
	}
	if r.Compensated.Hex != "000000" {
		t.Fatalf("hex = %q", r.Compensated.Hex)
	}
}

func TestCompensatedColorClamps(t *testing.T) {
	c := CompensatedChannels{Red: -25, Green: 128, Blue: 4000}.Color()
	if c != (RGB{R: 0, G: 128, B: 255}) {
		t.Fatalf("color = %+v", c)
	}
}

func TestNewRangeViews(t *testing.T) {
	views := NewRangeViews(sensor.DefaultRanges, 3)
	if len(views) != sensor.DefaultRanges.Len() {
		t.Fatalf("len = %d", len(views))
	}
	for i, v := range views {
		if v.Active != (i == 3) {
			t.Fatalf("view %d active = %v", i, v.Active)
		}
	}
	b, err := json.Marshal(views[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"gain":60`) {
		t.Fatalf("unexpected json: %s", b)
	}
}
