package sensor

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultRangesValid(t *testing.T) {
	if err := DefaultRanges.Validate(); err != nil {
		t.Fatalf("default ranges invalid: %v", err)
	}
	if DefaultRanges.Len() != 5 {
		t.Fatalf("unexpected length: %d", DefaultRanges.Len())
	}
	if DefaultRanges.At(0).MinCount != 0 || DefaultRanges.At(DefaultRanges.Len()-1).MaxCount != 0 {
		t.Fatalf("sentinels missing: %+v", DefaultRanges.Rows())
	}
}

func TestNewRangeTableRejects(t *testing.T) {
	tests := []struct {
		name string
		rows []RangeDescriptor
		want error
	}{
		{name: "empty", rows: nil, want: ErrEmptyRangeTable},
		{
			name: "first row lower bound",
			rows: []RangeDescriptor{
				{Gain: Gain60x, IntegrationCode: 0x00, MinCount: 10, MaxCount: 20000},
				{Gain: Gain1x, IntegrationCode: 0xC0, MinCount: 15000, MaxCount: 0},
			},
			want: ErrRangeSentinel,
		},
		{
			name: "last row upper bound",
			rows: []RangeDescriptor{
				{Gain: Gain60x, IntegrationCode: 0x00, MinCount: 0, MaxCount: 20000},
				{Gain: Gain1x, IntegrationCode: 0xC0, MinCount: 15000, MaxCount: 60000},
			},
			want: ErrRangeSentinel,
		},
		{
			name: "inner row open",
			rows: []RangeDescriptor{
				{Gain: Gain60x, IntegrationCode: 0x00, MinCount: 0, MaxCount: 20000},
				{Gain: Gain16x, IntegrationCode: 0xC0, MinCount: 0, MaxCount: 60000},
				{Gain: Gain1x, IntegrationCode: 0xC0, MinCount: 15000, MaxCount: 0},
			},
			want: ErrRangeSentinel,
		},
		{
			name: "no overlap",
			rows: []RangeDescriptor{
				{Gain: Gain60x, IntegrationCode: 0x00, MinCount: 0, MaxCount: 20000},
				{Gain: Gain4x, IntegrationCode: 0xC0, MinCount: 15000, MaxCount: 0},
			},
			want: ErrRangeOverlap,
		},
		{
			name: "inner gap",
			rows: []RangeDescriptor{
				{Gain: Gain60x, IntegrationCode: 0x00, MinCount: 0, MaxCount: 20000},
				{Gain: Gain60x, IntegrationCode: 0xC0, MinCount: 4990, MaxCount: 63000},
				{Gain: Gain16x, IntegrationCode: 0xC0, MinCount: 16801, MaxCount: 0},
			},
			want: ErrRangeOverlap,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRangeTable(tt.rows)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewRangeTableOverlapNearEdge(t *testing.T) {
	// 20000 counts at 60x/614.4ms read as 5000 at 60x/153.6ms.
	_, err := NewRangeTable([]RangeDescriptor{
		{Gain: Gain60x, IntegrationCode: 0x00, MinCount: 0, MaxCount: 20000},
		{Gain: Gain60x, IntegrationCode: 0xC0, MinCount: 4999, MaxCount: 0},
	})
	if err != nil {
		t.Fatalf("overlapping bounds rejected: %v", err)
	}
	_, err = NewRangeTable([]RangeDescriptor{
		{Gain: Gain60x, IntegrationCode: 0x00, MinCount: 0, MaxCount: 20000},
		{Gain: Gain60x, IntegrationCode: 0xC0, MinCount: 5001, MaxCount: 0},
	})
	if !errors.Is(err, ErrRangeOverlap) {
		t.Fatalf("err = %v, want ErrRangeOverlap", err)
	}
}

func TestOverlappingTableSettles(t *testing.T) {
	// Scene bright enough to exceed range 0 but read low at range 1 when the
	// bounds do not overlap.
	bad := []RangeDescriptor{
		{Gain: Gain60x, IntegrationCode: 0x00, MinCount: 0, MaxCount: 20000},
		{Gain: Gain4x, IntegrationCode: 0xC0, MinCount: 15000, MaxCount: 0},
	}
	if _, err := NewRangeTable(bad); !errors.Is(err, ErrRangeOverlap) {
		t.Fatalf("err = %v, want ErrRangeOverlap", err)
	}

	fixed := append([]RangeDescriptor(nil), bad...)
	fixed[1].MinCount = 300
	tbl, err := NewRangeTable(fixed)
	if err != nil {
		t.Fatalf("fixed table: %v", err)
	}
	dev := &sceneDevice{perExposure: 0.6}
	c := NewController(dev, tbl, DefaultCalibration)
	c.sleep = func(context.Context, time.Duration) error { return nil }
	if err := c.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	var path []int
	for i := 0; i < 6; i++ {
		r, err := c.Measure(context.Background())
		if err != nil {
			t.Fatalf("measure: %v", err)
		}
		path = append(path, r.RangeIndex)
	}
	for _, idx := range path[1:] {
		if idx != 1 {
			t.Fatalf("index path = %v, want settled on 1", path)
		}
	}
	if dev.configures != 2 {
		t.Fatalf("configures = %d, want 2", dev.configures)
	}
}

// sceneDevice reports a clear count proportional to gain x integration time.
type sceneDevice struct {
	perExposure float64
	gain        Gain
	code        uint8
	configures  int
}

func (d *sceneDevice) Probe() error { return nil }

func (d *sceneDevice) Configure(g Gain, code uint8) error {
	d.gain, d.code = g, code
	d.configures++
	return nil
}

func (d *sceneDevice) ReadRaw() (RawSample, error) {
	v := d.perExposure * float64(d.gain) * IntegrationMs(d.code)
	if v > 65535 {
		v = 65535
	}
	return RawSample{Clear: uint16(v)}, nil
}

func TestNewRangeTableOrdering(t *testing.T) {
	_, err := NewRangeTable([]RangeDescriptor{
		{Gain: Gain1x, IntegrationCode: 0xC0, MinCount: 0, MaxCount: 20000},
		{Gain: Gain60x, IntegrationCode: 0x00, MinCount: 15000, MaxCount: 0},
	})
	if err == nil {
		t.Fatal("expected ordering error")
	}
}

func TestNewRangeTableBadGain(t *testing.T) {
	_, err := NewRangeTable([]RangeDescriptor{{Gain: 2, IntegrationCode: 0xC0}})
	if err == nil {
		t.Fatal("expected gain error")
	}
}

func TestRangeTableCopiesRows(t *testing.T) {
	rows := []RangeDescriptor{{Gain: Gain4x, IntegrationCode: 0xC0}}
	tbl, err := NewRangeTable(rows)
	if err != nil {
		t.Fatalf("single row table: %v", err)
	}
	rows[0].Gain = Gain60x
	if tbl.At(0).Gain != Gain4x {
		t.Fatal("table aliases caller slice")
	}
}

func TestIntegrationMs(t *testing.T) {
	tests := []struct {
		code uint8
		want float64
	}{
		{0xFF, 2.4},
		{0xF6, 24},
		{0xC0, 153.6},
		{0x00, 614.4},
	}
	for _, tt := range tests {
		if got := IntegrationMs(tt.code); !almostEqual(got, tt.want) {
			t.Errorf("IntegrationMs(0x%02X) = %v, want %v", tt.code, got, tt.want)
		}
	}
}
