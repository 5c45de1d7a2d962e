package model

import (
	"fmt"
	"math"
	"time"

	"ambient-light-meter/internal/sensor"
)

type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

func (c RGB) Hex() string {
	return fmt.Sprintf("%02x%02x%02x", c.R, c.G, c.B)
}

type RawChannels struct {
	Red   uint16 `json:"red"`
	Green uint16 `json:"green"`
	Blue  uint16 `json:"blue"`
	Clear uint16 `json:"clear"`
}

type CompensatedChannels struct {
	Red   int    `json:"red"`
	Green int    `json:"green"`
	Blue  int    `json:"blue"`
	Clear int    `json:"clear"`
	Hex   string `json:"hex"`
}

// Color clamps the compensated channels to a displayable colour.
func (c CompensatedChannels) Color() RGB {
	return RGB{R: clampByte(c.Red), G: clampByte(c.Green), B: clampByte(c.Blue)}
}

// Attributes carries the derived photometric values. Pointer fields are nil
// when the value is not finite.
type Attributes struct {
	IR                int      `json:"ir"`
	ClearToIRRatio    *float64 `json:"clear_to_ir_ratio"`
	SaturationCount   int      `json:"saturation_count"`
	SaturationCount75 int      `json:"saturation_count_75"`
	IsSaturated       bool     `json:"is_saturated"`
	CountsPerLux      *float64 `json:"counts_per_lux"`
	MaxLux            *float64 `json:"max_lux"`
	Illuminance       *float64 `json:"illuminance"`
	ColorTemperatureK *float64 `json:"color_temperature_k"`
	GainMultiplier    int      `json:"gain_multiplier"`
	IntegrationMs     float64  `json:"integration_ms"`
	IntegrationCode   uint8    `json:"integration_code"`
	RangeIndex        int      `json:"range_index"`
	RangeAdjusted     bool     `json:"range_adjusted"`
}

type Reading struct {
	ID            string              `json:"id"`
	Source        string              `json:"source"`
	TakenAtUnixMS int64               `json:"taken_at_unix_ms"`
	Raw           RawChannels         `json:"raw"`
	Compensated   CompensatedChannels `json:"compensated"`
	Attributes    Attributes          `json:"attributes"`
}

func NewReading(id, source string, takenAt time.Time, r sensor.Reading) Reading {
	comp := CompensatedChannels{
		Red:   r.Compensated.Red,
		Green: r.Compensated.Green,
		Blue:  r.Compensated.Blue,
		Clear: r.Compensated.Clear,
	}
	comp.Hex = comp.Color().Hex()

	return Reading{
		ID:            id,
		Source:        source,
		TakenAtUnixMS: takenAt.UnixMilli(),
		Raw: RawChannels{
			Red:   r.Raw.Red,
			Green: r.Raw.Green,
			Blue:  r.Raw.Blue,
			Clear: r.Raw.Clear,
		},
		Compensated: comp,
		Attributes: Attributes{
			IR:                r.IR,
			ClearToIRRatio:    finite(r.ClearToIRRatio),
			SaturationCount:   r.SaturationCount,
			SaturationCount75: r.SaturationCount75,
			IsSaturated:       r.Saturated,
			CountsPerLux:      finite(r.CountsPerLux),
			MaxLux:            finite(r.MaxLux),
			Illuminance:       finite(r.Lux),
			ColorTemperatureK: finite(r.ColorTempK),
			GainMultiplier:    r.GainMultiplier,
			IntegrationMs:     r.IntegrationMs,
			IntegrationCode:   r.IntegrationCode,
			RangeIndex:        r.RangeIndex,
			RangeAdjusted:     r.Adjusted,
		},
	}
}

type RangeView struct {
	Index int `json:"index"`
	sensor.RangeDescriptor
	IntegrationMs float64 `json:"integration_ms"`
	Active        bool    `json:"active"`
}

func NewRangeViews(t sensor.RangeTable, current int) []RangeView {
	out := make([]RangeView, 0, t.Len())
	for i, rd := range t.Rows() {
		out = append(out, RangeView{
			Index:           i,
			RangeDescriptor: rd,
			IntegrationMs:   rd.IntegrationMs(),
			Active:          i == current,
		})
	}
	return out
}

type StoredState struct {
	LatestReading     *Reading  `json:"latest_reading,omitempty"`
	RangeIndex        int       `json:"range_index"`
	MeasurementCount  int64     `json:"measurement_count"`
	RangeChangeCount  int64     `json:"range_change_count"`
	SaturatedCount    int64     `json:"saturated_count"`
	LastUpdatedUnixMS int64     `json:"last_updated_unix_ms"`
	CreatedAt         time.Time `json:"created_at"`
}

// Stats is the counter view served by the stats endpoint.
type Stats struct {
	StoredState
	LoggedReadings int64 `json:"logged_readings"`
}

type Event struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	CreatedAt int64       `json:"created_at_unix_ms"`
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
