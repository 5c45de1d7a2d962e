package sensor

// RawSample is one set of channel counts read from the peripheral.
type RawSample struct {
	Red   uint16 `json:"red"`
	Green uint16 `json:"green"`
	Blue  uint16 `json:"blue"`
	Clear uint16 `json:"clear"`
}

// Channels holds IR-compensated counts. Values can go negative when the IR
// estimate exceeds a channel.
type Channels struct {
	Red   int `json:"red"`
	Green int `json:"green"`
	Blue  int `json:"blue"`
	Clear int `json:"clear"`
}

// Reading is the result of one measurement. It is built once by Compensate
// and never modified.
//
// ClearToIRRatio is NaN or infinite when Clear is zero, and ColorTempK is NaN
// or infinite when the compensated red channel is zero. Renderers decide how
// to present those values.
type Reading struct {
	Raw         RawSample
	Compensated Channels

	RangeIndex      int
	Adjusted        bool
	GainMultiplier  int
	IntegrationCode uint8
	IntegrationMs   float64

	IR                int
	ClearToIRRatio    float64
	SaturationCount   int
	SaturationCount75 int
	Saturated         bool
	CountsPerLux      float64
	MaxLux            float64
	Lux               float64
	ColorTempK        float64
}
