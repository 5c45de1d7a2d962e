package sensor

// DN40 lux and colour temperature coefficients.
const (
	coefRed   = 0.136
	coefGreen = 1.000
	coefBlue  = -0.444

	ctCoef   = 3810.0
	ctOffset = 1391.0

	// Below this integration time the last quarter of the count range is not
	// trusted (ripple saturation).
	shortIntegrationMs = 150.0
)

// Calibration holds the per-installation constants of the counts-per-lux
// formula.
type Calibration struct {
	// GlassAttenuation is the transmission loss of any cover glass, 1.0 for none.
	GlassAttenuation float64 `yaml:"glass_attenuation"`
	// DeviceFactor is the device constant from the application note.
	DeviceFactor float64 `yaml:"device_factor"`
}

var DefaultCalibration = Calibration{GlassAttenuation: 1.0, DeviceFactor: 310.0}

// Compensate applies DefaultCalibration.
func Compensate(raw RawSample, rd RangeDescriptor) Reading {
	return DefaultCalibration.Compensate(raw, rd)
}

// Compensate derives the photometric reading for raw counts taken at range rd.
// It has no side effects; division by zero yields IEEE infinities or NaN.
func (c Calibration) Compensate(raw RawSample, rd RangeDescriptor) Reading {
	r, g, b, clr := int(raw.Red), int(raw.Green), int(raw.Blue), int(raw.Clear)

	ir := 0
	if sum := r + g + b; sum > clr {
		ir = (sum - clr) / 2
	}
	comp := Channels{Red: r - ir, Green: g - ir, Blue: b - ir, Clear: clr - ir}

	cycles := 256 - int(rd.IntegrationCode)
	ms := rd.IntegrationMs()

	sat := 65535
	if cycles <= 63 {
		sat = 1024 * cycles
	}
	sat75 := sat
	if ms < shortIntegrationMs {
		sat75 = sat - sat/4
	}

	cpl := (ms * float64(rd.Gain)) / (c.GlassAttenuation * c.DeviceFactor)
	lux := (coefRed*float64(comp.Red) + coefGreen*float64(comp.Green) + coefBlue*float64(comp.Blue)) / cpl

	return Reading{
		Raw:               raw,
		Compensated:       comp,
		GainMultiplier:    int(rd.Gain),
		IntegrationCode:   rd.IntegrationCode,
		IntegrationMs:     ms,
		IR:                ir,
		ClearToIRRatio:    float64(ir) / float64(clr),
		SaturationCount:   sat,
		SaturationCount75: sat75,
		Saturated:         ms < shortIntegrationMs && clr > sat75,
		CountsPerLux:      cpl,
		MaxLux:            65535 / (cpl * 3),
		Lux:               lux,
		ColorTempK:        ctCoef*float64(comp.Blue)/float64(comp.Red) + ctOffset,
	}
}
