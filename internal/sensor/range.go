package sensor

import (
	"errors"
	"fmt"
)

// Gain is the analog gain multiplier applied by the peripheral.
type Gain uint8

const (
	Gain1x  Gain = 1
	Gain4x  Gain = 4
	Gain16x Gain = 16
	Gain60x Gain = 60
)

func (g Gain) Valid() bool {
	switch g {
	case Gain1x, Gain4x, Gain16x, Gain60x:
		return true
	}
	return false
}

func (g Gain) String() string {
	return fmt.Sprintf("%dx", uint8(g))
}

// IntegrationMs converts an ATIME register code to milliseconds. Each step of
// the integration cycle is 2.4ms and the register counts down from 256.
func IntegrationMs(code uint8) float64 {
	return float64(256-int(code)) * 2.4
}

// RangeDescriptor is one row of the autorange table. MinCount and MaxCount
// bound the clear channel; zero means unbounded on that side.
type RangeDescriptor struct {
	Gain            Gain   `json:"gain" yaml:"gain"`
	IntegrationCode uint8  `json:"integration_code" yaml:"integration_code"`
	MinCount        uint16 `json:"min_count" yaml:"min_count"`
	MaxCount        uint16 `json:"max_count" yaml:"max_count"`
}

func (d RangeDescriptor) IntegrationMs() float64 {
	return IntegrationMs(d.IntegrationCode)
}

// exposure is the gain x integration time product, used only for ordering.
func (d RangeDescriptor) exposure() float64 {
	return float64(d.Gain) * d.IntegrationMs()
}

// RangeTable is an ordered, immutable list of ranges, dimmest scene (most
// sensitive setting) first and brightest scene last. The first row never has
// a lower bound and the last row never has an upper bound. Neighbouring rows
// overlap so every clear count settles on one range.
type RangeTable struct {
	rows []RangeDescriptor
}

var (
	ErrEmptyRangeTable = errors.New("range table is empty")
	ErrRangeSentinel   = errors.New("range table sentinels violated")
	ErrRangeOverlap    = errors.New("range table bounds do not overlap")
)

// NewRangeTable copies rows and validates them.
func NewRangeTable(rows []RangeDescriptor) (RangeTable, error) {
	t := RangeTable{rows: append([]RangeDescriptor(nil), rows...)}
	if err := t.Validate(); err != nil {
		return RangeTable{}, err
	}
	return t, nil
}

// MustRangeTable is NewRangeTable for compiled-in tables.
func MustRangeTable(rows []RangeDescriptor) RangeTable {
	t, err := NewRangeTable(rows)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultRanges is the TCS34725 autorange list from the DN40 application note.
var DefaultRanges = MustRangeTable([]RangeDescriptor{
	{Gain: Gain60x, IntegrationCode: 0x00, MinCount: 0, MaxCount: 20000},
	{Gain: Gain60x, IntegrationCode: 0xC0, MinCount: 4990, MaxCount: 63000},
	{Gain: Gain16x, IntegrationCode: 0xC0, MinCount: 16790, MaxCount: 63000},
	{Gain: Gain4x, IntegrationCode: 0xC0, MinCount: 15740, MaxCount: 63000},
	{Gain: Gain1x, IntegrationCode: 0xC0, MinCount: 15740, MaxCount: 0},
})

func (t RangeTable) Len() int {
	return len(t.rows)
}

// At panics on an out of range index, like a slice.
func (t RangeTable) At(i int) RangeDescriptor {
	return t.rows[i]
}

// Rows returns a copy of the table rows.
func (t RangeTable) Rows() []RangeDescriptor {
	return append([]RangeDescriptor(nil), t.rows...)
}

func (t RangeTable) Validate() error {
	n := len(t.rows)
	if n == 0 {
		return ErrEmptyRangeTable
	}
	if t.rows[0].MinCount != 0 {
		return fmt.Errorf("%w: first row min_count must be 0, got %d", ErrRangeSentinel, t.rows[0].MinCount)
	}
	if t.rows[n-1].MaxCount != 0 {
		return fmt.Errorf("%w: last row max_count must be 0, got %d", ErrRangeSentinel, t.rows[n-1].MaxCount)
	}
	for i, r := range t.rows {
		if !r.Gain.Valid() {
			return fmt.Errorf("range %d: unsupported gain %d", i, r.Gain)
		}
		if i > 0 && i < n-1 && (r.MinCount == 0 || r.MaxCount == 0) {
			return fmt.Errorf("%w: inner range %d must have both bounds", ErrRangeSentinel, i)
		}
		if r.MinCount != 0 && r.MaxCount != 0 && r.MinCount >= r.MaxCount {
			return fmt.Errorf("range %d: min_count %d must be below max_count %d", i, r.MinCount, r.MaxCount)
		}
		if i == 0 {
			continue
		}
		prev := t.rows[i-1]
		if r.exposure() >= prev.exposure() {
			return fmt.Errorf("range %d: exposure %.1f must be below previous range %.1f", i, r.exposure(), prev.exposure())
		}
		if prev.MaxCount == 0 || r.MinCount == 0 {
			continue
		}
		// A count that leaves range i-1 at its upper bound must land at or
		// above the lower bound of range i, or the controller oscillates.
		if landed := float64(prev.MaxCount) * r.exposure() / prev.exposure(); landed < float64(r.MinCount) {
			return fmt.Errorf("%w: range %d max_count %d scales to %.0f, below range %d min_count %d",
				ErrRangeOverlap, i-1, prev.MaxCount, landed, i, r.MinCount)
		}
	}
	return nil
}
