// Package sensor implements autoranging and DN40 photometric compensation for
// four channel RGBC light sensors such as the TCS34725.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrPeripheralUnavailable is returned by Initialize when the probe fails.
var ErrPeripheralUnavailable = errors.New("light sensor unavailable")

// Device is the hardware side of the engine.
type Device interface {
	// Configure applies gain and the ATIME integration code.
	Configure(gain Gain, integrationCode uint8) error
	// ReadRaw returns the counts of the last completed integration cycle.
	ReadRaw() (RawSample, error)
	// Probe reports whether the peripheral answers and identifies correctly.
	Probe() error
}

// Controller owns the autorange state for one device. Measure and Initialize
// hold the controller lock for their whole duration, settle delay included,
// so callers sharing a controller are serialized.
type Controller struct {
	mu        sync.Mutex
	dev       Device
	ranges    RangeTable
	cal       Calibration
	sleep     func(context.Context, time.Duration) error
	index     int
	applied   int
	available bool
}

func NewController(dev Device, ranges RangeTable, cal Calibration) *Controller {
	return &Controller{
		dev:     dev,
		ranges:  ranges,
		cal:     cal,
		sleep:   sleepContext,
		applied: -1,
	}
}

// Initialize probes the device and configures the most sensitive range.
func (c *Controller) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.index = 0
	c.applied = -1
	c.available = false
	if err := c.dev.Probe(); err != nil {
		return fmt.Errorf("%w: %v", ErrPeripheralUnavailable, err)
	}
	if err := c.apply(0); err != nil {
		return fmt.Errorf("%w: %v", ErrPeripheralUnavailable, err)
	}
	c.available = true
	return nil
}

// Available reports the outcome of the last Initialize. Measure does not
// consult it.
func (c *Controller) Available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.available
}

// Index returns the current range index.
func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

func (c *Controller) Ranges() RangeTable {
	return c.ranges
}

// Measure reads the device, moves at most one range toward the scene
// brightness, and returns the compensated reading. When the range changes the
// device is reconfigured, left to settle for two integration cycles and read
// once more. Further steps are deferred to later calls.
//
// If ctx ends during the settle delay Measure returns ctx.Err() rather than
// an unsettled sample.
func (c *Controller) Measure(ctx context.Context) (Reading, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.apply(c.index); err != nil {
		return Reading{}, err
	}
	raw, err := c.dev.ReadRaw()
	if err != nil {
		return Reading{}, fmt.Errorf("read channels: %w", err)
	}

	next := c.step(raw.Clear)
	adjusted := next != c.index
	if adjusted {
		c.index = next
		if err := c.apply(next); err != nil {
			return Reading{}, err
		}
		if err := c.sleep(ctx, settleDelay(c.ranges.At(next))); err != nil {
			return Reading{}, err
		}
		raw, err = c.dev.ReadRaw()
		if err != nil {
			return Reading{}, fmt.Errorf("reread channels: %w", err)
		}
	}

	reading := c.cal.Compensate(raw, c.ranges.At(c.index))
	reading.RangeIndex = c.index
	reading.Adjusted = adjusted
	return reading, nil
}

// step applies one hysteresis decision for the clear count, clamped to the
// table.
func (c *Controller) step(clear uint16) int {
	rd := c.ranges.At(c.index)
	switch {
	case rd.MaxCount != 0 && clear > rd.MaxCount:
		return min(c.index+1, c.ranges.Len()-1)
	case rd.MinCount != 0 && clear < rd.MinCount:
		return max(c.index-1, 0)
	}
	return c.index
}

// apply configures the device for range i unless it already is.
func (c *Controller) apply(i int) error {
	if c.applied == i {
		return nil
	}
	rd := c.ranges.At(i)
	if err := c.dev.Configure(rd.Gain, rd.IntegrationCode); err != nil {
		c.applied = -1
		return fmt.Errorf("configure range %d (%s, atime 0x%02X): %w", i, rd.Gain, rd.IntegrationCode, err)
	}
	c.applied = i
	return nil
}

func settleDelay(rd RangeDescriptor) time.Duration {
	return time.Duration(2 * rd.IntegrationMs() * float64(time.Millisecond))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
