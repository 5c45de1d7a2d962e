// Package tcs34725 drives the TCS34725 RGBC colour sensor over I2C.
package tcs34725

import (
	"encoding/binary"
	"fmt"
	"time"

	"ambient-light-meter/internal/sensor"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// DefaultAddr is the fixed I2C address of the part.
const DefaultAddr uint16 = 0x29

const (
	cmdBit     = 0x80
	autoIncBit = 0x20

	regEnable  = 0x00
	regATime   = 0x01
	regControl = 0x0F
	regID      = 0x12
	regCData   = 0x14 // C, R, G, B little endian words

	enablePON = 0x01
	enableAEN = 0x02

	// TCS34721 and TCS34725 report 0x44, TCS34723 and TCS34727 report 0x4D.
	id3472x1x5 = 0x44
	id3472x3x7 = 0x4D
)

// Dev is a TCS34725 on an I2C bus. It is not safe for concurrent use; the
// sensor.Controller serializes access.
type Dev struct {
	c i2c.Dev
}

func New(b i2c.Bus, addr uint16) *Dev {
	if addr == 0 {
		addr = DefaultAddr
	}
	return &Dev{c: i2c.Dev{Bus: b, Addr: addr}}
}

// Open initializes the host drivers and opens the named bus, or the first
// available one when name is empty. The caller closes the returned bus.
func Open(name string, addr uint16) (*Dev, i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("init host: %w", err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, nil, fmt.Errorf("open i2c bus %q: %w", name, err)
	}
	return New(bus, addr), bus, nil
}

// Probe checks the ID register and powers the ADCs on.
func (d *Dev) Probe() error {
	var id [1]byte
	if err := d.c.Tx([]byte{cmdBit | regID}, id[:]); err != nil {
		return fmt.Errorf("read id: %w", err)
	}
	if id[0] != id3472x1x5 && id[0] != id3472x3x7 {
		return fmt.Errorf("unexpected device id 0x%02X", id[0])
	}
	if err := d.write(regEnable, enablePON); err != nil {
		return err
	}
	// The oscillator needs 2.4ms after PON before AEN may be set.
	time.Sleep(3 * time.Millisecond)
	return d.write(regEnable, enablePON|enableAEN)
}

// Configure writes ATIME and the gain bits of CONTROL.
func (d *Dev) Configure(gain sensor.Gain, atime uint8) error {
	again, err := gainBits(gain)
	if err != nil {
		return err
	}
	if err := d.write(regATime, atime); err != nil {
		return err
	}
	return d.write(regControl, again)
}

// ReadRaw reads all four channels in one auto-increment transfer so they
// come from the same integration cycle.
func (d *Dev) ReadRaw() (sensor.RawSample, error) {
	var b [8]byte
	if err := d.c.Tx([]byte{cmdBit | autoIncBit | regCData}, b[:]); err != nil {
		return sensor.RawSample{}, fmt.Errorf("read channels: %w", err)
	}
	return sensor.RawSample{
		Clear: binary.LittleEndian.Uint16(b[0:2]),
		Red:   binary.LittleEndian.Uint16(b[2:4]),
		Green: binary.LittleEndian.Uint16(b[4:6]),
		Blue:  binary.LittleEndian.Uint16(b[6:8]),
	}, nil
}

// Halt powers the sensor down.
func (d *Dev) Halt() error {
	return d.write(regEnable, 0)
}

func (d *Dev) String() string {
	return fmt.Sprintf("TCS34725{%s}", d.c.String())
}

func (d *Dev) write(reg, v byte) error {
	if err := d.c.Tx([]byte{cmdBit | reg, v}, nil); err != nil {
		return fmt.Errorf("write reg 0x%02X: %w", reg, err)
	}
	return nil
}

func gainBits(g sensor.Gain) (byte, error) {
	switch g {
	case sensor.Gain1x:
		return 0x00, nil
	case sensor.Gain4x:
		return 0x01, nil
	case sensor.Gain16x:
		return 0x02, nil
	case sensor.Gain60x:
		return 0x03, nil
	}
	return 0, fmt.Errorf("unsupported gain %d", g)
}
