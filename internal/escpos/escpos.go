// Package escpos builds ESC/POS byte streams for receipt-class printers.
package escpos

import (
	"bytes"
)

const (
	esc = 0x1B
	gs  = 0x1D
	lf  = 0x0A
)

// Justification values for Align
const (
	AlignLeft   = 0
	AlignCenter = 1
	AlignRight  = 2
)

// Barcode systems for GS k (function B)
const (
	BarcodeUPCA    byte = 65
	BarcodeUPCE    byte = 66
	BarcodeEAN13   byte = 67
	BarcodeEAN8    byte = 68
	BarcodeCode39  byte = 69
	BarcodeITF     byte = 70
	BarcodeCodabar byte = 71
	BarcodeCode93  byte = 72
	BarcodeCode128 byte = 73
)

// Command builds an ESC/POS byte stream
type Command struct {
	buf bytes.Buffer
}

func New() *Command {
	return &Command{}
}

// Init resets the printer (ESC @)
func (c *Command) Init() *Command {
	c.buf.Write([]byte{esc, '@'})
	return c
}

// Align sets justification (ESC a)
func (c *Command) Align(n int) *Command {
	c.buf.Write([]byte{esc, 'a', byte(n)})
	return c
}

// Bold toggles emphasized mode (ESC E)
func (c *Command) Bold(on bool) *Command {
	c.buf.Write([]byte{esc, 'E', boolByte(on)})
	return c
}

// UpsideDown toggles 180 degree printing (ESC {)
func (c *Command) UpsideDown(on bool) *Command {
	c.buf.Write([]byte{esc, '{', boolByte(on)})
	return c
}

// Rotate90 toggles 90 degree clockwise character rotation (ESC V)
func (c *Command) Rotate90(on bool) *Command {
	c.buf.Write([]byte{esc, 'V', boolByte(on)})
	return c
}

// CharSize sets width and height magnification, each 1-8 (GS !)
func (c *Command) CharSize(width, height int) *Command {
	c.buf.Write([]byte{gs, '!', byte((clamp(width, 1, 8)-1)<<4 | (clamp(height, 1, 8) - 1))})
	return c
}

// Position sets the absolute horizontal print position in dots (ESC $)
func (c *Command) Position(x int) *Command {
	c.buf.Write([]byte{esc, '$', byte(x & 0xFF), byte(x >> 8 & 0xFF)})
	return c
}

// FeedDots prints the buffer and feeds paper by n dots (ESC J), split into
// steps of at most 255.
func (c *Command) FeedDots(n int) *Command {
	for n > 0 {
		step := n
		if step > 255 {
			step = 255
		}
		c.buf.Write([]byte{esc, 'J', byte(step)})
		n -= step
	}
	return c
}

// Text writes a line of text followed by LF
func (c *Command) Text(s string) *Command {
	c.buf.WriteString(s)
	c.buf.WriteByte(lf)
	return c
}

// Barcode prints a 1D barcode using GS k function B.
func (c *Command) Barcode(system byte, height, moduleWidth int, humanReadable bool, data string) *Command {
	hri := byte(0)
	if humanReadable {
		hri = 2
	}
	c.buf.Write([]byte{gs, 'h', byte(clamp(height, 1, 255))})
	c.buf.Write([]byte{gs, 'w', byte(clamp(moduleWidth, 2, 6))})
	c.buf.Write([]byte{gs, 'H', hri})
	payload := []byte(data)
	if system == BarcodeCode128 {
		// select code set B
		payload = append([]byte{'{', 'B'}, payload...)
	}
	if len(payload) > 255 {
		payload = payload[:255]
	}
	c.buf.Write([]byte{gs, 'k', system, byte(len(payload))})
	c.buf.Write(payload)
	c.buf.WriteByte(lf)
	return c
}

// QRCode stores and prints a model 2 QR code (GS ( k). ecc is L, M, Q or H.
func (c *Command) QRCode(moduleSize int, ecc byte, data string) *Command {
	c.qr(0x41, 0x32, 0x00) // model 2
	c.qr(0x43, byte(clamp(moduleSize, 1, 16)))
	c.qr(0x45, eccLevel(ecc))
	c.qr(append([]byte{0x50, 0x30}, data...)...)
	c.qr(0x51, 0x30)
	c.buf.WriteByte(lf)
	return c
}

func (c *Command) qr(fn ...byte) {
	n := len(fn) + 1
	c.buf.Write([]byte{gs, '(', 'k', byte(n & 0xFF), byte(n >> 8 & 0xFF), 0x31})
	c.buf.Write(fn)
}

// Raster prints a 1-bit image (set bit prints black) using GS v 0.
func (c *Command) Raster(widthBytes, height int, data []byte) *Command {
	c.buf.Write([]byte{gs, 'v', '0', 0,
		byte(widthBytes & 0xFF), byte(widthBytes >> 8 & 0xFF),
		byte(height & 0xFF), byte(height >> 8 & 0xFF)})
	c.buf.Write(data)
	return c
}

// Feed prints and feeds n lines (ESC d)
func (c *Command) Feed(lines int) *Command {
	c.buf.Write([]byte{esc, 'd', byte(clamp(lines, 0, 255))})
	return c
}

// Cut feeds to the cutter and performs a partial cut (GS V B)
func (c *Command) Cut() *Command {
	c.buf.Write([]byte{gs, 'V', 66, 0})
	return c
}

// Bytes returns the raw command bytes to send to printer
func (c *Command) Bytes() []byte {
	return bytes.Clone(c.buf.Bytes())
}

func eccLevel(ecc byte) byte {
	switch ecc {
	case 'L':
		return 48
	case 'Q':
		return 50
	case 'H':
		return 51
	}
	return 49
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
