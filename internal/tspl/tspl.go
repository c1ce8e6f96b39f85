package tspl

import (
	"fmt"
	"strconv"
	"strings"
)

// Alignment values of the TEXT command
const (
	AlignDefault = 0
	AlignLeft    = 1
	AlignCenter  = 2
	AlignRight   = 3
)

// Command builds TSPL2 commands
type Command struct {
	buf strings.Builder
}

func New() *Command {
	return &Command{}
}

// Size sets label dimensions
func (c *Command) Size(width, height float64) *Command {
	fmt.Fprintf(&c.buf, "SIZE %s mm, %s mm\r\n", mm(width), mm(height))
	return c
}

// Gap sets gap between labels
func (c *Command) Gap(gap, offset float64) *Command {
	fmt.Fprintf(&c.buf, "GAP %s mm, %s mm\r\n", mm(gap), mm(offset))
	return c
}

// Direction sets print direction (0 or 1)
func (c *Command) Direction(dir, mirror int) *Command {
	fmt.Fprintf(&c.buf, "DIRECTION %d,%d\r\n", dir, mirror)
	return c
}

// Density sets print darkness (0-15)
func (c *Command) Density(level int) *Command {
	if level < 0 {
		level = 0
	}
	if level > 15 {
		level = 15
	}
	fmt.Fprintf(&c.buf, "DENSITY %d\r\n", level)
	return c
}

// CLS clears the image buffer
func (c *Command) CLS() *Command {
	c.buf.WriteString("CLS\r\n")
	return c
}

// Text adds a line of text in one of the built-in fonts ("1".."8").
// rotation is 0, 90, 180 or 270; alignment is one of the Align constants.
func (c *Command) Text(x, y int, font string, rotation, xMul, yMul, alignment int, content string) *Command {
	fmt.Fprintf(&c.buf, "TEXT %d,%d,\"%s\",%d,%d,%d,", x, y, font, rotation, xMul, yMul)
	if alignment != AlignDefault {
		fmt.Fprintf(&c.buf, "%d,", alignment)
	}
	fmt.Fprintf(&c.buf, "\"%s\"\r\n", quote(content))
	return c
}

// Bar draws a filled rectangle
func (c *Command) Bar(x, y, width, height int) *Command {
	fmt.Fprintf(&c.buf, "BAR %d,%d,%d,%d\r\n", x, y, width, height)
	return c
}

// QRCode adds a QR code. ecc is L, M, Q or H; cell is the module width in dots.
func (c *Command) QRCode(x, y int, ecc string, cell, rotation int, data string) *Command {
	fmt.Fprintf(&c.buf, "QRCODE %d,%d,%s,%d,A,%d,\"%s\"\r\n", x, y, ecc, cell, rotation, quote(data))
	return c
}

// Barcode adds a 1D barcode. humanReadable prints the data under the bars.
func (c *Command) Barcode(x, y int, symbology string, height int, humanReadable bool, rotation, narrow, wide int, data string) *Command {
	hr := 0
	if humanReadable {
		hr = 1
	}
	fmt.Fprintf(&c.buf, "BARCODE %d,%d,\"%s\",%d,%d,%d,%d,%d,\"%s\"\r\n",
		x, y, symbology, height, hr, rotation, narrow, wide, quote(data))
	return c
}

// Bitmap adds a bitmap image
// x, y: position in dots
// widthBytes: width in bytes (pixels / 8)
// height: height in dots
// data: raw 1-bit bitmap data
func (c *Command) Bitmap(x, y, widthBytes, height int, data []byte) *Command {
	fmt.Fprintf(&c.buf, "BITMAP %d,%d,%d,%d,1,", x, y, widthBytes, height)
	c.buf.Write(data)
	c.buf.WriteString("\r\n")
	return c
}

// Print prints n copies
func (c *Command) Print(copies int) *Command {
	if copies < 1 {
		copies = 1
	}
	fmt.Fprintf(&c.buf, "PRINT %d\r\n", copies)
	return c
}

// Bytes returns the raw command bytes to send to printer
func (c *Command) Bytes() []byte {
	return []byte(c.buf.String())
}

// String returns the command as a string (for debugging)
func (c *Command) String() string {
	return c.buf.String()
}

func mm(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// TSPL escapes a double quote inside a string as \["]
func quote(s string) string {
	return strings.ReplaceAll(s, `"`, `\["]`)
}
