// Package cpcl builds CPCL label programs.
package cpcl

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Command builds a CPCL label program
type Command struct {
	buf strings.Builder
}

func New() *Command {
	return &Command{}
}

// Header starts a label session. resolution is the nominal DPI (200 for
// 203 dpi heads), height is in dots.
func (c *Command) Header(resolution, height, copies int) *Command {
	if copies < 1 {
		copies = 1
	}
	fmt.Fprintf(&c.buf, "! 0 %d %d %d %d\r\n", resolution, resolution, height, copies)
	return c
}

// PageWidth sets the printable width in dots
func (c *Command) PageWidth(width int) *Command {
	fmt.Fprintf(&c.buf, "PAGE-WIDTH %d\r\n", width)
	return c
}

// Contrast sets print darkness (0-3)
func (c *Command) Contrast(level int) *Command {
	if level < 0 {
		level = 0
	}
	if level > 3 {
		level = 3
	}
	fmt.Fprintf(&c.buf, "CONTRAST %d\r\n", level)
	return c
}

// GapSense selects gap detection for die-cut label stock
func (c *Command) GapSense() *Command {
	c.buf.WriteString("GAP-SENSE\r\n")
	return c
}

// Align sets justification for the following fields: "LEFT", "CENTER" or "RIGHT".
func (c *Command) Align(justify string) *Command {
	c.buf.WriteString(justify + "\r\n")
	return c
}

// Bold toggles emboldening of following text
func (c *Command) Bold(on bool) *Command {
	n := 0
	if on {
		n = 1
	}
	fmt.Fprintf(&c.buf, "SETBOLD %d\r\n", n)
	return c
}

// Text adds a text field. rotation is 0, 90, 180 or 270.
func (c *Command) Text(font string, size, x, y, rotation int, content string) *Command {
	fmt.Fprintf(&c.buf, "%s %s %d %d %d %s\r\n", textVerb(rotation), font, size, x, y, content)
	return c
}

// Barcode adds a 1D barcode; vertical bars rotate it 90 degrees.
func (c *Command) Barcode(symbology string, narrow, ratio, height, x, y int, vertical bool, data string) *Command {
	verb := "BARCODE"
	if vertical {
		verb = "VBARCODE"
	}
	fmt.Fprintf(&c.buf, "%s %s %d %d %d %d %d %s\r\n", verb, symbology, narrow, ratio, height, x, y, data)
	return c
}

// QRCode adds a model 2 QR code with the given unit (module) size.
func (c *Command) QRCode(x, y, unit int, ecc string, data string) *Command {
	fmt.Fprintf(&c.buf, "BARCODE QR %d %d M 2 U %d\r\n", x, y, unit)
	fmt.Fprintf(&c.buf, "%sA,%s\r\n", ecc, data)
	c.buf.WriteString("ENDQR\r\n")
	return c
}

// Line draws a line of the given width from (x0,y0) to (x1,y1)
func (c *Command) Line(x0, y0, x1, y1, width int) *Command {
	fmt.Fprintf(&c.buf, "LINE %d %d %d %d %d\r\n", x0, y0, x1, y1, width)
	return c
}

// Graphics adds a hex-encoded 1-bit image (set bit prints black).
func (c *Command) Graphics(widthBytes, height, x, y int, data []byte) *Command {
	fmt.Fprintf(&c.buf, "EG %d %d %d %d %s\r\n", widthBytes, height, x, y, strings.ToUpper(hex.EncodeToString(data)))
	return c
}

// Form feeds to the next label top-of-form after printing
func (c *Command) Form() *Command {
	c.buf.WriteString("FORM\r\n")
	return c
}

// Print ends the session and prints
func (c *Command) Print() *Command {
	c.buf.WriteString("PRINT\r\n")
	return c
}

// Bytes returns the raw command bytes to send to printer
func (c *Command) Bytes() []byte {
	return []byte(c.buf.String())
}

func (c *Command) String() string {
	return c.buf.String()
}

func textVerb(rotation int) string {
	switch rotation {
	case 90:
		return "TEXT90"
	case 180:
		return "TEXT180"
	case 270:
		return "TEXT270"
	}
	return "TEXT"
}
