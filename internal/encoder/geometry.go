package encoder

import (
	"image"
	"math"
	"strings"

	"label-dispatch/internal/label"
)

// minLineDots is the bar thickness used when a line has no extent
const minLineDots = 2

type geometry struct {
	dotsPerMM float64
}

func newGeometry(t label.Template) geometry {
	return geometry{dotsPerMM: t.DotsPerMM()}
}

// dots converts millimeters to device dots, rounding to the nearest dot.
func (g geometry) dots(mm float64) int {
	return int(math.Round(mm * g.dotsPerMM))
}

// box is an element's placement in device dots
type box struct {
	x, y, w, h int
	rotation   int // 0, 90, 180, 270
}

func (g geometry) box(el label.Element) box {
	return box{
		x:        g.dots(el.X),
		y:        g.dots(el.Y),
		w:        g.dots(el.Width),
		h:        g.dots(el.Height),
		rotation: QuarterTurn(el.Rotation),
	}
}

// line derives a filled bar for a line element. A thickness property narrows
// the shorter side; zero extents widen to minLineDots.
func (g geometry) line(el label.Element, props label.Properties) box {
	b := g.box(el)
	if props.Thickness > 0 {
		t := max(g.dots(props.Thickness), 1)
		if b.w >= b.h {
			b.h = t
		} else {
			b.w = t
		}
	}
	if b.w == 0 {
		b.w = minLineDots
	}
	if b.h == 0 {
		b.h = minLineDots
	}
	return b
}

func (b box) rect() image.Rectangle {
	return image.Rect(b.x, b.y, b.x+b.w, b.y+b.h)
}

// Placement is an element's box in device dots on template t.
func Placement(t label.Template, el label.Element) image.Rectangle {
	return newGeometry(t).box(el).rect()
}

// LinePlacement is the filled bar a line element prints as.
func LinePlacement(t label.Template, el label.Element, props label.Properties) image.Rectangle {
	return newGeometry(t).line(el, props).rect()
}

// QuarterTurn snaps a rotation in degrees to the nearest of 0, 90, 180, 270.
func QuarterTurn(deg float64) int {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	q := int(math.Round(d/90)) * 90
	if q == 360 {
		q = 0
	}
	return q
}

// FontBucket maps a point size to one of five discrete font steps (1-5).
// Unset sizes use 10pt.
func FontBucket(size float64) int {
	if size <= 0 {
		size = 10
	}
	switch {
	case size <= 8:
		return 1
	case size <= 12:
		return 2
	case size <= 16:
		return 3
	case size <= 20:
		return 4
	default:
		return 5
	}
}

// Alignment of a text field within its box
type Alignment int

const (
	AlignLeading Alignment = iota
	AlignCentered
	AlignTrailing
)

// ParseAlignment maps CENTER and END; every other tag is leading.
func ParseAlignment(tag string) Alignment {
	switch strings.ToUpper(strings.TrimSpace(tag)) {
	case "CENTER":
		return AlignCentered
	case "END":
		return AlignTrailing
	}
	return AlignLeading
}
