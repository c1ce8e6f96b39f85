package encoder

import (
	"bytes"

	"label-dispatch/internal/cpcl"
	"label-dispatch/internal/escpos"
	"label-dispatch/internal/imaging"
	"label-dispatch/internal/label"
	"label-dispatch/internal/tspl"
)

type textSpec struct {
	value  string
	bucket int
	align  Alignment
	bold   bool
}

type barcodeSpec struct {
	symbology Symbology
	data      string
	showText  bool
}

type raster struct {
	widthBytes int
	height     int
	data       []byte // MSB first, set bit prints
}

// writer emits one language. Constructors write the job preamble.
type writer interface {
	text(b box, t textSpec)
	bitmap(b box, r raster)
	qrcode(b box, data string)
	barcode(b box, s barcodeSpec)
	bar(b box)
	finish() []byte
}

// qrCell picks a module size so a version 2 symbol fills the box
func qrCell(b box) int {
	return min(max(min(b.w, b.h)/25, 1), 10)
}

// barcodeHeight leaves room for the human readable line
func barcodeHeight(b box, showText bool) int {
	h := b.h
	if showText {
		h -= 24
	}
	return max(h, 1)
}

type tsplWriter struct {
	cmd    *tspl.Command
	copies int
}

// TSPL fonts "1".."5" grow with the bucket
var tsplFonts = [...]string{"1", "1", "2", "3", "4", "5"}

func newTSPLWriter(t label.Template, g geometry) *tsplWriter {
	dir := 0
	if t.Orientation == label.Landscape {
		dir = 1
	}
	cmd := tspl.New().
		Size(t.Width, t.Height).
		Gap(t.Gap, t.GapOffset).
		Direction(dir, 0).
		Density(t.Density).
		CLS()
	return &tsplWriter{cmd: cmd, copies: t.Copies}
}

func (w *tsplWriter) text(b box, t textSpec) {
	// TEXT aligns around x: the center point or the right edge
	x, align := b.x, tspl.AlignDefault
	switch t.align {
	case AlignCentered:
		x, align = b.x+b.w/2, tspl.AlignCenter
	case AlignTrailing:
		x, align = b.x+b.w, tspl.AlignRight
	}
	font := tsplFonts[t.bucket]
	w.cmd.Text(x, b.y, font, b.rotation, 1, 1, align, t.value)
	if t.bold {
		// no bold attribute in TSPL; overstrike one dot to the right
		w.cmd.Text(x+1, b.y, font, b.rotation, 1, 1, align, t.value)
	}
}

func (w *tsplWriter) bitmap(b box, r raster) {
	// BITMAP prints 0 bits
	data := imaging.Invert(bytes.Clone(r.data))
	w.cmd.Bitmap(b.x, b.y, r.widthBytes, r.height, data)
}

func (w *tsplWriter) qrcode(b box, data string) {
	w.cmd.QRCode(b.x, b.y, "M", qrCell(b), b.rotation, data)
}

func (w *tsplWriter) barcode(b box, s barcodeSpec) {
	narrow, wide := 2, 2
	if ratioSymbology(s.symbology) {
		wide = 4
	}
	w.cmd.Barcode(b.x, b.y, tsplSymbologies[s.symbology], barcodeHeight(b, s.showText), s.showText, b.rotation, narrow, wide, s.data)
}

func (w *tsplWriter) bar(b box) {
	w.cmd.Bar(b.x, b.y, b.w, b.h)
}

func (w *tsplWriter) finish() []byte {
	return w.cmd.Print(w.copies).Bytes()
}

type cpclWriter struct {
	cmd *cpcl.Command
}

// CPCL (font, size) per bucket
var cpclFonts = [...]struct {
	font string
	size int
}{
	{"7", 0}, {"0", 2}, {"7", 0}, {"5", 0}, {"4", 0}, {"4", 1},
}

func newCPCLWriter(t label.Template, g geometry) *cpclWriter {
	resolution := 200
	switch t.DPI {
	case 300, 600:
		resolution = t.DPI
	}
	cmd := cpcl.New().
		Header(resolution, g.dots(t.Height), t.Copies).
		PageWidth(g.dots(t.Width)).
		Contrast(t.Density / 4)
	if t.Gap > 0 {
		cmd.GapSense()
	}
	return &cpclWriter{cmd: cmd}
}

func (w *cpclWriter) text(b box, t textSpec) {
	switch t.align {
	case AlignCentered:
		w.cmd.Align("CENTER")
	case AlignTrailing:
		w.cmd.Align("RIGHT")
	default:
		w.cmd.Align("LEFT")
	}
	if t.bold {
		w.cmd.Bold(true)
	}
	f := cpclFonts[t.bucket]
	w.cmd.Text(f.font, f.size, b.x, b.y, b.rotation, t.value)
	if t.bold {
		w.cmd.Bold(false)
	}
	if t.align != AlignLeading {
		w.cmd.Align("LEFT")
	}
}

func (w *cpclWriter) bitmap(b box, r raster) {
	w.cmd.Graphics(r.widthBytes, r.height, b.x, b.y, r.data)
}

func (w *cpclWriter) qrcode(b box, data string) {
	w.cmd.QRCode(b.x, b.y, qrCell(b), "M", data)
}

func (w *cpclWriter) barcode(b box, s barcodeSpec) {
	ratio := 1
	if ratioSymbology(s.symbology) {
		ratio = 2
	}
	vertical := b.rotation == 90 || b.rotation == 270
	w.cmd.Barcode(cpclSymbologies[s.symbology], 1, ratio, barcodeHeight(b, s.showText), b.x, b.y, vertical, s.data)
}

func (w *cpclWriter) bar(b box) {
	if b.w >= b.h {
		w.cmd.Line(b.x, b.y, b.x+b.w, b.y, b.h)
		return
	}
	w.cmd.Line(b.x, b.y, b.x, b.y+b.h, b.w)
}

func (w *cpclWriter) finish() []byte {
	return w.cmd.Form().Print().Bytes()
}

// escposWriter renders in line mode. Vertical placement is approximated
// by feeding to each element's top edge; elements above the current paper
// position print at the current line.
type escposWriter struct {
	body   *escpos.Command
	cursor int // dots fed so far
	copies int
}

var escposSymbologies = map[Symbology]byte{
	Code128: escpos.BarcodeCode128,
	Code39:  escpos.BarcodeCode39,
	Code93:  escpos.BarcodeCode93,
	EAN13:   escpos.BarcodeEAN13,
	EAN8:    escpos.BarcodeEAN8,
	UPCA:    escpos.BarcodeUPCA,
	UPCE:    escpos.BarcodeUPCE,
	Codabar: escpos.BarcodeCodabar,
	ITF:     escpos.BarcodeITF,
}

// character magnification (width, height) per bucket
var escposSizes = [...][2]int{{1, 1}, {1, 1}, {1, 2}, {2, 2}, {2, 3}, {3, 3}}

func newESCPOSWriter(t label.Template, g geometry) *escposWriter {
	return &escposWriter{body: escpos.New(), copies: t.Copies}
}

func (w *escposWriter) moveTo(b box) {
	if b.y > w.cursor {
		w.body.FeedDots(b.y - w.cursor)
		w.cursor = b.y
	}
}

func (w *escposWriter) advance(b box, printed int) {
	w.cursor = b.y + max(printed, 0)
}

func (w *escposWriter) text(b box, t textSpec) {
	w.moveTo(b)
	switch t.align {
	case AlignCentered:
		w.body.Align(escpos.AlignCenter)
	case AlignTrailing:
		w.body.Align(escpos.AlignRight)
	default:
		w.body.Align(escpos.AlignLeft).Position(b.x)
	}
	switch b.rotation {
	case 90, 270:
		w.body.Rotate90(true)
	case 180:
		w.body.UpsideDown(true)
	}
	size := escposSizes[t.bucket]
	w.body.Bold(t.bold).CharSize(size[0], size[1]).Text(t.value)
	w.body.Bold(false).CharSize(1, 1).Rotate90(false).UpsideDown(false).Align(escpos.AlignLeft)
	w.advance(b, 24*size[1])
}

func (w *escposWriter) bitmap(b box, r raster) {
	w.moveTo(b)
	w.body.Align(escpos.AlignLeft).Position(b.x).Raster(r.widthBytes, r.height, r.data)
	w.advance(b, r.height)
}

func (w *escposWriter) qrcode(b box, data string) {
	w.moveTo(b)
	w.body.Align(escpos.AlignLeft).Position(b.x).QRCode(qrCell(b), 'M', data)
	w.advance(b, b.h)
}

func (w *escposWriter) barcode(b box, s barcodeSpec) {
	w.moveTo(b)
	h := barcodeHeight(b, s.showText)
	w.body.Align(escpos.AlignLeft).Position(b.x).Barcode(escposSymbologies[s.symbology], h, 2, s.showText, s.data)
	w.advance(b, b.h)
}

func (w *escposWriter) bar(b box) {
	w.moveTo(b)
	widthBytes := (b.w + 7) / 8
	data := make([]byte, widthBytes*b.h)
	for y := 0; y < b.h; y++ {
		for x := 0; x < b.w; x++ {
			data[y*widthBytes+x/8] |= 0x80 >> (x % 8)
		}
	}
	w.body.Align(escpos.AlignLeft).Position(b.x).Raster(widthBytes, b.h, data)
	w.advance(b, b.h)
}

func (w *escposWriter) finish() []byte {
	body := w.body.Feed(3).Cut().Bytes()
	out := escpos.New().Init().Bytes()
	for i := 0; i < max(w.copies, 1); i++ {
		out = append(out, body...)
	}
	return out
}
