// Package encoder turns a label template and its data context into the byte
// stream of a printer command language.
package encoder

import (
	"image"
	"strings"
	"time"

	"go.uber.org/zap"

	"label-dispatch/internal/imaging"
	"label-dispatch/internal/label"
	"label-dispatch/internal/logger"
	"label-dispatch/internal/metrics"
)

// DefaultThreshold is the gray level below which image pixels print
const DefaultThreshold = 128

// Rasterizer converts a bitmap to packed 1-bit device raster rows of
// widthDots x heightDots.
type Rasterizer interface {
	BitmapToRaster(img image.Image, widthDots, heightDots int, opts imaging.RasterOptions) []byte
}

// ImageLoader opens an image element's source reference
type ImageLoader interface {
	Load(ref string) (image.Image, error)
}

// Encoder is safe for concurrent use as long as its collaborators are.
type Encoder struct {
	Raster    Rasterizer
	Images    ImageLoader
	Threshold uint8
}

// New returns an Encoder that loads images from the file system
func New(r Rasterizer) *Encoder {
	return &Encoder{
		Raster:    r,
		Images:    imaging.Loader{},
		Threshold: DefaultThreshold,
	}
}

// Language resolves the template's language tag. Unknown tags fall back to
// TSPL.
func Language(t label.Template) label.Language {
	lang, ok := label.ParseLanguage(string(t.Language))
	if !ok && t.Language != "" {
		logger.Warn("Unknown command language, using TSPL", zap.String("language", string(t.Language)))
	}
	return lang
}

// Encode renders the visible elements in ascending stacking order and
// returns the finished job. Element-level faults are logged and the element
// is skipped or degraded; they never fail the job.
func (e *Encoder) Encode(t label.Template, elements []label.Element, ctx label.DataContext) []byte {
	start := time.Now()
	lang := Language(t)
	g := newGeometry(t)

	var w writer
	switch lang {
	case label.LanguageCPCL:
		w = newCPCLWriter(t, g)
	case label.LanguageESCPOS:
		w = newESCPOSWriter(t, g)
	default:
		w = newTSPLWriter(t, g)
	}

	for i, el := range label.Ordered(elements) {
		e.element(w, g, i, el, ctx)
	}

	out := w.finish()
	metrics.ObserveEncode(string(lang), time.Since(start))
	logger.Debug("Encoded label",
		zap.String("template", t.Name),
		zap.String("language", string(lang)),
		zap.Int("elements", len(elements)),
		zap.Int("bytes", len(out)))
	return out
}

func (e *Encoder) element(w writer, g geometry, idx int, el label.Element, ctx label.DataContext) {
	props, err := el.Props()
	if err != nil {
		fault(idx, el.Kind, "malformed properties, using defaults", err)
	}

	box := g.box(el)
	switch el.Kind {
	case label.KindText:
		w.text(box, textSpec{
			value:  printable(ctx.Resolve(el.Binding, props.StaticValue(el.Kind))),
			bucket: FontBucket(props.FontSize),
			align:  ParseAlignment(props.Alignment),
			bold:   props.Bold,
		})

	case label.KindImage:
		e.image(w, g, idx, el, props, box)

	case label.KindQRCode:
		w.qrcode(box, printable(ctx.Resolve(el.Binding, props.StaticValue(el.Kind))))

	case label.KindBarcode:
		w.barcode(box, barcodeSpec{
			symbology: ParseSymbology(props.BarcodeType),
			data:      printable(ctx.Resolve(el.Binding, props.StaticValue(el.Kind))),
			showText:  props.ShowText,
		})

	case label.KindLine:
		w.bar(g.line(el, props))

	default:
		fault(idx, el.Kind, "unsupported element kind", nil)
	}
}

func (e *Encoder) image(w writer, g geometry, idx int, el label.Element, props label.Properties, box box) {
	if e.Raster == nil || e.Images == nil {
		fault(idx, el.Kind, "no image collaborators configured", nil)
		return
	}
	img, err := e.Images.Load(props.Source)
	if err != nil {
		fault(idx, el.Kind, "image decode failed, skipping", err)
		return
	}

	size := g.dots(min(el.Width, el.Height))
	if size <= 0 {
		fault(idx, el.Kind, "image has no area, skipping", nil)
		return
	}

	data := e.Raster.BitmapToRaster(img, size, size, imaging.RasterOptions{
		Threshold:  e.Threshold,
		MSBFirst:   true,
		BlackIsOne: true,
	})
	widthBytes := (size + 7) / 8
	if len(data) != widthBytes*size {
		fault(idx, el.Kind, "raster size mismatch, skipping", nil)
		return
	}
	w.bitmap(box, raster{widthBytes: widthBytes, height: size, data: data})
}

// printable keeps a field on one command line: control bytes become
// spaces, and an empty field becomes a single space since printers reject
// empty text fields.
func printable(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, s)
	if s == "" {
		return " "
	}
	return s
}

func fault(idx int, kind label.Kind, msg string, err error) {
	fields := []zap.Field{zap.Int("element", idx), zap.String("kind", kind.String())}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	logger.Warn(msg, fields...)
	metrics.ElementFault(kind.String())
}
