// Package preview draws a label as it will print, at device resolution.
package preview

import (
	"image"
	"image/draw"
	"io"
	"math"

	dimg "github.com/disintegration/imaging"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"label-dispatch/internal/encoder"
	"label-dispatch/internal/imaging"
	"label-dispatch/internal/label"
	"label-dispatch/internal/logger"
)

const defaultFontSize = 10

// Renderer is safe for concurrent use.
type Renderer struct {
	Images    encoder.ImageLoader
	Threshold uint8
	Dither    bool
}

func New() *Renderer {
	return &Renderer{Images: imaging.Loader{}, Threshold: encoder.DefaultThreshold}
}

// Render draws the visible elements in stacking order on a white canvas
// sized to the medium.
func (r *Renderer) Render(t label.Template, elements []label.Element, ctx label.DataContext) (*image.RGBA, error) {
	dpm := t.DotsPerMM()
	canvas := image.NewRGBA(image.Rect(0, 0, dots(t.Width, dpm), dots(t.Height, dpm)))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	for i, el := range label.Ordered(elements) {
		props, err := el.Props()
		if err != nil {
			logger.Warn("Preview: malformed properties, using defaults", zap.Int("element", i), zap.Error(err))
		}
		rect := encoder.Placement(t, el)
		rotation := encoder.QuarterTurn(el.Rotation)

		switch el.Kind {
		case label.KindText:
			value := ctx.Resolve(el.Binding, props.StaticValue(el.Kind))
			if err := r.text(canvas, t, rect, rotation, value, props); err != nil {
				return nil, err
			}
		case label.KindImage:
			r.image(canvas, i, rect, props)
		case label.KindQRCode:
			qrCode(canvas, i, rect, ctx.Resolve(el.Binding, props.StaticValue(el.Kind)))
		case label.KindBarcode:
			if err := barcode(canvas, t, rect, ctx.Resolve(el.Binding, props.StaticValue(el.Kind)), props.ShowText); err != nil {
				return nil, err
			}
		case label.KindLine:
			draw.Draw(canvas, encoder.LinePlacement(t, el, props), image.Black, image.Point{}, draw.Src)
		}
	}
	return canvas, nil
}

// WritePNG renders and encodes the label as PNG
func (r *Renderer) WritePNG(w io.Writer, t label.Template, elements []label.Element, ctx label.DataContext) error {
	img, err := r.Render(t, elements, ctx)
	if err != nil {
		return err
	}
	return dimg.Encode(w, img, dimg.PNG)
}

func (r *Renderer) text(dst *image.RGBA, t label.Template, rect image.Rectangle, rotation int, value string, props label.Properties) error {
	if value == "" || rect.Empty() {
		return nil
	}
	size := props.FontSize
	if size <= 0 {
		size = defaultFontSize
	}
	opts := imaging.TextOptions{
		FontSize: size,
		DPI:      dpi(t),
		Bold:     props.Bold,
	}
	switch encoder.ParseAlignment(props.Alignment) {
	case encoder.AlignCentered:
		opts.Align = imaging.AlignCenter
	case encoder.AlignTrailing:
		opts.Align = imaging.AlignRight
	}

	if rotation == 0 {
		return imaging.DrawText(dst, rect, value, opts)
	}
	if rotation == 90 || rotation == 270 {
		opts.Orientation = imaging.Vertical
	}
	img, err := imaging.RenderText(value, rect.Dx(), rect.Dy(), opts)
	if err != nil {
		return err
	}
	if rotation == 180 {
		img = dimg.Rotate180(img)
	}
	draw.Draw(dst, rect, img, img.Bounds().Min, draw.Src)
	return nil
}

func (r *Renderer) image(dst *image.RGBA, idx int, rect image.Rectangle, props label.Properties) {
	if r.Images == nil {
		return
	}
	img, err := r.Images.Load(props.Source)
	if err != nil {
		logger.Warn("Preview: image decode failed, skipping", zap.Int("element", idx), zap.Error(err))
		return
	}
	size := min(rect.Dx(), rect.Dy())
	if size <= 0 {
		return
	}
	data := imaging.ToMonochrome(img, size, size, imaging.RasterOptions{
		Threshold:  r.Threshold,
		MSBFirst:   true,
		BlackIsOne: true,
		Dither:     r.Dither,
	})
	mono := imaging.PreviewMonochrome(data, size, size)
	draw.Draw(dst, image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+size, rect.Min.Y+size), mono, image.Point{}, draw.Src)
}

func qrCode(dst *image.RGBA, idx int, rect image.Rectangle, content string) {
	size := min(rect.Dx(), rect.Dy())
	if size <= 0 {
		return
	}
	if content == "" {
		content = " "
	}
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		logger.Warn("Preview: QR encode failed", zap.Int("element", idx), zap.Error(err))
		return
	}
	q.DisableBorder = true
	img := q.Image(size)
	draw.Draw(dst, image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+size, rect.Min.Y+size), img, img.Bounds().Min, draw.Src)
}

// barcode draws a stand-in: bar widths follow the data bytes but the
// pattern is not a real symbology.
func barcode(dst *image.RGBA, t label.Template, rect image.Rectangle, content string, showText bool) error {
	if rect.Empty() {
		return nil
	}
	bars := rect
	if showText && rect.Dy() > 24 {
		bars.Max.Y -= 24
	}
	x := bars.Min.X
	for _, b := range []byte(content) {
		for bit := 7; bit >= 0 && x < bars.Max.X; bit-- {
			w := 2
			if b>>bit&1 == 1 {
				w = 4
			}
			if bit%2 == 1 {
				draw.Draw(dst, image.Rect(x, bars.Min.Y, min(x+w, bars.Max.X), bars.Max.Y), image.Black, image.Point{}, draw.Src)
			}
			x += w
		}
	}
	if showText && bars != rect {
		return imaging.DrawText(dst, image.Rect(rect.Min.X, bars.Max.Y, rect.Max.X, rect.Max.Y), content, imaging.TextOptions{
			FontSize: 6,
			DPI:      dpi(t),
			Align:    imaging.AlignCenter,
		})
	}
	return nil
}

func dots(mm, perMM float64) int {
	return int(math.Round(mm * perMM))
}

func dpi(t label.Template) float64 {
	return t.DotsPerMM() * 25.4
}
