package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"

	dimg "github.com/disintegration/imaging"
	"github.com/makeworld-the-better-one/dither/v2"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var ErrNoResolver = errors.New("no resolver for content reference")

// RasterOptions controls 1-bit conversion
type RasterOptions struct {
	Threshold  uint8 // gray values below this are dark
	MSBFirst   bool  // leftmost pixel in the high bit
	BlackIsOne bool  // dark pixels are set bits
	Dither     bool  // Floyd-Steinberg before thresholding
}

// LoadImage loads an image from file
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Decode(f)
}

// Decode decodes any registered image format
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	return img, err
}

// Loader opens image sources by reference. Plain references are file paths;
// references with a scheme ("content://...") go through Resolve.
type Loader struct {
	Resolve func(ref string) (io.ReadCloser, error)
}

// Load opens and decodes the referenced image
func (l Loader) Load(ref string) (image.Image, error) {
	if ref == "" {
		return nil, errors.New("empty image reference")
	}
	if path, ok := strings.CutPrefix(ref, "file://"); ok {
		return LoadImage(path)
	}
	if !strings.Contains(ref, "://") {
		return LoadImage(ref)
	}
	if l.Resolve == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoResolver, ref)
	}
	rc, err := l.Resolve(ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return Decode(rc)
}

// ToMonochrome converts an image to a packed 1-bit bitmap of width x height
// dots. The image is scaled to fit, keeping its aspect ratio, and padded with
// white. Rows are padded to whole bytes.
func ToMonochrome(img image.Image, width, height int, opts RasterOptions) []byte {
	widthBytes := (width + 7) / 8
	data := make([]byte, widthBytes*height)
	if width <= 0 || height <= 0 {
		return data
	}

	resized := flatten(resizeToFit(img, width, height))
	var src image.Image = resized
	if opts.Dither {
		d := dither.NewDitherer([]color.Color{color.Black, color.White})
		d.Matrix = dither.FloydSteinberg
		src = d.Dither(resized)
		if src == nil {
			src = resized
		}
	}
	b := src.Bounds()

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var gray uint8 = 255 // white for out of bounds
			if x < b.Dx() && y < b.Dy() {
				gray = rgbToGray(src.At(b.Min.X+x, b.Min.Y+y))
			}

			dark := gray < opts.Threshold
			if dark != opts.BlackIsOne {
				continue
			}

			byteIdx := y*widthBytes + x/8
			bitIdx := x % 8
			if opts.MSBFirst {
				bitIdx = 7 - bitIdx
			}
			data[byteIdx] |= 1 << bitIdx
		}
	}

	return data
}

// Invert flips every bit of a packed bitmap in place
func Invert(data []byte) []byte {
	for i := range data {
		data[i] = ^data[i]
	}
	return data
}

// resizeToFit scales image to fit within bounds while maintaining aspect ratio
func resizeToFit(img image.Image, maxW, maxH int) image.Image {
	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()
	if srcW == 0 || srcH == 0 {
		return img
	}

	// Calculate scale factor
	scaleW := float64(maxW) / float64(srcW)
	scaleH := float64(maxH) / float64(srcH)
	scale := scaleW
	if scaleH < scaleW {
		scale = scaleH
	}

	newW := int(float64(srcW) * scale)
	newH := int(float64(srcH) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	// nearest neighbor keeps edges crisp for thermal heads
	return dimg.Resize(img, newW, newH, dimg.NearestNeighbor)
}

// flatten composites onto white so transparent areas do not print
func flatten(img image.Image) *image.RGBA {
	dst := image.NewRGBA(img.Bounds())
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Over)
	return dst
}

// rgbToGray converts a color to grayscale value
func rgbToGray(c color.Color) uint8 {
	r, g, b, _ := c.RGBA()
	// Standard luminance formula, values are 16-bit so divide by 256
	gray := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 256
	return uint8(gray)
}

// PreviewMonochrome creates a viewable image from MSB-first, black-is-one
// bitmap data
func PreviewMonochrome(data []byte, width, height int) image.Image {
	widthBytes := (width + 7) / 8
	img := image.NewGray(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			byteIdx := y*widthBytes + x/8
			bitIdx := 7 - (x % 8)
			bit := (data[byteIdx] >> bitIdx) & 1

			if bit == 1 {
				img.SetGray(x, y, color.Gray{0}) // black
			} else {
				img.SetGray(x, y, color.Gray{255}) // white
			}
		}
	}

	return img
}
