package imaging

import (
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	dimg "github.com/disintegration/imaging"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

type Orientation int

const (
	Horizontal Orientation = iota
	Vertical
)

// Align is horizontal text placement within the target box
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// TextOptions configures text rendering
type TextOptions struct {
	FontSize      float64 // points
	DPI           float64 // defaults to 203
	Orientation   Orientation
	Align         Align
	Bold          bool
	Invert        bool // White text on black background
	WordBreakOnly bool // Only break lines on spaces, not mid-word
}

var (
	fontsOnce   sync.Once
	regularFont *truetype.Font
	boldFont    *truetype.Font
	fontErr     error
)

func loadFonts() (*truetype.Font, *truetype.Font, error) {
	fontsOnce.Do(func() {
		regularFont, fontErr = truetype.Parse(goregular.TTF)
		if fontErr != nil {
			return
		}
		boldFont, fontErr = truetype.Parse(gobold.TTF)
	})
	return regularFont, boldFont, fontErr
}

// RenderText creates an image of width x height dots with the text centered
// vertically.
func RenderText(text string, width, height int, opts TextOptions) (image.Image, error) {
	// For vertical, we swap dimensions for initial render, then rotate
	renderW, renderH := width, height
	if opts.Orientation == Vertical {
		renderW, renderH = height, width
	}

	// Set colors based on invert option
	bgColor := color.White
	if opts.Invert {
		bgColor = color.Black
	}

	img := image.NewRGBA(image.Rect(0, 0, renderW, renderH))
	draw.Draw(img, img.Bounds(), &image.Uniform{bgColor}, image.Point{}, draw.Src)

	o := opts
	o.Orientation = Horizontal
	if err := DrawText(img, img.Bounds(), text, o); err != nil {
		return nil, err
	}

	// Rotate if vertical
	if opts.Orientation == Vertical {
		return dimg.Rotate270(img), nil
	}

	return img, nil
}

// DrawText draws wrapped text into rect of dst, vertically centered.
func DrawText(dst draw.Image, rect image.Rectangle, text string, opts TextOptions) error {
	regular, bold, err := loadFonts()
	if err != nil {
		return err
	}
	f := regular
	if opts.Bold {
		f = bold
	}
	dpi := opts.DPI
	if dpi == 0 {
		dpi = 203 // Match printer DPI
	}

	fgColor := color.Black
	if opts.Invert {
		fgColor = color.White
	}

	// Set up freetype context
	c := freetype.NewContext()
	c.SetDPI(dpi)
	c.SetFont(f)
	c.SetFontSize(opts.FontSize)
	c.SetClip(rect)
	c.SetDst(dst)
	c.SetSrc(&image.Uniform{fgColor})
	c.SetHinting(font.HintingFull)

	face := truetype.NewFace(f, &truetype.Options{Size: opts.FontSize, DPI: dpi})
	defer face.Close()
	metrics := face.Metrics()
	textHeight := metrics.Ascent.Ceil()
	lineHeight := metrics.Height.Ceil()

	// Word wrap and draw
	var lines []string
	if opts.WordBreakOnly {
		lines = wrapTextWordOnly(text, face, rect.Dx())
	} else {
		lines = wrapText(text, face, rect.Dx())
	}
	y := rect.Min.Y + (rect.Dy()-len(lines)*lineHeight)/2 + textHeight

	for _, line := range lines {
		lineWidth := measureString(face, line)
		x := rect.Min.X
		switch opts.Align {
		case AlignCenter:
			x += (rect.Dx() - lineWidth) / 2
		case AlignRight:
			x += rect.Dx() - lineWidth
		}

		if _, err := c.DrawString(line, freetype.Pt(x, y)); err != nil {
			return err
		}
		y += lineHeight
	}

	return nil
}

// wrapText splits text into lines that fit within maxWidth (breaks anywhere)
func wrapText(text string, face font.Face, maxWidth int) []string {
	var lines []string
	var currentLine string

	for _, char := range text {
		if char == '\n' {
			lines = append(lines, currentLine)
			currentLine = ""
			continue
		}
		testLine := currentLine + string(char)
		if measureString(face, testLine) > maxWidth && currentLine != "" {
			lines = append(lines, currentLine)
			currentLine = string(char)
		} else {
			currentLine = testLine
		}
	}

	if currentLine != "" {
		lines = append(lines, currentLine)
	}

	return lines
}

// wrapTextWordOnly splits text into lines, only breaking at word boundaries
func wrapTextWordOnly(text string, face font.Face, maxWidth int) []string {
	var lines []string

	// First split by explicit newlines
	paragraphs := strings.Split(text, "\n")

	for _, para := range paragraphs {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}

		currentLine := words[0]
		for i := 1; i < len(words); i++ {
			word := words[i]
			testLine := currentLine + " " + word

			if measureString(face, testLine) > maxWidth {
				// Current line is full, start new line
				lines = append(lines, currentLine)

				// Check if single word is too long
				if measureString(face, word) > maxWidth {
					currentLine = breakLongWord(word, face, maxWidth, &lines)
				} else {
					currentLine = word
				}
			} else {
				currentLine = testLine
			}
		}

		if currentLine != "" {
			lines = append(lines, currentLine)
		}
	}

	return lines
}

// breakLongWord breaks a single word that's too long to fit
func breakLongWord(word string, face font.Face, maxWidth int, lines *[]string) string {
	var currentPart string
	for _, char := range word {
		testPart := currentPart + string(char)
		if measureString(face, testPart) > maxWidth && currentPart != "" {
			*lines = append(*lines, currentPart)
			currentPart = string(char)
		} else {
			currentPart = testPart
		}
	}
	return currentPart
}

// measureString returns the width of a string in pixels
func measureString(face font.Face, s string) int {
	var width fixed.Int26_6
	for _, r := range s {
		adv, ok := face.GlyphAdvance(r)
		if ok {
			width += adv
		}
	}
	return width.Ceil()
}

// RotatePreviewForDisplay rotates a vertical-orientation image for on-screen display
// so the text reads correctly (counter-clockwise)
func RotatePreviewForDisplay(img image.Image) image.Image {
	return dimg.Rotate90(img)
}
