package dispatch

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"label-dispatch/internal/label"
	"label-dispatch/internal/logger"
)

// Item label formats in millimeters
var itemFormats = map[string]struct{ width, height float64 }{
	"small":  {40, 30},
	"medium": {50, 30},
	"large":  {58, 40},
}

const (
	layoutMargin = 2.0
	logoSize     = 8.0
	// narrowest text box a name still fits in; a logo that would leave
	// less is dropped
	minTextWidth = 12.0
)

// ItemFormat normalizes a format tag; unknown formats are small.
func ItemFormat(format string) string {
	f := strings.ToLower(strings.TrimSpace(format))
	if _, ok := itemFormats[f]; ok {
		return f
	}
	if f != "" {
		logger.Debug("Unknown item label format, using small", zap.String("format", format))
	}
	return "small"
}

// ItemTemplate builds the built-in item label: name, price and id, with an
// optional QR code of the item id on the right and an optional logo.
func (d *Dispatcher) ItemTemplate(il ItemLabel) (label.Template, []label.Element, label.DataContext) {
	format := ItemFormat(il.Format)
	size := itemFormats[format]
	t := label.Template{
		Name:     "item-" + format,
		Width:    size.width,
		Height:   size.height,
		DPI:      203,
		Density:  8,
		Gap:      2,
		Language: d.settings.Language,
		Copies:   1,
	}

	textX := layoutMargin
	textW := size.width - 2*layoutMargin
	var elements []label.Element

	if il.IncludeQR {
		// the QR column takes at most half the printable width
		qr := min(size.height-2*layoutMargin, (size.width-3*layoutMargin)/2)
		elements = append(elements, element(label.KindQRCode, size.width-layoutMargin-qr, layoutMargin, qr, qr, "item.itemId", label.Properties{}))
		textW -= qr + layoutMargin
	}
	textW = max(textW, minTextWidth)

	logo := il.LogoPath
	if logo == "" {
		logo = d.settings.LogoPath
	}
	nameX, nameW := textX, textW
	if il.IncludeLogo && logo != "" {
		if textW-logoSize-layoutMargin < minTextWidth {
			logger.Debug("No room for logo on item label", zap.String("format", format), zap.Bool("qr", il.IncludeQR))
		} else {
			elements = append(elements, element(label.KindImage, textX, layoutMargin, logoSize, logoSize, "", label.Properties{Source: logo}))
			nameX += logoSize + layoutMargin
			nameW -= logoSize + layoutMargin
		}
	}

	elements = append(elements,
		element(label.KindText, nameX, layoutMargin, nameW, 6, "item.name", label.Properties{FontSize: 12, Bold: true}),
		element(label.KindText, textX, layoutMargin+10, textW, 6, "item.price", label.Properties{FontSize: 14}),
		element(label.KindText, textX, size.height-layoutMargin-4, textW, 4, "item.itemId", label.Properties{FontSize: 8}),
	)
	for i := range elements {
		elements[i].ZIndex = i
	}

	item := il.Item
	return t, elements, label.DataContext{Item: &item, Store: il.Store}
}

// TestLabel is the diagnostic medium: a 40x30 label in lang.
func TestLabel(lang label.Language) label.Template {
	return label.Template{
		Name:     "test-print",
		Width:    40,
		Height:   30,
		DPI:      203,
		Density:  8,
		Gap:      2,
		Language: lang,
		Copies:   1,
	}
}

// TestElements prints a heading, a rule, the target address and the
// language.
func TestElements(address string, lang label.Language) []label.Element {
	resolved, _ := label.ParseLanguage(string(lang))
	return []label.Element{
		element(label.KindText, layoutMargin, 3, 36, 7, "", label.Properties{Text: "TEST PRINT", FontSize: 18, Bold: true, Alignment: "CENTER"}),
		element(label.KindLine, layoutMargin, 11, 36, 0, "", label.Properties{Thickness: 0.25}),
		element(label.KindText, layoutMargin, 14, 36, 4, "", label.Properties{Text: address, FontSize: 8}),
		element(label.KindText, layoutMargin, 20, 36, 4, "", label.Properties{Text: "Language: " + strings.ToUpper(string(resolved)), FontSize: 8}),
	}
}

func element(kind label.Kind, x, y, w, h float64, binding string, props label.Properties) label.Element {
	raw, _ := json.Marshal(props)
	return label.Element{
		Kind:       kind,
		X:          x,
		Y:          y,
		Width:      w,
		Height:     h,
		Binding:    binding,
		Properties: string(raw),
		Visible:    true,
	}
}
