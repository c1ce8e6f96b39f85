package encoder

import (
	"encoding/json"
	"strings"

	"label-dispatch/internal/label"
)

// text payload layout, in millimeters
const (
	textMargin     = 2.0
	textLineHeight = 4.0
	textFontSize   = 10
)

// EncodeText lays plain text out one line per text command on the given
// medium and encodes it in the medium's language.
func (e *Encoder) EncodeText(media label.Template, text string) []byte {
	return e.Encode(media, TextElements(media, text), label.DataContext{})
}

// TextElements builds one left-aligned text element per line of text.
func TextElements(media label.Template, text string) []label.Element {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	elements := make([]label.Element, 0, len(lines))
	for i, line := range lines {
		props, _ := json.Marshal(label.Properties{Text: line, FontSize: textFontSize})
		elements = append(elements, label.Element{
			Kind:       label.KindText,
			X:          textMargin,
			Y:          textMargin + float64(i)*textLineHeight,
			Width:      max(media.Width-2*textMargin, 0),
			Height:     textLineHeight,
			ZIndex:     i,
			Properties: string(props),
			Visible:    true,
		})
	}
	return elements
}
