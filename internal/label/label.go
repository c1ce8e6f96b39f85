// Package label holds the print template model: the medium, its visual
// elements and the data context their bindings resolve against.
package label

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Language identifies a printer command language.
type Language string

const (
	LanguageTSPL   Language = "tspl"
	LanguageCPCL   Language = "cpcl"
	LanguageESCPOS Language = "escpos"
)

// ParseLanguage maps a language tag to a known Language. Unknown tags
// report ok=false and return TSPL.
func ParseLanguage(s string) (Language, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tspl", "tspl2", "tsc":
		return LanguageTSPL, true
	case "cpcl", "zebra-cpcl":
		return LanguageCPCL, true
	case "escpos", "esc/pos", "esc", "pos":
		return LanguageESCPOS, true
	}
	return LanguageTSPL, false
}

// Orientation of the medium
type Orientation int

const (
	Portrait Orientation = iota
	Landscape
)

func (o Orientation) String() string {
	if o == Landscape {
		return "landscape"
	}
	return "portrait"
}

// ParseOrientation accepts "portrait" or "landscape"; anything else is portrait.
func ParseOrientation(s string) Orientation {
	if strings.EqualFold(strings.TrimSpace(s), "landscape") {
		return Landscape
	}
	return Portrait
}

// Template describes the physical medium of one print job.
type Template struct {
	ID          string
	Name        string
	Width       float64 // mm
	Height      float64 // mm
	Orientation Orientation
	DPI         int
	Density     int     // 0-15
	Gap         float64 // mm
	GapOffset   float64 // mm
	Language    Language
	Copies      int
}

// DotsPerMM returns the dot density for the template's DPI class.
func (t Template) DotsPerMM() float64 {
	switch t.DPI {
	case 300:
		return 12
	case 600:
		return 24
	default:
		return 8
	}
}

// Kind is the closed set of element primitives.
type Kind int

const (
	KindText Kind = iota
	KindImage
	KindQRCode
	KindBarcode
	KindLine
)

var kindNames = [...]string{"text", "image", "qrcode", "barcode", "line"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind maps a kind tag ("TEXT", "qr_code", ...) to a Kind.
func ParseKind(s string) (Kind, error) {
	norm := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(s))
	switch norm {
	case "text":
		return KindText, nil
	case "image", "logo":
		return KindImage, nil
	case "qrcode", "qr":
		return KindQRCode, nil
	case "barcode":
		return KindBarcode, nil
	case "line":
		return KindLine, nil
	}
	return 0, fmt.Errorf("unknown element kind %q", s)
}

// Element is one positioned primitive within a template. Geometry is in
// millimeters relative to the template origin.
type Element struct {
	Kind     Kind
	X, Y     float64
	Width    float64
	Height   float64
	Rotation float64 // degrees
	ZIndex   int
	// Properties is the serialized JSON property bag as persisted.
	Properties string
	Binding    string
	Visible    bool
}

// Properties is the decoded kind-specific property bag.
type Properties struct {
	Text        string  `json:"text"`
	FontSize    float64 `json:"fontSize"`
	Alignment   string  `json:"alignment"`
	Bold        bool    `json:"bold"`
	Source      string  `json:"source"`
	BarcodeType string  `json:"barcodeType"`
	Data        string  `json:"data"`
	Thickness   float64 `json:"thickness"`
	ShowText    bool    `json:"showText"`
}

// Props decodes the element's property bag. An empty bag is not an error.
func (e Element) Props() (Properties, error) {
	var p Properties
	raw := strings.TrimSpace(e.Properties)
	if raw == "" {
		return p, nil
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Properties{}, fmt.Errorf("decode %s properties: %w", e.Kind, err)
	}
	return p, nil
}

// StaticValue is the value an element prints when its binding does not resolve.
func (p Properties) StaticValue(k Kind) string {
	if (k == KindQRCode || k == KindBarcode) && p.Data != "" {
		return p.Data
	}
	return p.Text
}

// Ordered returns the visible elements sorted by ascending ZIndex. Elements
// sharing a ZIndex keep their input order.
func Ordered(elements []Element) []Element {
	out := make([]Element, 0, len(elements))
	for _, e := range elements {
		if e.Visible {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ZIndex < out[j].ZIndex
	})
	return out
}
