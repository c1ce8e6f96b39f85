package encoder

import "strings"

// Symbology is a logical 1D barcode type
type Symbology int

const (
	Code128 Symbology = iota
	Code39
	Code93
	EAN13
	EAN8
	UPCA
	UPCE
	Codabar
	ITF
)

var symbologyTags = map[string]Symbology{
	"CODE128": Code128,
	"CODE39":  Code39,
	"CODE93":  Code93,
	"EAN13":   EAN13,
	"EAN8":    EAN8,
	"UPCA":    UPCA,
	"UPCE":    UPCE,
	"CODABAR": Codabar,
	"ITF":     ITF,
	"ITF14":   ITF,
}

// ParseSymbology maps a barcode type tag ("CODE_128", "ean-13", ...) to a
// Symbology. Unknown tags are Code128.
func ParseSymbology(tag string) Symbology {
	norm := strings.ToUpper(strings.NewReplacer("_", "", "-", "", " ", "").Replace(tag))
	if s, ok := symbologyTags[norm]; ok {
		return s
	}
	return Code128
}

var tsplSymbologies = map[Symbology]string{
	Code128: "128",
	Code39:  "39",
	Code93:  "93",
	EAN13:   "EAN13",
	EAN8:    "EAN8",
	UPCA:    "UPCA",
	UPCE:    "UPCE",
	Codabar: "CODA",
	ITF:     "25",
}

var cpclSymbologies = map[Symbology]string{
	Code128: "128",
	Code39:  "39",
	Code93:  "93",
	EAN13:   "EAN13",
	EAN8:    "EAN8",
	UPCA:    "UPCA",
	UPCE:    "UPCE",
	Codabar: "CODABAR",
	ITF:     "I2OF5",
}

// ratioSymbology reports whether the symbology uses distinct wide bars
func ratioSymbology(s Symbology) bool {
	return s == Code39 || s == Codabar || s == ITF
}
