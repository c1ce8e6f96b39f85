package encoder

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"
	"testing"

	"label-dispatch/internal/imaging"
	"label-dispatch/internal/label"
)

type fakeRaster struct {
	calls []imaging.RasterOptions
	sizes [][2]int
}

func (f *fakeRaster) BitmapToRaster(img image.Image, w, h int, opts imaging.RasterOptions) []byte {
	f.calls = append(f.calls, opts)
	f.sizes = append(f.sizes, [2]int{w, h})
	data := make([]byte, (w+7)/8*h)
	for i := range data {
		data[i] = 0xF0
	}
	return data
}

type fakeImages map[string]image.Image

func (f fakeImages) Load(ref string) (image.Image, error) {
	img, ok := f[ref]
	if !ok {
		return nil, errors.New("decode failed")
	}
	return img, nil
}

func newTestEncoder() (*Encoder, *fakeRaster) {
	r := &fakeRaster{}
	e := New(r)
	e.Images = fakeImages{"logo.png": image.NewGray(image.Rect(0, 0, 4, 4))}
	return e, r
}

func labelTemplate(lang label.Language) label.Template {
	return label.Template{Name: "test", Width: 40, Height: 30, DPI: 203, Density: 8, Gap: 2, Language: lang, Copies: 1}
}

func textElement(x, y float64, z int, binding, props string) label.Element {
	return label.Element{Kind: label.KindText, X: x, Y: y, Width: 30, Height: 5, ZIndex: z, Binding: binding, Properties: props, Visible: true}
}

func itemContext() label.DataContext {
	return label.DataContext{Item: &label.Item{ItemID: "TEST001"}}
}

func TestEncodeItemLabelScenario(t *testing.T) {
	e, _ := newTestEncoder()
	out := string(e.Encode(labelTemplate(label.LanguageTSPL),
		[]label.Element{textElement(0, 0, 0, "item.itemId", "")}, itemContext()))

	if !strings.HasPrefix(out, "SIZE 40 mm, 30 mm\r\n") {
		t.Fatalf("output does not start with SIZE: %q", out)
	}
	if !strings.Contains(out, `TEXT 0,0,`) || !strings.Contains(out, `"TEST001"`) {
		t.Fatalf("output missing text command: %q", out)
	}
	if !strings.HasSuffix(out, "PRINT 1\r\n") {
		t.Fatalf("output does not end with PRINT: %q", out)
	}
	for _, cmd := range []string{"GAP 2 mm, 0 mm", "DIRECTION 0,0", "DENSITY 8", "CLS"} {
		if !strings.Contains(out, cmd+"\r\n") {
			t.Fatalf("preamble missing %q: %q", cmd, out)
		}
	}
}

func TestEncodeInvisibleElementScenario(t *testing.T) {
	e, _ := newTestEncoder()
	el := textElement(0, 0, 0, "item.itemId", "")
	el.Visible = false
	out := string(e.Encode(labelTemplate(label.LanguageTSPL), []label.Element{el}, itemContext()))

	if strings.Contains(out, "TEXT") {
		t.Fatalf("invisible element emitted text: %q", out)
	}
	want := "SIZE 40 mm, 30 mm\r\nGAP 2 mm, 0 mm\r\nDIRECTION 0,0\r\nDENSITY 8\r\nCLS\r\nPRINT 1\r\n"
	if out != want {
		t.Fatalf("output = %q, want %q", out, want)
	}
}

func TestEncodeUnknownLanguageFallsBackToTSPL(t *testing.T) {
	e, _ := newTestEncoder()
	elements := []label.Element{textElement(0, 0, 0, "item.itemId", "")}
	want := e.Encode(labelTemplate(label.LanguageTSPL), elements, itemContext())
	for _, lang := range []label.Language{"zpl", "", "EPL2"} {
		got := e.Encode(labelTemplate(lang), elements, itemContext())
		if !bytes.Equal(got, want) {
			t.Fatalf("language %q = %q, want TSPL output %q", lang, got, want)
		}
	}
}

func TestEncodeStackingOrder(t *testing.T) {
	e, _ := newTestEncoder()
	elements := []label.Element{
		textElement(0, 0, 3, "", `{"text":"third"}`),
		textElement(0, 0, 1, "", `{"text":"first"}`),
		textElement(0, 0, 2, "", `{"text":"second"}`),
	}
	for _, lang := range []label.Language{label.LanguageTSPL, label.LanguageCPCL, label.LanguageESCPOS} {
		out := string(e.Encode(labelTemplate(lang), elements, label.DataContext{}))
		first := strings.Index(out, "first")
		second := strings.Index(out, "second")
		third := strings.Index(out, "third")
		if first < 0 || !(first < second && second < third) {
			t.Fatalf("%s: elements out of stacking order: %q", lang, out)
		}
	}
}

func TestEncodeEmptyValueEmitsPlaceholder(t *testing.T) {
	e, _ := newTestEncoder()
	elements := []label.Element{
		textElement(0, 0, 0, "item.name", ""),
		{Kind: label.KindQRCode, Width: 10, Height: 10, Visible: true, Binding: "custom.url"},
		{Kind: label.KindBarcode, Width: 20, Height: 10, Visible: true},
	}
	out := string(e.Encode(labelTemplate(label.LanguageTSPL), elements, label.DataContext{}))
	for _, want := range []string{
		`TEXT 0,0,"2",0,1,1," "`,
		`QRCODE 0,0,M,3,A,0," "`,
		`BARCODE 0,0,"128",80,0,0,2,2," "`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q: %q", want, out)
		}
	}
}

func TestEncodeControlBytesStayInField(t *testing.T) {
	ctx := label.DataContext{Item: &label.Item{Name: "Ring\r\nPRINT 99", ItemID: "A\x00B\tC"}}
	elements := []label.Element{
		textElement(0, 0, 0, "item.name", ""),
		{Kind: label.KindQRCode, Width: 10, Height: 10, ZIndex: 1, Visible: true, Binding: "item.name"},
		{Kind: label.KindBarcode, Width: 20, Height: 10, ZIndex: 2, Visible: true, Binding: "item.itemId"},
	}
	for _, lang := range []label.Language{label.LanguageTSPL, label.LanguageCPCL, label.LanguageESCPOS} {
		t.Run(string(lang), func(t *testing.T) {
			e, _ := newTestEncoder()
			out := string(e.Encode(labelTemplate(lang), elements, ctx))
			if !strings.Contains(out, "Ring  PRINT 99") {
				t.Fatalf("value not flattened to one line: %q", out)
			}
			if !strings.Contains(out, "A B C") {
				t.Fatalf("barcode data not flattened: %q", out)
			}
			for _, line := range strings.Split(out, "\n") {
				if strings.HasPrefix(strings.TrimRight(line, "\r"), "PRINT 99") {
					t.Fatalf("bound value produced a command line %q: %q", line, out)
				}
			}
		})
	}
}

func TestPrintable(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", " "},
		{"plain", "plain"},
		{"a\r\nb", "a  b"},
		{"\x1b@", " @"},
		{"del\x7f", "del "},
		{"Größe", "Größe"},
	}
	for _, tt := range tests {
		if got := printable(tt.in); got != tt.want {
			t.Fatalf("printable(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEncodeStaticFallback(t *testing.T) {
	e, _ := newTestEncoder()
	out := string(e.Encode(labelTemplate(label.LanguageTSPL),
		[]label.Element{textElement(0, 0, 0, "store.name", `{"text":"Static"}`)}, itemContext()))
	if !strings.Contains(out, `"Static"`) {
		t.Fatalf("static fallback not used: %q", out)
	}
}

func TestEncodeMalformedPropertiesDegrade(t *testing.T) {
	e, _ := newTestEncoder()
	elements := []label.Element{
		textElement(0, 0, 0, "item.itemId", `{"fontSize":`),
		textElement(0, 5, 1, "", `{"text":"after"}`),
	}
	out := string(e.Encode(labelTemplate(label.LanguageTSPL), elements, itemContext()))
	if !strings.Contains(out, `TEXT 0,0,"2",0,1,1,"TEST001"`) {
		t.Fatalf("malformed element not degraded to defaults: %q", out)
	}
	if !strings.Contains(out, `"after"`) {
		t.Fatalf("element after malformed one missing: %q", out)
	}
}

func TestEncodeTextAttributes(t *testing.T) {
	e, _ := newTestEncoder()
	tests := []struct {
		name   string
		lang   label.Language
		props  string
		expect []string
	}{
		{
			name:   "tspl centered",
			lang:   label.LanguageTSPL,
			props:  `{"text":"C","alignment":"CENTER","fontSize":14}`,
			expect: []string{`TEXT 120,16,"3",0,1,1,2,"C"`},
		},
		{
			name:   "tspl trailing",
			lang:   label.LanguageTSPL,
			props:  `{"text":"E","alignment":"END","fontSize":30}`,
			expect: []string{`TEXT 240,16,"5",0,1,1,3,"E"`},
		},
		{
			name:   "tspl bold overstrike",
			lang:   label.LanguageTSPL,
			props:  `{"text":"B","bold":true,"fontSize":6}`,
			expect: []string{`TEXT 0,16,"1",0,1,1,"B"`, `TEXT 1,16,"1",0,1,1,"B"`},
		},
		{
			name:   "cpcl centered bold",
			lang:   label.LanguageCPCL,
			props:  `{"text":"C","alignment":"CENTER","bold":true}`,
			expect: []string{"CENTER\r\nSETBOLD 1\r\nTEXT 7 0 0 16 C\r\nSETBOLD 0\r\nLEFT\r\n"},
		},
		{
			name:   "escpos bold centered",
			lang:   label.LanguageESCPOS,
			props:  `{"text":"C","alignment":"CENTER","bold":true,"fontSize":18}`,
			expect: []string{"\x1ba\x01", "\x1bE\x01\x1d!\x12C\n"},
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			out := string(e.Encode(labelTemplate(tc.lang), []label.Element{textElement(0, 2, 0, "", tc.props)}, label.DataContext{}))
			for _, want := range tc.expect {
				if !strings.Contains(out, want) {
					t.Fatalf("output missing %q: %q", want, out)
				}
			}
		})
	}
}

func TestEncodeUnknownBarcodeType(t *testing.T) {
	e, _ := newTestEncoder()
	el := label.Element{Kind: label.KindBarcode, Width: 20, Height: 10, Visible: true, Properties: `{"barcodeType":"MAXICODE","data":"123"}`}
	tests := []struct {
		lang label.Language
		want string
	}{
		{label.LanguageTSPL, `BARCODE 0,0,"128",`},
		{label.LanguageCPCL, "BARCODE 128 "},
		{label.LanguageESCPOS, "\x1dk\x49\x05{B123"},
	}
	for _, tc := range tests {
		out := string(e.Encode(labelTemplate(tc.lang), []label.Element{el}, label.DataContext{}))
		if !strings.Contains(out, tc.want) {
			t.Fatalf("%s: output missing %q: %q", tc.lang, tc.want, out)
		}
	}
}

func TestEncodeBarcodeSymbologies(t *testing.T) {
	e, _ := newTestEncoder()
	tests := []struct {
		tag  string
		tspl string
		cpcl string
	}{
		{"EAN_13", `"EAN13"`, "BARCODE EAN13 "},
		{"code39", `"39"`, "BARCODE 39 1 2 "},
		{"ITF", `"25"`, "BARCODE I2OF5 "},
		{"CODABAR", `"CODA"`, "BARCODE CODABAR "},
	}
	for _, tc := range tests {
		el := label.Element{Kind: label.KindBarcode, Width: 20, Height: 10, Visible: true,
			Properties: fmt.Sprintf(`{"barcodeType":%q,"data":"1234"}`, tc.tag)}
		if out := string(e.Encode(labelTemplate(label.LanguageTSPL), []label.Element{el}, label.DataContext{})); !strings.Contains(out, tc.tspl) {
			t.Fatalf("tspl %s: missing %q in %q", tc.tag, tc.tspl, out)
		}
		if out := string(e.Encode(labelTemplate(label.LanguageCPCL), []label.Element{el}, label.DataContext{})); !strings.Contains(out, tc.cpcl) {
			t.Fatalf("cpcl %s: missing %q in %q", tc.tag, tc.cpcl, out)
		}
	}
}

func TestEncodeImage(t *testing.T) {
	e, r := newTestEncoder()
	elements := []label.Element{
		{Kind: label.KindImage, X: 1, Y: 1, Width: 2, Height: 3, Visible: true, Properties: `{"source":"logo.png"}`},
	}
	out := e.Encode(labelTemplate(label.LanguageTSPL), elements, label.DataContext{})

	if len(r.calls) != 1 {
		t.Fatalf("rasterizer called %d times, want 1", len(r.calls))
	}
	opts := r.calls[0]
	if opts.Threshold != DefaultThreshold || !opts.MSBFirst || !opts.BlackIsOne || opts.Dither {
		t.Fatalf("raster options = %+v", opts)
	}
	if r.sizes[0] != [2]int{16, 16} {
		t.Fatalf("raster size = %v, want square 16x16 from the shorter side", r.sizes[0])
	}
	// TSPL BITMAP wants 0 for black, so the raster is inverted
	want := append([]byte("BITMAP 8,8,2,16,1,"), bytes.Repeat([]byte{0x0F}, 32)...)
	if !bytes.Contains(out, want) {
		t.Fatalf("output missing inverted bitmap: %q", out)
	}

	cp := string(e.Encode(labelTemplate(label.LanguageCPCL), elements, label.DataContext{}))
	if !strings.Contains(cp, "EG 2 16 8 8 "+strings.Repeat("F0", 32)) {
		t.Fatalf("cpcl output missing graphics: %q", cp)
	}
}

func TestEncodeBadImageIsSkipped(t *testing.T) {
	e, r := newTestEncoder()
	elements := []label.Element{
		textElement(0, 0, 0, "", `{"text":"before"}`),
		{Kind: label.KindImage, Width: 5, Height: 5, ZIndex: 1, Visible: true, Properties: `{"source":"missing.png"}`},
		{Kind: label.KindImage, Width: 0, Height: 5, ZIndex: 2, Visible: true, Properties: `{"source":"logo.png"}`},
		textElement(0, 10, 3, "", `{"text":"after"}`),
	}
	out := string(e.Encode(labelTemplate(label.LanguageTSPL), elements, label.DataContext{}))
	if strings.Contains(out, "BITMAP") {
		t.Fatalf("bad images should be skipped: %q", out)
	}
	if len(r.calls) != 0 {
		t.Fatalf("rasterizer called %d times, want 0", len(r.calls))
	}
	if !strings.Contains(out, `"before"`) || !strings.Contains(out, `"after"`) {
		t.Fatalf("job aborted around bad image: %q", out)
	}
	if !strings.HasSuffix(out, "PRINT 1\r\n") {
		t.Fatalf("job not committed: %q", out)
	}
}

func TestEncodeLine(t *testing.T) {
	e, _ := newTestEncoder()
	tests := []struct {
		name string
		el   label.Element
		tspl string
		cpcl string
	}{
		{
			name: "collapsed line",
			el:   label.Element{Kind: label.KindLine, X: 1, Y: 1, Visible: true},
			tspl: "BAR 8,8,2,2",
			cpcl: "LINE 8 8 10 8 2",
		},
		{
			name: "horizontal with zero height",
			el:   label.Element{Kind: label.KindLine, Y: 5, Width: 40, Visible: true},
			tspl: "BAR 0,40,320,2",
			cpcl: "LINE 0 40 320 40 2",
		},
		{
			name: "vertical with thickness",
			el:   label.Element{Kind: label.KindLine, Width: 1, Height: 20, Visible: true, Properties: `{"thickness":0.5}`},
			tspl: "BAR 0,0,4,160",
			cpcl: "LINE 0 0 0 160 4",
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if out := string(e.Encode(labelTemplate(label.LanguageTSPL), []label.Element{tc.el}, label.DataContext{})); !strings.Contains(out, tc.tspl+"\r\n") {
				t.Fatalf("tspl missing %q: %q", tc.tspl, out)
			}
			if out := string(e.Encode(labelTemplate(label.LanguageCPCL), []label.Element{tc.el}, label.DataContext{})); !strings.Contains(out, tc.cpcl+"\r\n") {
				t.Fatalf("cpcl missing %q: %q", tc.cpcl, out)
			}
		})
	}
}

func TestEncodeLanguageFraming(t *testing.T) {
	e, _ := newTestEncoder()
	tmpl := labelTemplate(label.LanguageCPCL)
	tmpl.Copies = 2
	out := string(e.Encode(tmpl, []label.Element{textElement(0, 0, 0, "item.itemId", "")}, itemContext()))
	if !strings.HasPrefix(out, "! 0 200 200 240 2\r\nPAGE-WIDTH 320\r\nCONTRAST 2\r\nGAP-SENSE\r\n") {
		t.Fatalf("cpcl preamble = %q", out)
	}
	if !strings.HasSuffix(out, "FORM\r\nPRINT\r\n") {
		t.Fatalf("cpcl commit = %q", out)
	}

	tmpl.Language = label.LanguageESCPOS
	esc := e.Encode(tmpl, []label.Element{textElement(0, 0, 0, "item.itemId", "")}, itemContext())
	if !bytes.HasPrefix(esc, []byte{0x1B, '@'}) {
		t.Fatalf("escpos does not start with init: % x", esc)
	}
	if bytes.Count(esc, []byte{0x1B, '@'}) != 1 {
		t.Fatalf("escpos init repeated: % x", esc)
	}
	if n := bytes.Count(esc, []byte{0x1D, 'V', 66, 0}); n != 2 {
		t.Fatalf("escpos cuts = %d, want one per copy", n)
	}
	if bytes.Contains(esc, []byte("SIZE")) {
		t.Fatal("escpos must not carry a medium preamble")
	}
}

func TestEncodeLandscapeDirection(t *testing.T) {
	e, _ := newTestEncoder()
	tmpl := labelTemplate(label.LanguageTSPL)
	tmpl.Orientation = label.Landscape
	out := string(e.Encode(tmpl, nil, label.DataContext{}))
	if !strings.Contains(out, "DIRECTION 1,0\r\n") {
		t.Fatalf("landscape direction missing: %q", out)
	}
}

func TestEncodeText(t *testing.T) {
	e, _ := newTestEncoder()
	out := string(e.EncodeText(labelTemplate(label.LanguageTSPL), "line one\nline two"))
	if !strings.Contains(out, `TEXT 16,16,"2",0,1,1,"line one"`) || !strings.Contains(out, `TEXT 16,48,"2",0,1,1,"line two"`) {
		t.Fatalf("text payload = %q", out)
	}
	out = string(e.EncodeText(labelTemplate(label.LanguageTSPL), "a\n\nb"))
	if strings.Count(out, "TEXT ") != 3 || !strings.Contains(out, `," "`) {
		t.Fatalf("blank line should print a placeholder: %q", out)
	}
}
