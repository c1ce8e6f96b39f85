package escpos

import (
	"bytes"
	"testing"
)

func TestTextFormatting(t *testing.T) {
	got := New().Init().Align(AlignCenter).Bold(true).CharSize(2, 3).Text("Hi").Bytes()
	want := []byte{0x1B, '@', 0x1B, 'a', 1, 0x1B, 'E', 1, 0x1D, '!', 0x12, 'H', 'i', 0x0A}
	if !bytes.Equal(got, want) {
		t.Fatalf("Bytes() = % x, want % x", got, want)
	}
}

func TestFeedDotsSplits(t *testing.T) {
	got := New().FeedDots(300).Bytes()
	want := []byte{0x1B, 'J', 255, 0x1B, 'J', 45}
	if !bytes.Equal(got, want) {
		t.Fatalf("FeedDots(300) = % x, want % x", got, want)
	}
	if got := New().FeedDots(0).Bytes(); len(got) != 0 {
		t.Fatalf("FeedDots(0) = % x, want empty", got)
	}
}

func TestBarcode(t *testing.T) {
	got := New().Barcode(BarcodeCode128, 80, 2, true, "AB").Bytes()
	want := []byte{
		0x1D, 'h', 80,
		0x1D, 'w', 2,
		0x1D, 'H', 2,
		0x1D, 'k', 73, 4, '{', 'B', 'A', 'B',
		0x0A,
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("Barcode() = % x, want % x", got, want)
	}
}

func TestQRCode(t *testing.T) {
	got := New().QRCode(4, 'M', "hi").Bytes()
	want := []byte{
		0x1D, '(', 'k', 4, 0, 0x31, 0x41, 0x32, 0x00,
		0x1D, '(', 'k', 3, 0, 0x31, 0x43, 4,
		0x1D, '(', 'k', 3, 0, 0x31, 0x45, 49,
		0x1D, '(', 'k', 5, 0, 0x31, 0x50, 0x30, 'h', 'i',
		0x1D, '(', 'k', 3, 0, 0x31, 0x51, 0x30,
		0x0A,
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("QRCode() = % x, want % x", got, want)
	}
}

func TestRasterAndCut(t *testing.T) {
	got := New().Raster(2, 1, []byte{0xF0, 0x0F}).Feed(3).Cut().Bytes()
	want := []byte{0x1D, 'v', '0', 0, 2, 0, 1, 0, 0xF0, 0x0F, 0x1B, 'd', 3, 0x1D, 'V', 66, 0}
	if !bytes.Equal(got, want) {
		t.Fatalf("Bytes() = % x, want % x", got, want)
	}
}
