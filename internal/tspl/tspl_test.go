package tspl

import "testing"

func TestSetupCommands(t *testing.T) {
	got := New().Size(40, 30).Gap(2, 0).Direction(0, 0).Density(20).CLS().String()
	want := "SIZE 40 mm, 30 mm\r\nGAP 2 mm, 0 mm\r\nDIRECTION 0,0\r\nDENSITY 15\r\nCLS\r\n"
	if got != want {
		t.Fatalf("setup = %q, want %q", got, want)
	}
	if got := New().Size(14.5, 40).String(); got != "SIZE 14.5 mm, 40 mm\r\n" {
		t.Fatalf("fractional size = %q", got)
	}
}

func TestText(t *testing.T) {
	tests := []struct {
		name   string
		cmd    *Command
		expect string
	}{
		{
			name:   "default alignment",
			cmd:    New().Text(0, 0, "3", 0, 1, 1, AlignDefault, "TEST001"),
			expect: "TEXT 0,0,\"3\",0,1,1,\"TEST001\"\r\n",
		},
		{
			name:   "centered",
			cmd:    New().Text(8, 16, "2", 90, 1, 1, AlignCenter, "A"),
			expect: "TEXT 8,16,\"2\",90,1,1,2,\"A\"\r\n",
		},
		{
			name:   "quote escaped",
			cmd:    New().Text(0, 0, "1", 0, 1, 1, AlignDefault, `5" ring`),
			expect: "TEXT 0,0,\"1\",0,1,1,\"5\\[\"] ring\"\r\n",
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cmd.String(); got != tc.expect {
				t.Fatalf("Text() = %q, want %q", got, tc.expect)
			}
		})
	}
}

func TestCodesAndPrint(t *testing.T) {
	got := New().
		QRCode(10, 20, "M", 4, 0, "abc").
		Barcode(0, 0, "128", 80, true, 0, 2, 2, "123").
		Bar(0, 5, 100, 2).
		Bitmap(0, 0, 1, 1, []byte{0xFF}).
		Print(0).
		String()
	want := "QRCODE 10,20,M,4,A,0,\"abc\"\r\n" +
		"BARCODE 0,0,\"128\",80,1,0,2,2,\"123\"\r\n" +
		"BAR 0,5,100,2\r\n" +
		"BITMAP 0,0,1,1,1,\xff\r\n" +
		"PRINT 1\r\n"
	if got != want {
		t.Fatalf("commands = %q, want %q", got, want)
	}
}
