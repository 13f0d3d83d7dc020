package classification

import (
	"encoding/base64"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

func TestDecodeImageFormats(t *testing.T) {
	src := solidImage(40, 30, color.NRGBA{R: 200, G: 10, B: 30, A: 255})

	for _, format := range []imaging.Format{imaging.PNG, imaging.JPEG, imaging.GIF, imaging.BMP} {
		img, err := DecodeImage(encodeBase64(t, src, format))
		if err != nil {
			t.Fatalf("format %v: unexpected error: %v", format, err)
		}
		if got := img.Bounds().Size(); got.X != 40 || got.Y != 30 {
			t.Errorf("format %v: size = %v, want 40x30", format, got)
		}
	}
}

func TestDecodeImageDataURIMatchesBare(t *testing.T) {
	bare := encodeBase64(t, gradientImage(64, 48), imaging.PNG)

	a, err := DecodeImage(bare)
	if err != nil {
		t.Fatalf("bare payload: %v", err)
	}
	b, err := DecodeImage("data:image/png;base64," + bare)
	if err != nil {
		t.Fatalf("data URI payload: %v", err)
	}

	na, nb := imaging.Clone(a), imaging.Clone(b)
	if na.Bounds() != nb.Bounds() {
		t.Fatalf("bounds differ: %v vs %v", na.Bounds(), nb.Bounds())
	}
	if string(na.Pix) != string(nb.Pix) {
		t.Error("pixels differ between data URI and bare payloads")
	}
}

func TestDecodeImageIgnoresLineBreaks(t *testing.T) {
	bare := encodeBase64(t, solidImage(8, 8, color.NRGBA{A: 255}), imaging.PNG)
	wrapped := bare[:10] + "\n" + bare[10:20] + "\r\n" + bare[20:]

	if _, err := DecodeImage(wrapped); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDecodeImageErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"malformed base64", "not-valid-base64!!"},
		{"empty", ""},
		{"not an image", base64.StdEncoding.EncodeToString([]byte("hello, world"))},
		{"data URI with garbage", "data:image/jpeg;base64,@@@"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeImage(tt.payload)
			if err == nil {
				t.Fatal("expected an error")
			}
			if KindOf(err) != KindDecode {
				t.Errorf("kind = %v, want %v", KindOf(err), KindDecode)
			}
			if err.Error() == "" {
				t.Error("error message is empty")
			}
		})
	}
}
