package imaging

import (
	"image/color"
	"testing"
)

func TestEncodeJPEG_RoundTrip(t *testing.T) {
	img := createPatternImage(64, 48)

	for _, q := range []int{95, 0, 150} {
		s, err := EncodeJPEG(img, q)
		if err != nil {
			t.Fatalf("quality %d: EncodeJPEG failed: %v", q, err)
		}
		dec, err := DecodeBase64(s)
		if err != nil {
			t.Fatalf("quality %d: DecodeBase64 failed: %v", q, err)
		}
		if dec.Bounds().Dx() != 64 || dec.Bounds().Dy() != 48 {
			t.Errorf("quality %d: got %v, want 64x48", q, dec.Bounds())
		}
	}
}

func TestEncodePNG_Lossless(t *testing.T) {
	img := createInMemoryImage(8, 8, color.RGBA{10, 20, 30, 255})

	s, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	dec, err := DecodeBase64(s)
	if err != nil {
		t.Fatalf("DecodeBase64 failed: %v", err)
	}
	r, g, b, _ := dec.At(3, 3).RGBA()
	if r>>8 != 10 || g>>8 != 20 || b>>8 != 30 {
		t.Errorf("pixel: got (%d,%d,%d), want (10,20,30)", r>>8, g>>8, b>>8)
	}
}

func TestDecodeBase64_Invalid(t *testing.T) {
	if _, err := DecodeBase64("!!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
	if _, err := DecodeBase64("bm90IGFuIGltYWdl"); err == nil {
		t.Error("expected error for non-image payload")
	}
}
