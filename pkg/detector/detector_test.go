package detector

import (
	"image"
	"image/color"
	"testing"

	"github.com/SBanditaDas/facesentinel/pkg/verify"
)

func TestNewDlib_NotLoaded(t *testing.T) {
	d := NewDlib()

	if d.IsLoaded() {
		t.Error("fresh detector should not report loaded")
	}

	if _, err := d.Detect([]byte("frame")); err != ErrModelNotLoaded {
		t.Errorf("expected ErrModelNotLoaded, got %v", err)
	}
}

func TestLoadModels_MissingPath(t *testing.T) {
	d := NewDlib()

	if err := d.LoadModels(t.TempDir()); err == nil {
		t.Error("expected error loading models from an empty directory")
	}
	if d.IsLoaded() {
		t.Error("detector should not report loaded after a failed load")
	}
}

func TestClose_Unloaded(t *testing.T) {
	d := NewDlib()

	if err := d.Close(); err != nil {
		t.Errorf("Close on unloaded detector failed: %v", err)
	}
	if d.IsLoaded() {
		t.Error("detector should not report loaded after close")
	}
}

func TestCropRGBA(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 0, A: 255})
		}
	}

	pixels, width, height := cropRGBA(img, image.Rect(5, 5, 15, 15))
	if width != 10 || height != 10 {
		t.Fatalf("expected 10x10 crop, got %dx%d", width, height)
	}
	if len(pixels) != 10*10*4 {
		t.Fatalf("expected %d bytes, got %d", 10*10*4, len(pixels))
	}

	// Top-left pixel of the crop is (5,5) of the source
	if pixels[0] != 50 || pixels[1] != 50 {
		t.Errorf("expected crop to start at source (5,5), got R=%d G=%d", pixels[0], pixels[1])
	}
}

func TestCropRGBA_ClampsToBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))

	pixels, width, height := cropRGBA(img, image.Rect(5, 5, 30, 30))
	if width != 5 || height != 5 {
		t.Errorf("expected crop clamped to 5x5, got %dx%d", width, height)
	}
	if len(pixels) != 5*5*4 {
		t.Errorf("expected %d bytes, got %d", 5*5*4, len(pixels))
	}
}

// The Dlib adapter must keep satisfying the pipeline contract.
var _ verify.Detector = (*Dlib)(nil)
