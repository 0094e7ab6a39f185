// Package detector adapts dlib (via go-face) to the pipeline's detector
// contract: per frame it reports the 68-point landmark set, the face
// bounding box, and the RGBA crop of the face region.
package detector

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"sync"

	face "github.com/Kagami/go-face"

	"github.com/SBanditaDas/facesentinel/pkg/landmark"
	"github.com/SBanditaDas/facesentinel/pkg/logging"
	"github.com/SBanditaDas/facesentinel/pkg/verify"
)

// ErrModelNotLoaded is returned when Detect is called before LoadModels.
var ErrModelNotLoaded = errors.New("detector models not loaded")

// ErrMultipleFaces is returned when a frame holds more than one face.
var ErrMultipleFaces = errors.New("multiple faces detected")

// Dlib implements verify.Detector using dlib via go-face. The model path
// must contain a 68-point shape predictor alongside the standard dlib
// detection models; the pipeline's landmark indexing follows that
// predictor's convention.
type Dlib struct {
	rec       *face.Recognizer
	modelPath string
	loaded    bool
	mu        sync.RWMutex
}

// NewDlib creates an unloaded detector.
func NewDlib() *Dlib {
	return &Dlib{}
}

// LoadModels loads the dlib models from the specified path.
func (d *Dlib) LoadModels(modelPath string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.loaded {
		return nil
	}

	logging.Infof("Loading face detection models from: %s", modelPath)

	rec, err := face.NewRecognizer(modelPath)
	if err != nil {
		return fmt.Errorf("failed to load models: %w", err)
	}

	d.rec = rec
	d.modelPath = modelPath
	d.loaded = true

	logging.Info("Face detection models loaded successfully")
	return nil
}

// IsLoaded returns true if models are loaded.
func (d *Dlib) IsLoaded() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loaded
}

// Close releases the detector resources.
func (d *Dlib) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.rec != nil {
		d.rec.Close()
		d.rec = nil
	}
	d.loaded = false
	return nil
}

// Detect finds the single face in an encoded (JPEG/PNG) frame and returns
// its observation. verify.ErrNoFaceDetected signals a face-free frame;
// more than one face is an error.
func (d *Dlib) Detect(frame []byte) (*verify.Observation, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.loaded {
		return nil, ErrModelNotLoaded
	}

	faces, err := d.rec.Recognize(frame)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}
	if len(faces) == 0 {
		return nil, verify.ErrNoFaceDetected
	}
	if len(faces) > 1 {
		return nil, ErrMultipleFaces
	}

	f := faces[0]
	set := make(landmark.Set, 0, len(f.Shapes))
	for _, p := range f.Shapes {
		set = append(set, landmark.Point{X: float64(p.X), Y: float64(p.Y)})
	}
	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("shape predictor returned %d points: %w", len(set), err)
	}

	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	pixels, width, height := cropRGBA(img, f.Rectangle)

	logging.Debugf("Detected face at %v with %d landmarks", f.Rectangle, len(set))
	return &verify.Observation{
		Landmarks: set,
		Box: landmark.BoundingBox{
			X:      float64(f.Rectangle.Min.X),
			Y:      float64(f.Rectangle.Min.Y),
			Width:  float64(f.Rectangle.Dx()),
			Height: float64(f.Rectangle.Dy()),
		},
		Pixels: pixels,
		Width:  width,
		Height: height,
	}, nil
}

// cropRGBA extracts the rect region of img as a tightly packed RGBA buffer.
func cropRGBA(img image.Image, rect image.Rectangle) ([]byte, int, int) {
	rect = rect.Intersect(img.Bounds())
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(out, out.Bounds(), img, rect.Min, draw.Src)
	return out.Pix, rect.Dx(), rect.Dy()
}
