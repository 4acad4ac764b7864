package detection

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// LetterboxGeometry describes where a source image lands on a square canvas.
type LetterboxGeometry struct {
	Canvas  int             // Canvas side in pixels
	Content image.Rectangle // Region of the canvas covered by the scaled image
	Scale   float64         // Source-to-canvas scale factor
}

// ComputeLetterbox scales (srcW, srcH) to fit a size x size canvas while
// keeping the aspect ratio, and centers it.
func ComputeLetterbox(srcW, srcH, size int) (LetterboxGeometry, error) {
	if srcW <= 0 || srcH <= 0 || size <= 0 {
		return LetterboxGeometry{}, fmt.Errorf("letterbox: invalid sizes %dx%d -> %d", srcW, srcH, size)
	}

	scale := min(float64(size)/float64(srcW), float64(size)/float64(srcH))
	w := int(float64(srcW) * scale)
	h := int(float64(srcH) * scale)
	offX := (size - w) / 2
	offY := (size - h) / 2

	return LetterboxGeometry{
		Canvas:  size,
		Content: image.Rect(offX, offY, offX+w, offY+h),
		Scale:   scale,
	}, nil
}

// Letterbox resizes img onto a white size x size canvas. The caller owns the
// returned Mat and must Close it.
func Letterbox(img gocv.Mat, size int) (gocv.Mat, LetterboxGeometry, error) {
	geo, err := ComputeLetterbox(img.Cols(), img.Rows(), size)
	if err != nil {
		return gocv.NewMat(), LetterboxGeometry{}, err
	}

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(img, &resized, geo.Content.Size(), 0, 0, gocv.InterpolationLinear)

	// White background gives fewer false positives than black on this model.
	canvas := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), size, size, img.Type())
	roi := canvas.Region(geo.Content)
	resized.CopyTo(&roi)
	roi.Close()

	return canvas, geo, nil
}
