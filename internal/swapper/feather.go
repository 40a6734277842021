package swapper

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/dudu/faceblend/internal/geom"
	"github.com/dudu/faceblend/internal/imgbuf"
)

// Featherer softens mask edges: rectangular erosion followed by a box blur of
// the same size. A view is filtered like an OpenCV ROI with a constant zero
// border: pixels of the owning buffer around the view take part, pixels past
// the owner's edges count as zero. Only the view is written.
//
// The zero value is ready to use. Scratch Mats are kept between calls until
// Close.
type Featherer struct {
	ready   bool
	k       int
	kernel  gocv.Mat
	padded  gocv.Mat
	eroded  gocv.Mat
	blurred gocv.Mat
}

func (f *Featherer) init(k int) {
	if !f.ready {
		f.padded = gocv.NewMat()
		f.eroded = gocv.NewMat()
		f.blurred = gocv.NewMat()
		f.ready = true
	}
	if f.k != k {
		if f.k != 0 {
			f.kernel.Close()
		}
		f.kernel = gocv.GetStructuringElement(gocv.MorphRect, image.Pt(k, k))
		f.k = k
	}
}

// Apply feathers the single channel mask in place with a k x k kernel.
// Erosion runs first so the blur cannot spread the mask past the original
// contour.
func (f *Featherer) Apply(mask *imgbuf.Buffer, k int) {
	if k <= 1 || mask.Empty() {
		return
	}
	f.init(k)

	// Surroundings of the view inside its owner, padded with zeros to a k
	// pixel margin on every side.
	owner := mask.Owner()
	view := mask.Extent()
	around := geom.Intersect(geom.Inflate(view, k, k), owner.Bounds())
	top := k - (view.Y - around.Y)
	left := k - (view.X - around.X)
	bottom := k - (around.Bottom() - view.Bottom())
	right := k - (around.Right() - view.Right())

	src := owner.Region(around).Mat()
	defer src.Close()
	gocv.CopyMakeBorder(src, &f.padded, top, bottom, left, right, gocv.BorderConstant, color.RGBA{})
	gocv.Erode(f.padded, &f.eroded, f.kernel)

	// The blur reads the eroded view and the untouched surroundings.
	inner := image.Rect(k, k, k+view.Width, k+view.Height)
	eroded := f.eroded.Region(inner)
	padded := f.padded.Region(inner)
	eroded.CopyTo(&padded)
	eroded.Close()
	padded.Close()

	gocv.Blur(f.padded, &f.blurred, image.Pt(k, k))
	result := f.blurred.Region(inner)
	defer result.Close()
	dst := mask.Mat()
	defer dst.Close()
	result.CopyTo(&dst)
}

// Close releases the scratch Mats
func (f *Featherer) Close() {
	if f.ready {
		f.padded.Close()
		f.eroded.Close()
		f.blurred.Close()
		f.ready = false
	}
	if f.k != 0 {
		f.kernel.Close()
		f.k = 0
	}
}
