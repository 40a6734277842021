package landmark

import (
	"errors"

	"github.com/dudu/faceblend/internal/geom"
)

// ErrInvalidLandmarkSet is returned when a landmark set does not have the
// point count of the configured scheme.
var ErrInvalidLandmarkSet = errors.New("invalid landmark set")

// Set is an ordered list of landmark points for one face, as produced by an
// external landmark detector.
type Set []geom.Point

// Clone returns a copy of the set
func (s Set) Clone() Set {
	out := make(Set, len(s))
	copy(out, s)
	return out
}

// BoundingRect returns the integer bounding box of all points
func (s Set) BoundingRect() geom.Rect {
	return geom.BoundingRect(s)
}

// ContourSize is the number of points in a face contour
const ContourSize = 9

// Geometry is the reduced face description the compositor works with.
type Geometry struct {
	// Contour is the facial boundary polygon: jaw line plus two synthetic
	// forehead corners.
	Contour [ContourSize]geom.Point
	// Keypoints drive the affine solve: chin, left eye, right eye.
	Keypoints [3]geom.Point
	// Feather is the erosion/blur kernel size, |contour[0]-contour[6]| / 8.
	Feather float64
}

// FeatherKernel returns Feather as an integer kernel size of at least 1
func (g Geometry) FeatherKernel() int {
	return max(1, int(g.Feather))
}

// BoundingRect returns the integer bounding box of the contour
func (g Geometry) BoundingRect() geom.Rect {
	return geom.BoundingRect(g.Contour[:])
}

// Shift moves contour and keypoints by (dx, dy)
func (g *Geometry) Shift(dx, dy float64) {
	geom.Shift(g.Contour[:], dx, dy)
	geom.Shift(g.Keypoints[:], dx, dy)
}

// ToLocal moves contour and keypoints into roi coordinates
func (g *Geometry) ToLocal(roi geom.Rect) {
	geom.PointsToLocal(g.Contour[:], roi)
	geom.PointsToLocal(g.Keypoints[:], roi)
}

// Frame holds the landmark sets detected on one video frame or image.
type Frame struct {
	Frame int   `json:"frame" msgpack:"frame"`
	Faces []Set `json:"faces" msgpack:"faces"`
}
