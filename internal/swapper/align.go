package swapper

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/dudu/faceblend/internal/geom"
	"github.com/dudu/faceblend/internal/imgbuf"
)

// ErrDegenerateGeometry is returned when the affine keypoints of a face are
// collinear or coincident, so no invertible transform exists.
var ErrDegenerateGeometry = errors.New("degenerate face geometry")

// minTriangleArea is twice the smallest keypoint triangle area, in square
// pixels, accepted by the affine solve.
const minTriangleArea = 1e-6

// Affine is a 2x3 matrix mapping (x, y) to
// (m[0][0]*x + m[0][1]*y + m[0][2], m[1][0]*x + m[1][1]*y + m[1][2]).
type Affine [2][3]float64

// Identity returns the identity transform
func Identity() Affine {
	return Affine{{1, 0, 0}, {0, 1, 0}}
}

// Translation returns a pure translation by (dx, dy)
func Translation(dx, dy float64) Affine {
	return Affine{{1, 0, dx}, {0, 1, dy}}
}

// Apply transforms p
func (m Affine) Apply(p geom.Point) geom.Point {
	return geom.Point{
		X: m[0][0]*p.X + m[0][1]*p.Y + m[0][2],
		Y: m[1][0]*p.X + m[1][1]*p.Y + m[1][2],
	}
}

// Det returns the determinant of the linear part
func (m Affine) Det() float64 {
	return m[0][0]*m[1][1] - m[0][1]*m[1][0]
}

// Invert returns the inverse transform
func (m Affine) Invert() (Affine, error) {
	d := m.Det()
	if math.Abs(d) < 1e-12 {
		return Affine{}, fmt.Errorf("%w: singular transform", ErrDegenerateGeometry)
	}
	a, b, c := m[0][0], m[0][1], m[0][2]
	e, f, g := m[1][0], m[1][1], m[1][2]
	return Affine{
		{f / d, -b / d, (b*g - f*c) / d},
		{-e / d, a / d, (e*c - a*g) / d},
	}, nil
}

// triangleArea2 returns twice the signed area of the triangle p
func triangleArea2(p [3]geom.Point) float64 {
	return (p[1].X-p[0].X)*(p[2].Y-p[0].Y) - (p[2].X-p[0].X)*(p[1].Y-p[0].Y)
}

// GetAffineTransform solves the affine map taking the three src points onto
// the three dst points. Both triangles must have non-zero area.
func GetAffineTransform(src, dst [3]geom.Point) (Affine, error) {
	det := triangleArea2(src)
	if math.Abs(det) < minTriangleArea {
		return Affine{}, fmt.Errorf("%w: source keypoints %v are collinear", ErrDegenerateGeometry, src)
	}
	if math.Abs(triangleArea2(dst)) < minTriangleArea {
		return Affine{}, fmt.Errorf("%w: destination keypoints %v are collinear", ErrDegenerateGeometry, dst)
	}

	dx1, dy1 := src[1].X-src[0].X, src[1].Y-src[0].Y
	dx2, dy2 := src[2].X-src[0].X, src[2].Y-src[0].Y

	var m Affine
	for row, coord := range [2]func(geom.Point) float64{
		func(p geom.Point) float64 { return p.X },
		func(p geom.Point) float64 { return p.Y },
	} {
		du1 := coord(dst[1]) - coord(dst[0])
		du2 := coord(dst[2]) - coord(dst[0])
		m[row][0] = (du1*dy2 - du2*dy1) / det
		m[row][1] = (du2*dx1 - du1*dx2) / det
		m[row][2] = coord(dst[0]) - m[row][0]*src[0].X - m[row][1]*src[0].Y
	}
	return m, nil
}

// Mat returns m as a 2x3 CV_64F Mat. The caller must close it.
func (m Affine) Mat() gocv.Mat {
	out := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	for r := 0; r < 2; r++ {
		for c := 0; c < 3; c++ {
			out.SetDoubleAt(r, c, m[r][c])
		}
	}
	return out
}

// WarpAffine maps src into dst through m using nearest-neighbour sampling.
// Destination pixels whose pre-image falls outside src are set to zero. Both
// buffers must have the same channel count; dst defines the output extent.
func WarpAffine(dst, src *imgbuf.Buffer, m Affine) error {
	if dst.Channels() != src.Channels() {
		return fmt.Errorf("warp: channel mismatch %d != %d", dst.Channels(), src.Channels())
	}
	if _, err := m.Invert(); err != nil {
		return err
	}
	if dst.Empty() {
		return nil
	}
	if src.Empty() {
		dst.Zero()
		return nil
	}

	trans := m.Mat()
	defer trans.Close()
	in := src.Mat()
	defer in.Close()
	out := dst.Mat()
	defer out.Close()

	gocv.WarpAffineWithParams(in, &out, trans, image.Pt(dst.Width(), dst.Height()),
		gocv.InterpolationNearestNeighbor, gocv.BorderConstant, color.RGBA{})
	return nil
}
