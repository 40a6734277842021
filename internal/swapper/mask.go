package swapper

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/dudu/faceblend/internal/geom"
	"github.com/dudu/faceblend/internal/imgbuf"
)

// MaskValue converts a blend alpha to a mask intensity. Alpha is clamped to
// [0, 1] and the result never exceeds 255*alpha.
func MaskValue(alpha float64) byte {
	if math.IsNaN(alpha) || alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	return byte(255 * alpha)
}

// FillConvexPoly fills the convex polygon pts (truncated to integer pixels,
// edges included) with value.
func FillConvexPoly(mask *imgbuf.Buffer, pts []geom.Point, value byte) {
	if len(pts) == 0 || mask.Empty() {
		return
	}
	poly := make([]image.Point, len(pts))
	for i, p := range pts {
		poly[i] = image.Pt(int(p.X), int(p.Y))
	}
	ptsVec := gocv.NewPointsVectorFromPoints([][]image.Point{poly})
	defer ptsVec.Close()

	m := mask.Mat()
	defer m.Close()
	gocv.FillPoly(&m, ptsVec, color.RGBA{R: value, G: value, B: value, A: value})
}

// BuildMask zeroes mask and fills the face contour at 255*clamp(alpha).
func BuildMask(mask *imgbuf.Buffer, contour []geom.Point, alpha float64) {
	mask.Zero()
	FillConvexPoly(mask, contour, MaskValue(alpha))
}

// overlap returns Mat headers over the common top-left extent of the
// buffers. The caller must close them.
func overlap(bufs ...*imgbuf.Buffer) []gocv.Mat {
	r := bufs[0].Bounds()
	for _, b := range bufs[1:] {
		r = geom.Intersect(r, b.Bounds())
	}
	mats := make([]gocv.Mat, len(bufs))
	for i, b := range bufs {
		mats[i] = b.Region(r).Mat()
	}
	return mats
}

func closeAll(mats []gocv.Mat) {
	for i := range mats {
		mats[i].Close()
	}
}

// RefineMask writes own AND warped into dst. The result is never larger than
// either input, so a pasted face stays inside both contours.
func RefineMask(dst, own, warped *imgbuf.Buffer) {
	if dst.Empty() || own.Empty() || warped.Empty() {
		return
	}
	m := overlap(dst, own, warped)
	defer closeAll(m)
	gocv.BitwiseAnd(m[1], m[2], &m[0])
}

// MergeMax folds src into dst keeping the larger weight per pixel
func MergeMax(dst, src *imgbuf.Buffer) {
	if dst.Empty() || src.Empty() {
		return
	}
	m := overlap(dst, src)
	defer closeAll(m)
	gocv.Max(m[0], m[1], &m[0])
}

// DrawBorder sets a 1px frame inset by one pixel from the edges of mask to
// 255, so the seamless clone region spans the whole ROI and the result is not
// shifted.
func DrawBorder(mask *imgbuf.Buffer) {
	w, h := mask.Width(), mask.Height()
	if w < 2 || h < 2 {
		return
	}
	for _, r := range []geom.Rect{
		geom.R(1, 1, w-1, 1),
		geom.R(1, h-1, w-1, 1),
		geom.R(1, 1, 1, h-1),
		geom.R(w-1, 1, 1, h-1),
	} {
		mask.Region(r).Fill(255)
	}
}
