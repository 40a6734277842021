package swapper

import (
	"errors"
	"fmt"

	"github.com/dudu/faceblend/internal/geom"
	"github.com/dudu/faceblend/internal/imgbuf"
)

// ErrFaceTooLarge is returned when a source face does not fit inside the
// destination frame.
var ErrFaceTooLarge = errors.New("source face larger than destination frame")

// ExtractFace zeroes face and copies the frame pixels under mask into it.
func ExtractFace(face, frame, mask *imgbuf.Buffer) {
	face.Zero()
	frame.CopyTo(face, mask)
}

// PlaceSourceRect returns the shift that moves src onto dst's origin inside a
// frame of the given size. When that would push src past the right or bottom
// edge it is moved flush against that edge instead.
func PlaceSourceRect(src, dst geom.Rect, frameW, frameH int) (dx, dy int, err error) {
	if src.Width > frameW || src.Height > frameH {
		return 0, 0, fmt.Errorf("%w: %dx%d face in %dx%d frame",
			ErrFaceTooLarge, src.Width, src.Height, frameW, frameH)
	}
	if dst.X+src.Width <= frameW {
		dx = dst.X - src.X
	} else {
		dx = frameW - src.Width - src.X
	}
	if dst.Y+src.Height <= frameH {
		dy = dst.Y - src.Y
	} else {
		dy = frameH - src.Height - src.Y
	}
	return dx, dy, nil
}

// span is one axis of a rect: start and length, plus the extent of the frame
// it was clipped against.
type span struct {
	pos, size, limit int
}

// reconcile trims a and b to the same size. Clipping against a frame edge is
// what makes them differ, so the longer span loses the part that lies beyond
// the edge the shorter one touches.
func reconcile(a, b span) (span, span) {
	if a.size == b.size {
		return a, b
	}
	trimFront := func(long *span, by int) {
		long.pos += by
		long.size -= by
	}
	if a.pos == 0 || b.pos == 0 {
		if a.size < b.size {
			trimFront(&b, b.size-a.size)
		} else {
			trimFront(&a, a.size-b.size)
		}
	}
	if a.size != b.size && (a.pos+a.size == a.limit || b.pos+b.size == b.limit) {
		if a.size < b.size {
			b.size = a.size
		} else {
			a.size = b.size
		}
	}
	if a.size != b.size {
		n := min(a.size, b.size)
		a.size, b.size = n, n
	}
	return a, b
}

// ReconcileRects trims two rects that describe the same face in two frames to
// a common size. src lives in a srcW x srcH frame and dst in a dstW x dstH
// frame; both have already been clipped to their frames.
func ReconcileRects(src geom.Rect, srcW, srcH int, dst geom.Rect, dstW, dstH int) (geom.Rect, geom.Rect) {
	sx, dx := reconcile(span{src.X, src.Width, srcW}, span{dst.X, dst.Width, dstW})
	sy, dy := reconcile(span{src.Y, src.Height, srcH}, span{dst.Y, dst.Height, dstH})
	return geom.Rect{X: sx.pos, Y: sy.pos, Width: sx.size, Height: sy.size},
		geom.Rect{X: dx.pos, Y: dy.pos, Width: dx.size, Height: dy.size}
}

// ExtractFaceFrom copies a face that lives in a foreign source frame into
// face, which shares coordinates with mask. srcRect is the face rect in the
// source frame and dstRect the same face, shifted, in face coordinates. Both
// are clipped and reconciled before copying.
func ExtractFaceFrom(face, mask, source *imgbuf.Buffer, srcRect, dstRect geom.Rect) {
	face.Zero()
	srcRect = geom.Intersect(srcRect, source.Bounds())
	dstRect = geom.Intersect(dstRect, face.Bounds())
	srcRect, dstRect = ReconcileRects(srcRect, source.Width(), source.Height(),
		dstRect, face.Width(), face.Height())
	if srcRect.Empty() || dstRect.Empty() {
		return
	}
	source.Region(srcRect).CopyTo(face.Region(dstRect), mask.Region(dstRect))
}
