package geom

import "image"

// Rect is an integer axis-aligned rectangle. It is used both as a face
// bounding box and as a region of interest inside a buffer.
type Rect struct {
	X, Y          int
	Width, Height int
}

// R is shorthand for Rect{X: x, Y: y, Width: w, Height: h}.
func R(x, y, w, h int) Rect {
	return Rect{X: x, Y: y, Width: w, Height: h}
}

// Right returns the exclusive right edge
func (r Rect) Right() int {
	return r.X + r.Width
}

// Bottom returns the exclusive bottom edge
func (r Rect) Bottom() int {
	return r.Y + r.Height
}

// Empty reports whether the rect covers no pixels
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Area returns the pixel count, zero for empty rects
func (r Rect) Area() int {
	if r.Empty() {
		return 0
	}
	return r.Width * r.Height
}

// Origin returns the top-left corner
func (r Rect) Origin() Point {
	return Point{X: float64(r.X), Y: float64(r.Y)}
}

// Contains reports whether o lies entirely inside r
func (r Rect) Contains(o Rect) bool {
	return o.X >= r.X && o.Y >= r.Y && o.Right() <= r.Right() && o.Bottom() <= r.Bottom()
}

// ToLocal expresses r in the coordinate frame of roi (roi origin becomes 0,0)
func (r Rect) ToLocal(roi Rect) Rect {
	return Translate(r, -roi.X, -roi.Y)
}

// ToGlobal undoes ToLocal
func (r Rect) ToGlobal(roi Rect) Rect {
	return Translate(r, roi.X, roi.Y)
}

// Image converts to an image.Rectangle
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.Right(), r.Bottom())
}

// FromImage converts an image.Rectangle
func FromImage(r image.Rectangle) Rect {
	return Rect{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Translate shifts r by (dx, dy)
func Translate(r Rect, dx, dy int) Rect {
	r.X += dx
	r.Y += dy
	return r
}

// Inflate grows r by x on the left and right and by y on the top and bottom.
func Inflate(r Rect, x, y int) Rect {
	r.X -= x
	r.Y -= y
	r.Width += 2 * x
	r.Height += 2 * y
	return r
}

// Intersect returns the overlap of a and b. Disjoint rects give the zero Rect;
// rects that only touch give a zero-width or zero-height rect on the shared edge.
func Intersect(a, b Rect) Rect {
	x1 := max(a.X, b.X)
	x2 := min(a.Right(), b.Right())
	y1 := max(a.Y, b.Y)
	y2 := min(a.Bottom(), b.Bottom())

	if x2 >= x1 && y2 >= y1 {
		return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
	}
	return Rect{}
}

// Union returns the smallest rect containing both a and b
func Union(a, b Rect) Rect {
	x1 := min(a.X, b.X)
	x2 := max(a.Right(), b.Right())
	y1 := min(a.Y, b.Y)
	y2 := max(a.Bottom(), b.Bottom())

	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// BoundingRect returns the integer bounding box of pts. Coordinates are
// truncated toward zero first and the extent is inclusive, so a single point
// yields a 1x1 rect.
func BoundingRect(pts []Point) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	minX, minY := int(pts[0].X), int(pts[0].Y)
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		x, y := int(p.X), int(p.Y)
		minX = min(minX, x)
		maxX = max(maxX, x)
		minY = min(minY, y)
		maxY = max(maxY, y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX + 1, Height: maxY - minY + 1}
}
