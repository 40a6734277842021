package geom

import (
	"image"
	"math"
)

// Point represents a 2D point in pixel coordinates
type Point struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p+q
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Mid returns the midpoint of p and q
func (p Point) Mid(q Point) Point {
	return Point{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2}
}

// Norm returns the Euclidean length of p as a vector
func (p Point) Norm() float64 {
	return math.Hypot(p.X, p.Y)
}

// Dist returns the distance between p and q
func (p Point) Dist(q Point) float64 {
	return p.Sub(q).Norm()
}

// Image truncates p to an integer image.Point
func (p Point) Image() image.Point {
	return image.Pt(int(p.X), int(p.Y))
}

// ToLocal shifts p into the coordinate frame of roi
func (p Point) ToLocal(roi Rect) Point {
	return Point{X: p.X - float64(roi.X), Y: p.Y - float64(roi.Y)}
}

// ToGlobal undoes ToLocal
func (p Point) ToGlobal(roi Rect) Point {
	return Point{X: p.X + float64(roi.X), Y: p.Y + float64(roi.Y)}
}

// PointsToLocal shifts every point of pts into roi coordinates, in place.
func PointsToLocal(pts []Point, roi Rect) {
	for i := range pts {
		pts[i] = pts[i].ToLocal(roi)
	}
}

// Shift moves every point of pts by (dx, dy), in place.
func Shift(pts []Point, dx, dy float64) {
	for i := range pts {
		pts[i].X += dx
		pts[i].Y += dy
	}
}
