// Package overlay draws landmark debug marks onto frame buffers.
package overlay

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"

	"github.com/dudu/faceblend/internal/geom"
	"github.com/dudu/faceblend/internal/imgbuf"
)

// Colours are written in buffer channel order: R lands in channel 0, G in
// channel 1 and B in channel 2, whatever the frame's own layout is.
var (
	ContourColor  = color.RGBA{R: 255, A: 255}
	KeypointColor = color.RGBA{G: 255, A: 255}
	RectColor     = color.RGBA{R: 255, A: 255}
)

// PointRadius is the radius of a landmark dot in pixels
const PointRadius = 2.0

// Marks is one batch of debug drawing, in the coordinates of the target
// buffer.
type Marks struct {
	Contour   []geom.Point
	Keypoints []geom.Point
	Rects     []geom.Rect
}

// Add appends the marks of o
func (m *Marks) Add(o Marks) {
	m.Contour = append(m.Contour, o.Contour...)
	m.Keypoints = append(m.Keypoints, o.Keypoints...)
	m.Rects = append(m.Rects, o.Rects...)
}

// Empty reports whether there is nothing to draw
func (m Marks) Empty() bool {
	return len(m.Contour) == 0 && len(m.Keypoints) == 0 && len(m.Rects) == 0
}

// Draw renders m anti-aliased and composites it over buf. Only the colour
// channels are touched; a single channel buffer receives the red component.
func Draw(buf *imgbuf.Buffer, m Marks) {
	if buf.Empty() || m.Empty() {
		return
	}
	dc := gg.NewContext(buf.Width(), buf.Height())

	for _, r := range m.Rects {
		if r.Empty() {
			continue
		}
		dc.DrawRectangle(float64(r.X)+0.5, float64(r.Y)+0.5, float64(r.Width-1), float64(r.Height-1))
	}
	dc.SetStrokeStyle(gg.NewSolidPattern(RectColor))
	dc.SetLineWidth(1)
	dc.Stroke()

	drawDots(dc, m.Contour, ContourColor)
	drawDots(dc, m.Keypoints, KeypointColor)

	composite(buf, dc.Image())
}

func drawDots(dc *gg.Context, pts []geom.Point, c color.RGBA) {
	if len(pts) == 0 {
		return
	}
	for _, p := range pts {
		dc.DrawCircle(p.X, p.Y, PointRadius)
	}
	dc.SetFillStyle(gg.NewSolidPattern(c))
	dc.Fill()
}

// composite blends the premultiplied layer over buf
func composite(buf *imgbuf.Buffer, layer image.Image) {
	rgba, ok := layer.(*image.RGBA)
	if !ok {
		b := layer.Bounds()
		rgba = image.NewRGBA(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				rgba.Set(x, y, layer.At(x, y))
			}
		}
	}
	n := min(buf.Channels(), 3)
	for y := 0; y < buf.Height(); y++ {
		src := rgba.Pix[y*rgba.Stride:]
		for x := 0; x < buf.Width(); x++ {
			s := src[x*4 : x*4+4]
			a := uint32(s[3])
			if a == 0 {
				continue
			}
			px := buf.Pixel(x, y)
			for c := 0; c < n; c++ {
				px[c] = byte(uint32(s[c]) + uint32(px[c])*(255-a)/255)
			}
		}
	}
}
