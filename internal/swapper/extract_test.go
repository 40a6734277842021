package swapper

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/dudu/faceblend/internal/geom"
	"github.com/dudu/faceblend/internal/imgbuf"
)

func TestPlaceSourceRect(t *testing.T) {
	tests := []struct {
		name           string
		src, dst       geom.Rect
		frameW, frameH int
		dx, dy         int
	}{
		{"fits", geom.R(10, 10, 41, 41), geom.R(100, 10, 41, 41), 160, 70, 90, 0},
		{"flush right", geom.R(0, 0, 50, 50), geom.R(80, 0, 30, 30), 100, 100, 50, 0},
		{"flush bottom", geom.R(5, 5, 20, 20), geom.R(0, 90, 10, 10), 100, 100, -5, 75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dx, dy, err := PlaceSourceRect(tt.src, tt.dst, tt.frameW, tt.frameH)
			if err != nil {
				t.Fatalf("PlaceSourceRect: %v", err)
			}
			if dx != tt.dx || dy != tt.dy {
				t.Errorf("shift = (%d,%d), want (%d,%d)", dx, dy, tt.dx, tt.dy)
			}
			moved := geom.Translate(tt.src, dx, dy)
			if moved.Right() > tt.frameW || moved.Bottom() > tt.frameH {
				t.Errorf("shifted rect %v leaves the %dx%d frame", moved, tt.frameW, tt.frameH)
			}
		})
	}
}

func TestPlaceSourceRectTooLarge(t *testing.T) {
	_, _, err := PlaceSourceRect(geom.R(0, 0, 500, 500), geom.R(0, 0, 100, 100), 400, 400)
	if !errors.Is(err, ErrFaceTooLarge) {
		t.Errorf("err = %v, want ErrFaceTooLarge", err)
	}
}

func TestReconcileRectsEdges(t *testing.T) {
	tests := []struct {
		name             string
		src              geom.Rect
		srcW, srcH       int
		dst              geom.Rect
		dstW, dstH       int
		wantSrc, wantDst geom.Rect
	}{
		{
			name: "equal",
			src:  geom.R(5, 5, 20, 20), srcW: 100, srcH: 100,
			dst: geom.R(50, 50, 20, 20), dstW: 100, dstH: 100,
			wantSrc: geom.R(5, 5, 20, 20), wantDst: geom.R(50, 50, 20, 20),
		},
		{
			name: "source clipped left",
			src:  geom.R(0, 5, 30, 20), srcW: 100, srcH: 100,
			dst: geom.R(50, 5, 40, 20), dstW: 200, dstH: 200,
			wantSrc: geom.R(0, 5, 30, 20), wantDst: geom.R(60, 5, 30, 20),
		},
		{
			name: "source clipped right",
			src:  geom.R(70, 0, 30, 10), srcW: 100, srcH: 100,
			dst: geom.R(10, 0, 40, 10), dstW: 200, dstH: 200,
			wantSrc: geom.R(70, 0, 30, 10), wantDst: geom.R(10, 0, 30, 10),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, d := ReconcileRects(tt.src, tt.srcW, tt.srcH, tt.dst, tt.dstW, tt.dstH)
			if s != tt.wantSrc || d != tt.wantDst {
				t.Errorf("got %v %v, want %v %v", s, d, tt.wantSrc, tt.wantDst)
			}
		})
	}
}

func TestReconcileRectsProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	randRect := func(w, h int) geom.Rect {
		r := geom.R(rng.Intn(w+40)-20, rng.Intn(h+40)-20, rng.Intn(80), rng.Intn(80))
		return geom.Intersect(r, geom.R(0, 0, w, h))
	}
	for i := 0; i < 2000; i++ {
		srcW, srcH := 20+rng.Intn(100), 20+rng.Intn(100)
		dstW, dstH := 20+rng.Intn(100), 20+rng.Intn(100)
		src, dst := randRect(srcW, srcH), randRect(dstW, dstH)
		s, d := ReconcileRects(src, srcW, srcH, dst, dstW, dstH)
		if s.Width != d.Width || s.Height != d.Height {
			t.Fatalf("case %d: sizes differ %v %v (from %v %v)", i, s, d, src, dst)
		}
		if s.Width < 0 || s.Height < 0 {
			t.Fatalf("case %d: negative size %v", i, s)
		}
		if !geom.R(0, 0, srcW, srcH).Contains(s) && !s.Empty() {
			t.Fatalf("case %d: %v leaves source bounds %dx%d", i, s, srcW, srcH)
		}
		if !geom.R(0, 0, dstW, dstH).Contains(d) && !d.Empty() {
			t.Fatalf("case %d: %v leaves destination bounds %dx%d", i, d, dstW, dstH)
		}
	}
}

func TestExtractFace(t *testing.T) {
	frame := imgbuf.New(4, 4, 3)
	frame.Fill(8)
	mask := imgbuf.New(4, 4, 1)
	mask.Set(1, 2, 0, 1)
	face := imgbuf.New(4, 4, 3)
	face.Fill(99)

	ExtractFace(face, frame, mask)
	if n := face.CountNonZero(0); n != 1 {
		t.Errorf("%d pixels copied, want 1", n)
	}
	if got := face.At(1, 2, 1); got != 8 {
		t.Errorf("masked pixel = %d, want 8", got)
	}
}

func TestExtractFaceFrom(t *testing.T) {
	source := imgbuf.New(20, 20, 3)
	source.Fill(9)
	mask := imgbuf.New(30, 30, 1)
	mask.Fill(255)
	face := imgbuf.New(30, 30, 3)
	face.Fill(1)

	ExtractFaceFrom(face, mask, source, geom.R(0, 0, 10, 10), geom.R(5, 5, 10, 10))
	for y := 0; y < 30; y++ {
		for x := 0; x < 30; x++ {
			inside := x >= 5 && x < 15 && y >= 5 && y < 15
			got := face.At(x, y, 0)
			if inside && got != 9 || !inside && got != 0 {
				t.Fatalf("(%d,%d) = %d, inside = %v", x, y, got, inside)
			}
		}
	}
}
