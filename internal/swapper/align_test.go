package swapper

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/dudu/faceblend/internal/geom"
	"github.com/dudu/faceblend/internal/imgbuf"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestGetAffineTransformScaleTranslate(t *testing.T) {
	src := [3]geom.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}}
	dst := [3]geom.Point{{X: 5, Y: 7}, {X: 25, Y: 7}, {X: 5, Y: 27}}

	m, err := GetAffineTransform(src, dst)
	if err != nil {
		t.Fatalf("GetAffineTransform: %v", err)
	}
	want := Affine{{2, 0, 5}, {0, 2, 7}}
	for r := 0; r < 2; r++ {
		for c := 0; c < 3; c++ {
			if !near(m[r][c], want[r][c]) {
				t.Fatalf("m = %v, want %v", m, want)
			}
		}
	}
}

func TestGetAffineTransformMapsKeypoints(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		var src, dst [3]geom.Point
		for j := range src {
			src[j] = geom.Pt(rng.Float64()*500, rng.Float64()*500)
			dst[j] = geom.Pt(rng.Float64()*500, rng.Float64()*500)
		}
		m, err := GetAffineTransform(src, dst)
		if err != nil {
			if errors.Is(err, ErrDegenerateGeometry) {
				continue
			}
			t.Fatalf("unexpected error: %v", err)
		}
		for j := range src {
			if got := m.Apply(src[j]); got.Dist(dst[j]) > 1e-6 {
				t.Fatalf("case %d: m(%v) = %v, want %v", i, src[j], got, dst[j])
			}
		}
		inv, err := m.Invert()
		if err != nil {
			t.Fatalf("case %d: Invert: %v", i, err)
		}
		for j := range dst {
			if got := inv.Apply(dst[j]); got.Dist(src[j]) > 1e-6 {
				t.Fatalf("case %d: inverse(%v) = %v, want %v", i, dst[j], got, src[j])
			}
		}
	}
}

func TestGetAffineTransformDegenerate(t *testing.T) {
	ok := [3]geom.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}}
	tests := []struct {
		name     string
		src, dst [3]geom.Point
	}{
		{"collinear source", [3]geom.Point{{X: 0, Y: 0}, {X: 5, Y: 5}, {X: 10, Y: 10}}, ok},
		{"coincident source", [3]geom.Point{{X: 3, Y: 3}, {X: 3, Y: 3}, {X: 3, Y: 3}}, ok},
		{"collinear destination", ok, [3]geom.Point{{X: 0, Y: 1}, {X: 1, Y: 1}, {X: 2, Y: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GetAffineTransform(tt.src, tt.dst)
			if !errors.Is(err, ErrDegenerateGeometry) {
				t.Errorf("err = %v, want ErrDegenerateGeometry", err)
			}
		})
	}
}

func TestInvertSingular(t *testing.T) {
	_, err := Affine{{1, 2, 0}, {2, 4, 0}}.Invert()
	if !errors.Is(err, ErrDegenerateGeometry) {
		t.Errorf("err = %v, want ErrDegenerateGeometry", err)
	}
}

func TestWarpAffineTranslation(t *testing.T) {
	src := imgbuf.New(10, 10, 3)
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			src.Set(x, y, 0, byte(x))
			src.Set(x, y, 1, byte(y))
			src.Set(x, y, 2, 200)
		}
	}
	dst := imgbuf.New(10, 10, 3)
	dst.Fill(77)

	if err := WarpAffine(dst, src, Translation(3, 2)); err != nil {
		t.Fatalf("WarpAffine: %v", err)
	}
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			got := dst.Pixel(x, y)
			if x < 3 || y < 2 {
				if got[0] != 0 || got[1] != 0 || got[2] != 0 {
					t.Fatalf("(%d,%d) = %v, want zero border", x, y, got)
				}
				continue
			}
			if got[0] != byte(x-3) || got[1] != byte(y-2) || got[2] != 200 {
				t.Fatalf("(%d,%d) = %v, want source (%d,%d)", x, y, got, x-3, y-2)
			}
		}
	}
}

func TestWarpAffineIdentityIsCopy(t *testing.T) {
	src := imgbuf.New(7, 5, 1)
	for y := 0; y < 5; y++ {
		for x := 0; x < 7; x++ {
			src.Set(x, y, 0, byte(10*y+x))
		}
	}
	dst := imgbuf.New(7, 5, 1)
	if err := WarpAffine(dst, src, Identity()); err != nil {
		t.Fatalf("WarpAffine: %v", err)
	}
	if !dst.Equal(src) {
		t.Errorf("identity warp changed the image")
	}
}

func TestWarpAffineChannelMismatch(t *testing.T) {
	err := WarpAffine(imgbuf.New(4, 4, 1), imgbuf.New(4, 4, 3), Identity())
	if err == nil {
		t.Fatal("expected channel mismatch error")
	}
}
