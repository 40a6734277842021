package landmark

import (
	"errors"
	"math"
	"testing"

	"github.com/dudu/faceblend/internal/geom"
)

func makeSet(n int) Set {
	s := make(Set, n)
	for i := range s {
		s[i] = geom.Pt(float64(10+i*3), float64(200-i*2))
	}
	return s
}

func TestExtractRejectsWrongLength(t *testing.T) {
	tests := []struct {
		scheme Scheme
		n      int
	}{
		{Generic9, 10},
		{Generic9, 8},
		{Dlib68, 9},
		{Dlib68, 76},
		{Tracker76, 68},
		{Tracker76, 0},
	}
	for _, tt := range tests {
		_, err := tt.scheme.Extract(makeSet(tt.n))
		if !errors.Is(err, ErrInvalidLandmarkSet) {
			t.Errorf("%s with %d points: expected ErrInvalidLandmarkSet, got %v", tt.scheme, tt.n, err)
		}
	}
}

func TestExtractGeneric9(t *testing.T) {
	set := Set{
		{X: 0, Y: 10}, {X: 0, Y: 40}, {X: 10, Y: 40}, {X: 20, Y: 40}, {X: 30, Y: 40},
		{X: 40, Y: 40}, {X: 40, Y: 10}, {X: 40, Y: 0}, {X: 0, Y: 0},
	}
	g, err := Generic9.Extract(set)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	for i := range set {
		if g.Contour[i] != set[i] {
			t.Errorf("contour[%d] = %v, want %v", i, g.Contour[i], set[i])
		}
	}
	want := [3]geom.Point{{X: 20, Y: 40}, {X: 0, Y: 10}, {X: 40, Y: 10}}
	if g.Keypoints != want {
		t.Errorf("keypoints = %v, want %v", g.Keypoints, want)
	}
	if g.Feather != 5 {
		t.Errorf("feather = %v, want 5", g.Feather)
	}
	if g.FeatherKernel() != 5 {
		t.Errorf("feather kernel = %d, want 5", g.FeatherKernel())
	}
}

func TestExtractDlib68(t *testing.T) {
	set := makeSet(68)
	set[27] = geom.Pt(100, 80)
	set[30] = geom.Pt(100, 110)
	g, err := Dlib68.Extract(set)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if g.Contour[3] != set[8] {
		t.Errorf("chin should be landmark 8, got %v", g.Contour[3])
	}
	// Forehead corners sit one nose length above the brow ends.
	if want := set[26].Add(geom.Pt(0, -30)); g.Contour[7] != want {
		t.Errorf("contour[7] = %v, want %v", g.Contour[7], want)
	}
	if want := set[17].Add(geom.Pt(0, -30)); g.Contour[8] != want {
		t.Errorf("contour[8] = %v, want %v", g.Contour[8], want)
	}
	if g.Keypoints[1] != set[36] || g.Keypoints[2] != set[45] {
		t.Errorf("eye keypoints = %v", g.Keypoints)
	}
	wantFeather := set[0].Dist(set[16]) / 8
	if math.Abs(g.Feather-wantFeather) > 1e-9 {
		t.Errorf("feather = %v, want %v", g.Feather, wantFeather)
	}
}

func TestExtractTracker76(t *testing.T) {
	set := makeSet(76)
	g, err := Tracker76.Extract(set)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	nose := set[37].Mid(set[45]).Sub(set[67])
	if want := set[15].Add(nose); g.Contour[7] != want {
		t.Errorf("contour[7] = %v, want %v", g.Contour[7], want)
	}
	if g.Keypoints[0] != set[7] || g.Keypoints[1] != set[27] || g.Keypoints[2] != set[32] {
		t.Errorf("keypoints = %v", g.Keypoints)
	}
}

func TestExtractIsPure(t *testing.T) {
	for _, s := range []Scheme{Generic9, Dlib68, Tracker76} {
		set := makeSet(s.Len())
		before := set.Clone()
		g1, err1 := s.Extract(set)
		g2, err2 := s.Extract(set)
		if err1 != nil || err2 != nil {
			t.Fatalf("%s: unexpected errors %v, %v", s, err1, err2)
		}
		if g1 != g2 {
			t.Errorf("%s: two extractions differ", s)
		}
		for i := range set {
			if set[i] != before[i] {
				t.Fatalf("%s: input mutated at %d", s, i)
			}
		}
	}
}

func TestParseScheme(t *testing.T) {
	for in, want := range map[string]Scheme{"9": Generic9, "dlib": Dlib68, " 76 ": Tracker76, "Tracker76": Tracker76} {
		got, err := ParseScheme(in)
		if err != nil || got != want {
			t.Errorf("ParseScheme(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseScheme("106"); err == nil {
		t.Error("expected error for unsupported scheme")
	}
}
