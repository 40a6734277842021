package landmark

import (
	"fmt"
	"strings"

	"github.com/dudu/faceblend/internal/geom"
)

// Scheme identifies the landmark layout produced by the upstream detector.
type Scheme int

const (
	// Generic9 is a detector that already emits the 9-point face contour.
	Generic9 Scheme = iota
	// Dlib68 is the iBUG 300-W 68-point layout used by dlib.
	Dlib68
	// Tracker76 is the 76-point layout of the non-rigid object tracker.
	Tracker76
)

// Len returns the number of points a set of this scheme must contain
func (s Scheme) Len() int {
	switch s {
	case Generic9:
		return 9
	case Dlib68:
		return 68
	case Tracker76:
		return 76
	}
	return 0
}

func (s Scheme) String() string {
	switch s {
	case Generic9:
		return "generic9"
	case Dlib68:
		return "dlib68"
	case Tracker76:
		return "tracker76"
	}
	return fmt.Sprintf("scheme(%d)", int(s))
}

// ParseScheme accepts a point count ("9", "68", "76") or a name.
func ParseScheme(v string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "9", "generic", "generic9":
		return Generic9, nil
	case "68", "dlib", "dlib68":
		return Dlib68, nil
	case "76", "tracker", "tracker76":
		return Tracker76, nil
	}
	return 0, fmt.Errorf("unknown landmark scheme %q (use 9, 68 or 76)", v)
}

// Extract reduces a landmark set to the contour, affine keypoints and feather
// size. It is a pure function of its input.
func (s Scheme) Extract(set Set) (Geometry, error) {
	if want := s.Len(); want == 0 || len(set) != want {
		return Geometry{}, fmt.Errorf("%w: %s expects %d points, got %d",
			ErrInvalidLandmarkSet, s, s.Len(), len(set))
	}

	var g Geometry
	switch s {
	case Generic9:
		copy(g.Contour[:], set)
		g.Keypoints = [3]geom.Point{
			g.Contour[3],
			{X: g.Contour[8].X, Y: g.Contour[0].Y},
			{X: g.Contour[7].X, Y: g.Contour[6].Y},
		}
	case Dlib68:
		jaw := [7]int{0, 3, 5, 8, 11, 13, 16}
		for i, idx := range jaw {
			g.Contour[i] = set[idx]
		}
		// Nose bridge vector, pointing up the face.
		nose := set[27].Sub(set[30])
		g.Contour[7] = set[26].Add(nose)
		g.Contour[8] = set[17].Add(nose)
		g.Keypoints = [3]geom.Point{g.Contour[3], set[36], set[45]}
	case Tracker76:
		jaw := [7]int{0, 2, 5, 7, 9, 12, 14}
		for i, idx := range jaw {
			g.Contour[i] = set[idx]
		}
		nose := set[37].Mid(set[45]).Sub(set[67])
		g.Contour[7] = set[15].Add(nose)
		g.Contour[8] = set[21].Add(nose)
		g.Keypoints = [3]geom.Point{g.Contour[3], set[27], set[32]}
	}

	g.Feather = g.Contour[0].Dist(g.Contour[6]) / 8
	return g, nil
}
