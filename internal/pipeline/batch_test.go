package pipeline

import (
	"errors"
	"testing"

	"github.com/dudu/faceblend/internal/imgbuf"
	"github.com/dudu/faceblend/internal/landmark"
	"github.com/dudu/faceblend/internal/swapper"
)

func TestChangeFaceStampsEveryFace(t *testing.T) {
	s := newSession(t, Options{Scheme: landmark.Generic9})
	source := patternFrame(60, 60, 3, 77)
	target := patternFrame(160, 70, 3, 0)
	orig := target.Clone()
	srcFace := squareFace(5, 5, 40)

	if err := s.SetTargetImage(target); err != nil {
		t.Fatalf("SetTargetImage: %v", err)
	}
	for _, ox := range []float64{10, 100} {
		if err := s.AddFaceChangeData(source, srcFace, squareFace(ox, 10, 40), 1); err != nil {
			t.Fatalf("AddFaceChangeData: %v", err)
		}
	}
	if s.Pending() != 2 {
		t.Fatalf("Pending = %d, want 2", s.Pending())
	}
	if err := s.ChangeFace(); err != nil {
		t.Fatalf("ChangeFace: %v", err)
	}

	for y := 14; y <= 46; y++ {
		for x := 14; x <= 46; x++ {
			if !samePixel(target.Pixel(x, y), source.Pixel(x-5, y-5), 3) {
				t.Fatalf("first face (%d,%d) = %v, want %v", x, y, target.Pixel(x, y), source.Pixel(x-5, y-5))
			}
			if !samePixel(target.Pixel(x+90, y), source.Pixel(x-5, y-5), 3) {
				t.Fatalf("second face (%d,%d) = %v, want %v", x+90, y, target.Pixel(x+90, y), source.Pixel(x-5, y-5))
			}
		}
	}
	if !samePixel(target.Pixel(70, 30), orig.Pixel(70, 30), 3) {
		t.Error("pixel between the faces changed")
	}
	if s.Pending() != 0 {
		t.Errorf("queue not cleared: %d pending", s.Pending())
	}
	if !s.dirty.Empty() {
		t.Errorf("dirty region not reset: %v", s.dirty)
	}
	if n := s.batch.refined.full.CountNonZero(0); n != 0 {
		t.Errorf("accumulated mask not cleared: %d pixels set", n)
	}
}

func TestChangeFaceIgnoresStaleMaskAroundFace(t *testing.T) {
	source := patternFrame(60, 60, 3, 77)
	srcFace, dstFace := squareFace(5, 5, 40), squareFace(40, 12, 40)
	change := func(s *Session, target *imgbuf.Buffer) {
		t.Helper()
		if err := s.SetTargetImage(target); err != nil {
			t.Fatalf("SetTargetImage: %v", err)
		}
		if err := s.AddFaceChangeData(source, srcFace, dstFace, 1); err != nil {
			t.Fatalf("AddFaceChangeData: %v", err)
		}
		if err := s.ChangeFace(); err != nil {
			t.Fatalf("ChangeFace: %v", err)
		}
	}

	want := patternFrame(120, 70, 3, 0)
	change(newSession(t, Options{Scheme: landmark.Generic9}), want)

	s := newSession(t, Options{Scheme: landmark.Generic9})
	change(s, patternFrame(120, 70, 3, 0))
	s.batch.faceRefined.full.Fill(255)
	got := patternFrame(120, 70, 3, 0)
	change(s, got)
	if !got.Equal(want) {
		t.Error("mask left around the face by an earlier commit changed the result")
	}
}

func TestChangeFaceSkipsBadFace(t *testing.T) {
	s := newSession(t, Options{Scheme: landmark.Generic9})
	source := patternFrame(60, 60, 3, 77)
	target := patternFrame(160, 70, 3, 0)
	orig := target.Clone()

	if err := s.SetTargetImage(target); err != nil {
		t.Fatalf("SetTargetImage: %v", err)
	}
	short := squareFace(100, 10, 40)[:5]
	if err := s.AddFaceChangeData(source, squareFace(5, 5, 40), short, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.AddFaceChangeData(source, squareFace(5, 5, 40), squareFace(10, 10, 40), 1); err != nil {
		t.Fatal(err)
	}

	err := s.ChangeFace()
	if !errors.Is(err, landmark.ErrInvalidLandmarkSet) {
		t.Fatalf("err = %v, want ErrInvalidLandmarkSet", err)
	}
	if !samePixel(target.Pixel(30, 30), source.Pixel(25, 25), 3) {
		t.Error("good face was not composited")
	}
	if !samePixel(target.Pixel(120, 30), orig.Pixel(120, 30), 3) {
		t.Error("bad face region was modified")
	}
	if s.Pending() != 0 {
		t.Errorf("queue not cleared: %d pending", s.Pending())
	}
	if s.Committed() != 1 {
		t.Errorf("Committed = %d, want 1", s.Committed())
	}
}

func TestChangeFaceTooLarge(t *testing.T) {
	s := newSession(t, Options{Scheme: landmark.Generic9})
	source := patternFrame(600, 600, 3, 0)
	target := patternFrame(400, 400, 3, 0)
	orig := target.Clone()

	if err := s.SetTargetImage(target); err != nil {
		t.Fatal(err)
	}
	if err := s.AddFaceChangeData(source, squareFace(50, 50, 500), squareFace(10, 10, 100), 1); err != nil {
		t.Fatal(err)
	}
	if err := s.ChangeFace(); !errors.Is(err, swapper.ErrFaceTooLarge) {
		t.Fatalf("err = %v, want ErrFaceTooLarge", err)
	}
	if !target.Equal(orig) {
		t.Error("target modified by a rejected face")
	}
}

func TestChangeFaceChannelMismatch(t *testing.T) {
	s := newSession(t, Options{Scheme: landmark.Generic9})
	if err := s.SetTargetImage(patternFrame(160, 70, 3, 0)); err != nil {
		t.Fatal(err)
	}
	if err := s.AddFaceChangeData(patternFrame(60, 60, 4, 0), squareFace(5, 5, 40), squareFace(10, 10, 40), 1); err != nil {
		t.Fatal(err)
	}
	if err := s.ChangeFace(); !errors.Is(err, ErrChannelMismatch) {
		t.Errorf("err = %v, want ErrChannelMismatch", err)
	}
}

func TestChangeFaceWithoutTarget(t *testing.T) {
	s := newSession(t, Options{Scheme: landmark.Generic9})
	if err := s.ChangeFace(); !errors.Is(err, ErrNoTarget) {
		t.Errorf("err = %v, want ErrNoTarget", err)
	}
}

func TestClearFaceChangeData(t *testing.T) {
	s := newSession(t, Options{Scheme: landmark.Generic9})
	source := patternFrame(60, 60, 3, 0)
	target := patternFrame(160, 70, 3, 0)
	orig := target.Clone()
	if err := s.SetTargetImage(target); err != nil {
		t.Fatal(err)
	}
	if err := s.AddFaceChangeData(source, squareFace(5, 5, 40), squareFace(10, 10, 40), 1); err != nil {
		t.Fatal(err)
	}
	s.ClearFaceChangeData()
	if s.Pending() != 0 {
		t.Fatalf("Pending = %d after clear", s.Pending())
	}
	if err := s.ChangeFace(); err != nil {
		t.Fatalf("ChangeFace: %v", err)
	}
	if !target.Equal(orig) {
		t.Error("empty commit modified the target")
	}
}

func TestAddFaceChangeDataCopiesLandmarks(t *testing.T) {
	s := newSession(t, Options{Scheme: landmark.Generic9})
	tgt := squareFace(10, 10, 40)
	if err := s.AddFaceChangeData(patternFrame(60, 60, 3, 0), squareFace(5, 5, 40), tgt, 0.5); err != nil {
		t.Fatal(err)
	}
	tgt[0].X = -1000
	if s.changes[0].TargetLandmarks[0].X == -1000 {
		t.Error("queued landmarks alias the caller's slice")
	}
}
