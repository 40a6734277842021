package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/dudu/faceblend/internal/geom"
	"github.com/dudu/faceblend/internal/imgbuf"
	"github.com/dudu/faceblend/internal/landmark"
	"github.com/dudu/faceblend/internal/overlay"
	"github.com/dudu/faceblend/internal/swapper"
)

// SetTargetImage selects the frame that ChangeFace composites into. The
// frame is kept by reference and modified by ChangeFace.
func (s *Session) SetTargetImage(frame *imgbuf.Buffer) error {
	if s.closed {
		return ErrClosed
	}
	if err := checkFrame(frame); err != nil {
		return fmt.Errorf("set target: %w", err)
	}
	if s.batch == nil {
		s.batch = newBatchBuffers()
	}
	if s.batch.ensure(frame.Width(), frame.Height(), frame.Channels()) {
		s.logf("[CHANGE] allocated %dx%dx%d working buffers", frame.Width(), frame.Height(), frame.Channels())
		s.dirty = geom.Rect{}
	}
	s.target = frame
	return nil
}

// AddFaceChangeData queues the face described by sourceLandmarks in source
// to be stamped onto targetLandmarks by the next ChangeFace call.
func (s *Session) AddFaceChangeData(source *imgbuf.Buffer, sourceLandmarks, targetLandmarks landmark.Set, alpha float64) error {
	if s.closed {
		return ErrClosed
	}
	if source.Empty() {
		return fmt.Errorf("add face change: %w: empty source frame", ErrEmptyRegion)
	}
	s.changes = append(s.changes, FaceChange{
		Source:          source,
		SourceLandmarks: sourceLandmarks.Clone(),
		TargetLandmarks: targetLandmarks.Clone(),
		Alpha:           alpha,
	})
	return nil
}

// ClearFaceChangeData drops every queued change
func (s *Session) ClearFaceChangeData() {
	s.changes = s.changes[:0]
}

// Committed returns how many faces the last ChangeFace composited
func (s *Session) Committed() int {
	return s.committed
}

// Pending returns the number of queued changes
func (s *Session) Pending() int {
	return len(s.changes)
}

// ChangeFace applies all queued changes to the target image in one alpha
// blended commit and clears the queue. A change that fails is skipped and
// the others are still composited; the returned error joins every failure.
func (s *Session) ChangeFace() error {
	if s.closed {
		return ErrClosed
	}
	if s.target == nil {
		return ErrNoTarget
	}
	totalStart := time.Now()
	var timing Timing
	var errs []error
	var marks overlay.Marks

	buf := s.batch
	for i, fc := range s.changes {
		m, err := s.changeFace(buf, fc, &timing)
		if err != nil {
			err = fmt.Errorf("face %d: %w", i, err)
			s.logf("[CHANGE] skipped %v", err)
			errs = append(errs, err)
			continue
		}
		marks.Add(m)
	}

	committed := len(s.changes) - len(errs)
	if !s.dirty.Empty() {
		start := time.Now()
		region := s.target.Region(s.dirty)
		if err := swapper.AlphaBlend(buf.warpedFace.full.Region(s.dirty), region, buf.refined.full.Region(s.dirty), region); err != nil {
			errs = append(errs, err)
			committed = 0
		}
		timing.Composite = time.Since(start)

		if s.opts.DrawDebugOverlay {
			overlay.Draw(s.target, marks)
		}
		buf.refined.full.Region(s.dirty).Zero()
		buf.warpedFace.full.Region(s.dirty).Zero()
	}
	s.logf("[CHANGE] committed %d of %d faces in %v", committed, len(s.changes), s.dirty)
	s.committed = committed
	s.dirty = geom.Rect{}
	s.changes = s.changes[:0]

	timing.Total = time.Since(totalStart)
	s.lastTiming = timing
	return errors.Join(errs...)
}

// changeFace runs one queued change up to the feathered mask and merges it
// into the accumulated warped face and refined mask. Nothing is merged when
// it fails.
func (s *Session) changeFace(buf *batchBuffers, fc FaceChange, timing *Timing) (overlay.Marks, error) {
	start := time.Now()
	if fc.Source.Channels() != s.target.Channels() {
		return overlay.Marks{}, fmt.Errorf("%w: source has %d channels, target %d",
			ErrChannelMismatch, fc.Source.Channels(), s.target.Channels())
	}
	tgt, err := s.opts.Scheme.Extract(fc.TargetLandmarks)
	if err != nil {
		return overlay.Marks{}, fmt.Errorf("target landmarks: %w", err)
	}
	src, err := s.opts.Scheme.Extract(fc.SourceLandmarks)
	if err != nil {
		return overlay.Marks{}, fmt.Errorf("source landmarks: %w", err)
	}

	targetRect := tgt.BoundingRect()
	sourceRect := src.BoundingRect()
	inSource := geom.Intersect(sourceRect, fc.Source.Bounds())

	// Move the source face onto the target face's position.
	dx, dy, err := swapper.PlaceSourceRect(sourceRect, targetRect, s.target.Width(), s.target.Height())
	if err != nil {
		return overlay.Marks{}, err
	}
	sourceRect = geom.Translate(sourceRect, dx, dy)
	src.Shift(float64(dx), float64(dy))

	roi := geom.Intersect(geom.Union(targetRect, sourceRect), s.target.Bounds())
	if roi.Empty() {
		return overlay.Marks{}, ErrEmptyRegion
	}
	marks := overlay.Marks{
		Contour:   append(tgt.Contour[:], src.Contour[:]...),
		Keypoints: append(tgt.Keypoints[:], src.Keypoints[:]...),
	}
	local := geom.R(0, 0, roi.Width, roi.Height)
	targetLocal := geom.Intersect(targetRect.ToLocal(roi), local)
	sourceLocal := geom.Intersect(sourceRect.ToLocal(roi), local)
	tgt.ToLocal(roi)
	src.ToLocal(roi)

	trans, err := swapper.GetAffineTransform(src.Keypoints, tgt.Keypoints)
	if err != nil {
		return overlay.Marks{}, err
	}
	timing.Geometry += time.Since(start)

	buf.setROI(roi)

	start = time.Now()
	swapper.BuildMask(buf.targetMask.roi, tgt.Contour[:], fc.Alpha)
	swapper.BuildMask(buf.sourceMask.roi, src.Contour[:], fc.Alpha)
	timing.Mask += time.Since(start)

	start = time.Now()
	if err := swapper.WarpAffine(buf.warpedSourceMask.roi, buf.sourceMask.roi, trans); err != nil {
		return overlay.Marks{}, fmt.Errorf("warp mask: %w", err)
	}
	k := tgt.FeatherKernel()
	buf.faceRefined.full.Region(geom.Inflate(roi, k, k)).Zero()
	swapper.RefineMask(buf.faceRefined.roi, buf.targetMask.roi, buf.warpedSourceMask.roi)
	swapper.ExtractFaceFrom(buf.sourceFace.roi, buf.sourceMask.roi, fc.Source, inSource, sourceLocal)
	if err := swapper.WarpAffine(buf.warpedSourceFace.roi, buf.sourceFace.roi, trans); err != nil {
		return overlay.Marks{}, fmt.Errorf("warp face: %w", err)
	}
	timing.Warp += time.Since(start)

	if s.opts.EnableColorCorrection {
		start = time.Now()
		frame := s.target.Region(roi).Region(targetLocal)
		face := buf.warpedSourceFace.roi.Region(targetLocal)
		mask := buf.warpedSourceMask.roi.Region(targetLocal)
		if err := s.transfer.Transfer(frame, face, mask); err != nil {
			return overlay.Marks{}, fmt.Errorf("color correct: %w", err)
		}
		timing.Color += time.Since(start)
	}

	start = time.Now()
	s.featherer.Apply(buf.faceRefined.roi.Region(targetLocal), k)
	timing.Feather += time.Since(start)

	buf.warpedSourceFace.roi.CopyTo(buf.warpedFace.roi, buf.warpedSourceMask.roi)
	swapper.MergeMax(buf.refined.roi, buf.faceRefined.roi)

	touched := targetLocal.ToGlobal(roi)
	switch {
	case touched.Empty():
	case s.dirty.Empty():
		s.dirty = touched
	default:
		s.dirty = geom.Union(s.dirty, touched)
	}
	marks.Rects = []geom.Rect{touched}
	return marks, nil
}
