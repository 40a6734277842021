// Package pipeline composites faces onto frames. A Session owns the working
// buffers for one stream of frames and runs either pairwise swaps or batched
// one-way changes through the geometry, mask, warp, colour, feather and
// composite stages.
//
// A Session is not safe for concurrent use. Use one session per stream.
package pipeline

import (
	"fmt"
	"image"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/dudu/faceblend/internal/geom"
	"github.com/dudu/faceblend/internal/imgbuf"
	"github.com/dudu/faceblend/internal/landmark"
	"github.com/dudu/faceblend/internal/overlay"
	"github.com/dudu/faceblend/internal/swapper"
)

// Session orchestrates face compositing for one stream of frames
type Session struct {
	id        string
	opts      Options
	transfer  swapper.ColorTransfer
	featherer swapper.Featherer

	pair  *pairBuffers
	batch *batchBuffers

	target    *imgbuf.Buffer
	changes   []FaceChange
	dirty     geom.Rect
	committed int

	lastTiming Timing
	closed     bool
}

// New creates a session
func New(opts Options) (*Session, error) {
	if opts.Scheme.Len() == 0 {
		return nil, fmt.Errorf("unknown landmark scheme %v", opts.Scheme)
	}
	if opts.UseSeamlessClone && opts.Cloner == nil {
		return nil, ErrNoCloner
	}
	transfer := opts.ColorTransfer
	if transfer == nil {
		transfer = swapper.NewHistogramMatch()
	}

	s := &Session{
		id:       uuid.NewString(),
		opts:     opts,
		transfer: transfer,
	}
	s.logf("[SESSION] created: scheme=%s seamless=%v color=%v overlay=%v",
		opts.Scheme, opts.UseSeamlessClone, opts.EnableColorCorrection, opts.DrawDebugOverlay)
	return s, nil
}

// ID returns the session's unique id
func (s *Session) ID() string {
	return s.id
}

// LastTiming returns timing from the last SwapFaces or ChangeFace call
func (s *Session) LastTiming() Timing {
	return s.lastTiming
}

// Close releases all working buffers and a ColorTransfer that implements
// io.Closer. Every later call returns ErrClosed.
func (s *Session) Close() error {
	if s.closed {
		return ErrClosed
	}
	var err error
	if c, ok := s.transfer.(io.Closer); ok {
		err = c.Close()
	}
	s.featherer.Close()
	if s.pair != nil {
		s.pair.release()
		s.pair = nil
	}
	if s.batch != nil {
		s.batch.release()
		s.batch = nil
	}
	s.target = nil
	s.changes = nil
	s.closed = true
	s.logf("[SESSION] closed")
	return err
}

func (s *Session) logf(format string, args ...any) {
	if s.opts.Logger == nil {
		return
	}
	s.opts.Logger.Printf("[%s] "+format, append([]any{s.id[:8]}, args...)...)
}

func checkFrame(frame *imgbuf.Buffer) error {
	if frame.Empty() {
		return fmt.Errorf("%w: empty frame", ErrEmptyRegion)
	}
	if c := frame.Channels(); c != 3 && c != 4 {
		return fmt.Errorf("%w: need a 3 or 4 channel frame, got %d", ErrChannelMismatch, c)
	}
	return nil
}

// SwapFaces exchanges the faces described by a and b inside frame, which is
// modified in place. alpha is the blend weight of the pasted faces and is
// clamped to [0, 1]. On error the frame is left untouched.
func (s *Session) SwapFaces(frame *imgbuf.Buffer, a, b landmark.Set, alpha float64) error {
	if s.closed {
		return ErrClosed
	}
	if err := checkFrame(frame); err != nil {
		return fmt.Errorf("swap: %w", err)
	}
	totalStart := time.Now()
	var timing Timing

	// Geometry
	start := time.Now()
	geoA, err := s.opts.Scheme.Extract(a)
	if err != nil {
		return fmt.Errorf("swap: face a: %w", err)
	}
	geoB, err := s.opts.Scheme.Extract(b)
	if err != nil {
		return fmt.Errorf("swap: face b: %w", err)
	}
	rectA, rectB := geoA.BoundingRect(), geoB.BoundingRect()
	roi := geom.Intersect(geom.Union(rectA, rectB), frame.Bounds())
	if roi.Empty() {
		return fmt.Errorf("swap: %w", ErrEmptyRegion)
	}
	local := geom.R(0, 0, roi.Width, roi.Height)
	rectA = geom.Intersect(rectA.ToLocal(roi), local)
	rectB = geom.Intersect(rectB.ToLocal(roi), local)
	geoA.ToLocal(roi)
	geoB.ToLocal(roi)

	aToB, err := swapper.GetAffineTransform(geoA.Keypoints, geoB.Keypoints)
	if err != nil {
		return fmt.Errorf("swap: %w", err)
	}
	bToA, err := aToB.Invert()
	if err != nil {
		return fmt.Errorf("swap: %w", err)
	}
	timing.Geometry = time.Since(start)

	// Seamless cloning works on 3 channels; a 4 channel frame is processed
	// through a colour-only copy of its ROI.
	seamless := s.opts.UseSeamlessClone
	workChannels := frame.Channels()
	if seamless && workChannels == 4 {
		workChannels = 3
	}
	if s.pair == nil {
		s.pair = newPairBuffers()
	}
	buf := s.pair
	if buf.ensure(frame.Width(), frame.Height(), workChannels) {
		s.logf("[SWAP] allocated %dx%dx%d working buffers", frame.Width(), frame.Height(), workChannels)
	}
	buf.setROI(roi)

	small := frame.Region(roi)
	work := small
	if workChannels != frame.Channels() {
		buf.frameC3 = fit(buf.frameC3, frame.Width(), frame.Height(), 3)
		work = buf.frameC3.Region(roi)
		imgbuf.CopyChannels(work, small, 3)
	}

	k := geoA.FeatherKernel()

	// Masks
	start = time.Now()
	swapper.BuildMask(buf.maskA.roi, geoA.Contour[:], alpha)
	swapper.BuildMask(buf.maskB.roi, geoB.Contour[:], alpha)
	timing.Mask = time.Since(start)

	// Warp masks and faces
	start = time.Now()
	if err := swapper.WarpAffine(buf.warpedMaskA.roi, buf.maskA.roi, aToB); err != nil {
		return fmt.Errorf("swap: warp mask a: %w", err)
	}
	if err := swapper.WarpAffine(buf.warpedMaskB.roi, buf.maskB.roi, bToA); err != nil {
		return fmt.Errorf("swap: warp mask b: %w", err)
	}
	swapper.RefineMask(buf.refinedA.roi, buf.maskA.roi, buf.warpedMaskB.roi)
	swapper.RefineMask(buf.refinedB.roi, buf.maskB.roi, buf.warpedMaskA.roi)
	// Feathering reads k pixels around each face rect, so clear that ring too.
	buf.refined.full.Region(geom.Inflate(roi, k, k)).Zero()
	buf.refinedA.roi.CopyTo(buf.refined.roi, buf.refinedA.roi)
	buf.refinedB.roi.CopyTo(buf.refined.roi, buf.refinedB.roi)

	swapper.ExtractFace(buf.faceA.roi, work, buf.maskA.roi)
	swapper.ExtractFace(buf.faceB.roi, work, buf.maskB.roi)
	if err := swapper.WarpAffine(buf.warpedFaceA.roi, buf.faceA.roi, aToB); err != nil {
		return fmt.Errorf("swap: warp face a: %w", err)
	}
	if err := swapper.WarpAffine(buf.warpedFaceB.roi, buf.faceB.roi, bToA); err != nil {
		return fmt.Errorf("swap: warp face b: %w", err)
	}
	buf.warpedFaces.roi.Zero()
	buf.warpedFaceA.roi.CopyTo(buf.warpedFaces.roi, buf.warpedMaskA.roi)
	buf.warpedFaceB.roi.CopyTo(buf.warpedFaces.roi, buf.warpedMaskB.roi)
	timing.Warp = time.Since(start)

	// Each pasted face takes the statistics of the face it covers.
	faces := [2]struct {
		name   string
		rect   geom.Rect
		covers *imgbuf.Buffer
	}{
		{"a", rectA, buf.warpedMaskB.roi},
		{"b", rectB, buf.warpedMaskA.roi},
	}

	if seamless {
		// One clone pastes both faces, so both match the unpasted frame.
		for _, f := range faces {
			if err := s.colorCorrect(work, buf.warpedFaces.roi, f.covers, f.rect, &timing); err != nil {
				return fmt.Errorf("swap: color correct face %s: %w", f.name, err)
			}
		}
		start = time.Now()
		for _, f := range faces {
			s.featherer.Apply(buf.refined.roi.Region(f.rect), k)
		}
		timing.Feather = time.Since(start)

		start = time.Now()
		if err := s.pasteSeamless(buf, frame, work, roi); err != nil {
			return fmt.Errorf("swap: %w", err)
		}
		timing.Composite = time.Since(start)
	} else {
		// Face b is matched against the frame after face a was pasted.
		start = time.Now()
		for _, f := range faces {
			s.featherer.Apply(buf.refined.roi.Region(f.rect), k)
		}
		timing.Feather = time.Since(start)

		for _, f := range faces {
			if err := s.colorCorrect(small, buf.warpedFaces.roi, f.covers, f.rect, &timing); err != nil {
				return fmt.Errorf("swap: color correct face %s: %w", f.name, err)
			}
			start = time.Now()
			dst := small.Region(f.rect)
			if err := swapper.AlphaBlend(buf.warpedFaces.roi.Region(f.rect), dst, buf.refined.roi.Region(f.rect), dst); err != nil {
				return fmt.Errorf("swap: face %s: %w", f.name, err)
			}
			timing.Composite += time.Since(start)
		}
	}

	if s.opts.DrawDebugOverlay {
		overlay.Draw(small, overlay.Marks{
			Contour:   append(geoA.Contour[:], geoB.Contour[:]...),
			Keypoints: append(geoA.Keypoints[:], geoB.Keypoints[:]...),
			Rects:     []geom.Rect{geom.R(1, 1, roi.Width-2, roi.Height-2), rectA, rectB},
		})
	}

	timing.Total = time.Since(totalStart)
	s.lastTiming = timing
	s.logf("[SWAP] roi=%v kernel=%d total=%s", roi, k, timing.Total)
	return nil
}

// colorCorrect repaints the warped face inside rect with the statistics of
// frame under mask, when colour correction is enabled
func (s *Session) colorCorrect(frame, warped, mask *imgbuf.Buffer, rect geom.Rect, timing *Timing) error {
	if !s.opts.EnableColorCorrection {
		return nil
	}
	start := time.Now()
	err := s.transfer.Transfer(frame.Region(rect), warped.Region(rect), mask.Region(rect))
	timing.Color += time.Since(start)
	return err
}

// pasteSeamless clones the warped faces into the ROI through the configured
// cloner and writes the colour channels of the result back into frame.
func (s *Session) pasteSeamless(buf *pairBuffers, frame, work *imgbuf.Buffer, roi geom.Rect) error {
	mask := buf.refined.roi
	swapper.DrawBorder(mask)

	buf.cloned = fit(buf.cloned, frame.Width(), frame.Height(), 3)
	out := buf.cloned.Region(roi)
	center := image.Pt(roi.Width/2, roi.Height/2)
	if err := s.opts.Cloner.Clone(buf.warpedFaces.roi, work, mask, center, out); err != nil {
		return fmt.Errorf("seamless clone: %w", err)
	}
	imgbuf.CopyChannels(frame.Region(roi), out, 3)
	return nil
}
