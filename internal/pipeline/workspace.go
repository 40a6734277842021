package pipeline

import (
	"github.com/dudu/faceblend/internal/geom"
	"github.com/dudu/faceblend/internal/imgbuf"
)

// plane is one working buffer at frame size plus its view of the active ROI.
// roi always aliases full.
type plane struct {
	full     *imgbuf.Buffer
	roi      *imgbuf.Buffer
	channels int // 0 follows the frame
}

// workspace owns a set of planes that share one shape and one ROI.
type workspace struct {
	width, height, channels int
	roi                     geom.Rect
	hasROI                  bool
	allocs                  int
	planes                  []*plane
}

func (w *workspace) plane(channels int) *plane {
	p := &plane{channels: channels}
	w.planes = append(w.planes, p)
	return p
}

// ensure (re)allocates every plane when the frame shape changed and reports
// whether it did.
func (w *workspace) ensure(width, height, channels int) bool {
	if w.allocs > 0 && w.width == width && w.height == height && w.channels == channels {
		return false
	}
	for _, p := range w.planes {
		ch := p.channels
		if ch == 0 {
			ch = channels
		}
		p.full.Close()
		p.full = imgbuf.New(width, height, ch)
		p.roi = p.full
	}
	w.width, w.height, w.channels = width, height, channels
	w.hasROI = false
	w.allocs++
	return true
}

// setROI points every plane's view at r. Views are rebuilt only when r moves.
func (w *workspace) setROI(r geom.Rect) {
	if w.hasROI && w.roi == r {
		return
	}
	for _, p := range w.planes {
		p.roi = p.full.Region(r)
	}
	w.roi = r
	w.hasROI = true
}

func (w *workspace) release() {
	for _, p := range w.planes {
		p.full.Close()
		p.full, p.roi = nil, nil
	}
	w.allocs = 0
	w.hasROI = false
}

// pairBuffers backs SwapFaces. A and B are the two faces of the pair.
type pairBuffers struct {
	workspace
	maskA, maskB             *plane
	warpedMaskA, warpedMaskB *plane
	refinedA, refinedB       *plane
	refined                  *plane
	faceA, faceB             *plane
	warpedFaceA, warpedFaceB *plane
	warpedFaces              *plane

	// frameC3 and cloned serve the seamless path only and are sized on
	// first use.
	frameC3 *imgbuf.Buffer
	cloned  *imgbuf.Buffer
}

func (b *pairBuffers) release() {
	b.workspace.release()
	b.frameC3.Close()
	b.cloned.Close()
	b.frameC3, b.cloned = nil, nil
}

func newPairBuffers() *pairBuffers {
	b := &pairBuffers{}
	b.maskA, b.maskB = b.plane(1), b.plane(1)
	b.warpedMaskA, b.warpedMaskB = b.plane(1), b.plane(1)
	b.refinedA, b.refinedB = b.plane(1), b.plane(1)
	b.refined = b.plane(1)
	b.faceA, b.faceB = b.plane(0), b.plane(0)
	b.warpedFaceA, b.warpedFaceB = b.plane(0), b.plane(0)
	b.warpedFaces = b.plane(0)
	return b
}

// batchBuffers backs the SetTargetImage / ChangeFace mode. refined and
// warpedFace accumulate over all faces of one commit; the others are rebuilt
// per face.
type batchBuffers struct {
	workspace
	targetMask, sourceMask *plane
	warpedSourceMask       *plane
	faceRefined            *plane
	refined                *plane
	sourceFace             *plane
	warpedSourceFace       *plane
	warpedFace             *plane
}

func newBatchBuffers() *batchBuffers {
	b := &batchBuffers{}
	b.targetMask, b.sourceMask = b.plane(1), b.plane(1)
	b.warpedSourceMask = b.plane(1)
	b.faceRefined = b.plane(1)
	b.refined = b.plane(1)
	b.sourceFace = b.plane(0)
	b.warpedSourceFace = b.plane(0)
	b.warpedFace = b.plane(0)
	return b
}

// fit returns buf when it already has the requested shape. Otherwise buf is
// closed and a new buffer returned.
func fit(buf *imgbuf.Buffer, width, height, channels int) *imgbuf.Buffer {
	if buf != nil && buf.Width() == width && buf.Height() == height && buf.Channels() == channels {
		return buf
	}
	buf.Close()
	return imgbuf.New(width, height, channels)
}
