// Package cvbridge holds the compositing strategies that are whole OpenCV
// algorithms rather than pixel stages: Poisson seamless cloning and Reinhard
// colour transfer in Lab or YCrCb.
package cvbridge

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/dudu/faceblend/internal/imgbuf"
)

// SeamlessCloner runs OpenCV's Poisson blending (NORMAL_CLONE). It
// implements swapper.SeamlessCloner.
type SeamlessCloner struct {
	Flags gocv.SeamlessCloneFlags
}

// NewSeamlessCloner returns a cloner using NormalClone
func NewSeamlessCloner() *SeamlessCloner {
	return &SeamlessCloner{Flags: gocv.NormalClone}
}

// Clone blends the masked part of src into dst around center and writes the
// result to out
func (c *SeamlessCloner) Clone(src, dst, mask *imgbuf.Buffer, center image.Point, out *imgbuf.Buffer) error {
	if src.Channels() != 3 || dst.Channels() != 3 || out.Channels() != 3 {
		return fmt.Errorf("seamless clone needs 3 channel images, got %d/%d/%d",
			src.Channels(), dst.Channels(), out.Channels())
	}
	if mask.Channels() != 1 {
		return fmt.Errorf("seamless clone needs a single channel mask, got %d", mask.Channels())
	}
	if mask.CountNonZero(0) == 0 {
		dst.CopyTo(out, nil)
		return nil
	}

	srcMat := src.Mat()
	defer srcMat.Close()
	dstMat := dst.Mat()
	defer dstMat.Close()
	maskMat := mask.Mat()
	defer maskMat.Close()

	blend := gocv.NewMat()
	defer blend.Close()
	gocv.SeamlessClone(srcMat, dstMat, maskMat, center, &blend, c.Flags)
	if blend.Empty() {
		return fmt.Errorf("seamless clone produced no output")
	}
	return out.CopyFromMat(blend)
}
