package cvbridge

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/dudu/faceblend/internal/imgbuf"
	"github.com/dudu/faceblend/internal/swapper"
)

// Space is the colour space a ReinhardTransfer matches statistics in
type Space int

const (
	Lab Space = iota
	YCrCb
)

func (s Space) String() string {
	if s == YCrCb {
		return "ycrcb"
	}
	return "lab"
}

// ReinhardTransfer matches the per channel mean and standard deviation of the
// masked pixels in a perceptual colour space. It implements
// swapper.ColorTransfer. Like HistogramMatch it owns its scratch buffers and
// must not be shared between goroutines.
type ReinhardTransfer struct {
	space Space
	// BGR is set when buffers hold blue first, as frames read through gocv do.
	BGR bool

	source, target *imgbuf.Buffer
	converted      gocv.Mat
}

// NewLabTransfer matches statistics in CIE Lab
func NewLabTransfer() *ReinhardTransfer {
	return &ReinhardTransfer{space: Lab, converted: gocv.NewMat()}
}

// NewYCrCbTransfer matches statistics in YCrCb
func NewYCrCbTransfer() *ReinhardTransfer {
	return &ReinhardTransfer{space: YCrCb, converted: gocv.NewMat()}
}

// Close releases the scratch buffers
func (r *ReinhardTransfer) Close() error {
	r.source.Close()
	r.target.Close()
	r.source, r.target = nil, nil
	return r.converted.Close()
}

// Space returns the colour space the transfer works in
func (r *ReinhardTransfer) Space() Space {
	return r.space
}

func (r *ReinhardTransfer) codes() (to, from gocv.ColorConversionCode) {
	switch {
	case r.space == YCrCb && r.BGR:
		return gocv.ColorBGRToYCrCb, gocv.ColorYCrCbToBGR
	case r.space == YCrCb:
		return gocv.ColorRGBToYCrCb, gocv.ColorYCrCbToRGB
	case r.BGR:
		return gocv.ColorBGRToLab, gocv.ColorLabToBGR
	default:
		return gocv.ColorRGBToLab, gocv.ColorLabToRGB
	}
}

// Transfer repaints the masked pixels of target with the colour statistics
// of source under the same mask. Pixels outside the mask and any alpha
// channel are left untouched.
func (r *ReinhardTransfer) Transfer(source, target, mask *imgbuf.Buffer) error {
	w, h := target.Width(), target.Height()
	if source.Width() != w || source.Height() != h || mask.Width() < w || mask.Height() < h {
		return fmt.Errorf("color transfer: size mismatch source %dx%d target %dx%d mask %dx%d",
			source.Width(), source.Height(), w, h, mask.Width(), mask.Height())
	}
	if source.Channels() < 3 || target.Channels() < 3 {
		return fmt.Errorf("color transfer: need colour buffers, got %d and %d channels",
			source.Channels(), target.Channels())
	}
	if w == 0 || h == 0 || mask.CountNonZero(0) == 0 {
		return nil
	}

	to, from := r.codes()
	r.source = fit3(r.source, w, h)
	r.target = fit3(r.target, w, h)
	imgbuf.CopyChannels(r.source, source, 3)
	imgbuf.CopyChannels(r.target, target, 3)
	r.convert(r.source, to)
	r.convert(r.target, to)

	want := swapper.MaskedStats(r.source, mask)
	have := swapper.MaskedStats(r.target, mask)
	swapper.MatchStats(r.target, mask, have, want)

	r.convert(r.target, from)
	r.target.CopyTo(target, mask)
	return nil
}

// convert runs an OpenCV colour conversion on a 3-channel buffer in place
func (r *ReinhardTransfer) convert(buf *imgbuf.Buffer, code gocv.ColorConversionCode) {
	m := buf.Mat()
	defer m.Close()
	gocv.CvtColor(m, &r.converted, code)
	r.converted.CopyTo(&m)
}

func fit3(buf *imgbuf.Buffer, w, h int) *imgbuf.Buffer {
	if buf != nil && buf.Width() == w && buf.Height() == h {
		return buf
	}
	buf.Close()
	return imgbuf.New(w, h, 3)
}
