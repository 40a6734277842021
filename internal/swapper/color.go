package swapper

import (
	"fmt"
	"math"

	"github.com/dudu/faceblend/internal/imgbuf"
)

// ColorTransfer repaints target so that its colours under mask follow the
// statistics of source under the same mask. source and target must have the
// same size and channel count; mask is single channel.
type ColorTransfer interface {
	Transfer(source, target, mask *imgbuf.Buffer) error
}

// histMatchEpsilon is the tolerance when comparing CDF values
const histMatchEpsilon = 1e-6

// colorChannels is the number of channels colour transfer works on; a fourth
// (alpha) channel is left alone.
const colorChannels = 3

// HistogramMatch is the histogram specification transfer: for each colour
// channel the target CDF is mapped onto the source CDF through a lookup
// table. Its scratch tables belong to the instance, so one HistogramMatch must
// not be used from two goroutines at once.
type HistogramMatch struct {
	sourceHist [colorChannels][256]float64
	targetHist [colorChannels][256]float64
	lut        [colorChannels][256]byte
}

// NewHistogramMatch returns a histogram matching transfer
func NewHistogramMatch() *HistogramMatch {
	return &HistogramMatch{}
}

// LUT returns the lookup table of the last Transfer call
func (h *HistogramMatch) LUT() [colorChannels][256]byte {
	return h.lut
}

// Transfer implements ColorTransfer
func (h *HistogramMatch) Transfer(source, target, mask *imgbuf.Buffer) error {
	if err := checkTransferArgs(source, target, mask); err != nil {
		return err
	}
	for c := 0; c < colorChannels; c++ {
		clear(h.sourceHist[c][:])
		clear(h.targetHist[c][:])
	}

	ch := source.Channels()
	masked := 0
	for y := 0; y < source.Height(); y++ {
		m, s, t := mask.Row(y), source.Row(y), target.Row(y)
		for x := 0; x < source.Width(); x++ {
			if m[x] == 0 {
				continue
			}
			masked++
			i := x * ch
			for c := 0; c < colorChannels; c++ {
				h.sourceHist[c][s[i+c]]++
				h.targetHist[c][t[i+c]]++
			}
		}
	}
	if masked == 0 {
		return nil
	}

	for c := 0; c < colorChannels; c++ {
		h.lut[c] = BuildLUT(CDF(&h.sourceHist[c]), CDF(&h.targetHist[c]))
	}

	for y := 0; y < target.Height(); y++ {
		m, t := mask.Row(y), target.Row(y)
		for x := 0; x < target.Width(); x++ {
			if m[x] == 0 {
				continue
			}
			i := x * ch
			for c := 0; c < colorChannels; c++ {
				t[i+c] = h.lut[c][t[i+c]]
			}
		}
	}
	return nil
}

// CDF turns a histogram into a cumulative distribution normalised to [0, 1].
// The histogram is first scaled by its largest bin. An empty histogram gives
// an all-zero CDF rather than dividing by zero.
func CDF(hist *[256]float64) [256]float64 {
	var peak float64
	for _, v := range hist {
		peak = math.Max(peak, v)
	}
	var cdf [256]float64
	if peak == 0 {
		return cdf
	}
	var sum float64
	for i, v := range hist {
		sum += v / peak
		cdf[i] = sum
	}
	total := cdf[255]
	for i := range cdf {
		cdf[i] /= total
	}
	return cdf
}

// BuildLUT maps every target level j to the smallest source level k with
// sourceCDF[k] >= targetCDF[j] (within histMatchEpsilon). Both CDFs are
// non-decreasing, so the search resumes where the previous level stopped and
// the table is non-decreasing too.
func BuildLUT(sourceCDF, targetCDF [256]float64) [256]byte {
	var lut [256]byte
	last := 0
	for j := 0; j < 256; j++ {
		f1 := targetCDF[j]
		k := last
		for ; k < 256; k++ {
			f2 := sourceCDF[k]
			if math.Abs(f2-f1) < histMatchEpsilon || f2 > f1 {
				break
			}
		}
		if k == 256 {
			// Source mass exhausted: keep the last level.
			k = last
		}
		lut[j] = byte(k)
		last = k
	}
	return lut
}

func checkTransferArgs(source, target, mask *imgbuf.Buffer) error {
	if source.Width() != target.Width() || source.Height() != target.Height() ||
		mask.Width() < source.Width() || mask.Height() < source.Height() {
		return fmt.Errorf("color transfer: size mismatch source %dx%d target %dx%d mask %dx%d",
			source.Width(), source.Height(), target.Width(), target.Height(), mask.Width(), mask.Height())
	}
	if source.Channels() != target.Channels() || source.Channels() < colorChannels {
		return fmt.Errorf("color transfer: need matching colour buffers, got %d and %d channels",
			source.Channels(), target.Channels())
	}
	return nil
}
