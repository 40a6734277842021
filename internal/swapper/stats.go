package swapper

import (
	"gocv.io/x/gocv"

	"github.com/dudu/faceblend/internal/imgbuf"
)

// minStdDev keeps the statistics transfer finite on flat regions
const minStdDev = 1e-6

// ChannelStats holds the per channel mean and standard deviation of the
// masked pixels of a buffer
type ChannelStats struct {
	Mean  [colorChannels]float64
	Std   [colorChannels]float64
	Count int
}

// MaskedStats measures the first three channels of buf where mask is set
func MaskedStats(buf, mask *imgbuf.Buffer) ChannelStats {
	var st ChannelStats
	if buf.Empty() || mask.Empty() {
		return st
	}
	m := overlap(buf, mask)
	defer closeAll(m)
	if st.Count = gocv.CountNonZero(m[1]); st.Count == 0 {
		return st
	}

	mean := gocv.NewMat()
	defer mean.Close()
	std := gocv.NewMat()
	defer std.Close()
	gocv.MeanStdDevWithMask(m[0], &mean, &std, m[1])
	for c := 0; c < colorChannels && c < buf.Channels(); c++ {
		st.Mean[c] = mean.GetDoubleAt(c, 0)
		st.Std[c] = std.GetDoubleAt(c, 0)
	}
	return st
}

// MatchStats rewrites the masked pixels of target so that their mean and
// standard deviation follow want. have must be the statistics of target
// under the same mask. Results are rounded and saturated to [0, 255].
func MatchStats(target, mask *imgbuf.Buffer, have, want ChannelStats) {
	if target.Empty() || mask.Empty() {
		return
	}
	m := overlap(target, mask)
	defer closeAll(m)

	planes := gocv.Split(m[0])
	defer closeAll(planes)
	centred := gocv.NewMat()
	defer centred.Close()
	for c := 0; c < colorChannels && c < len(planes); c++ {
		scale := want.Std[c] / max(have.Std[c], minStdDev)
		// (v - have.Mean) * scale + want.Mean
		planes[c].ConvertToWithParams(&centred, gocv.MatTypeCV32F, 1, float32(-have.Mean[c]))
		centred.ConvertToWithParams(&planes[c], gocv.MatTypeCV8U, float32(scale), float32(want.Mean[c]))
	}

	mapped := gocv.NewMat()
	defer mapped.Close()
	gocv.Merge(planes, &mapped)
	mapped.CopyToWithMask(&m[0], m[1])
}
