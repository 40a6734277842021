package swapper

import (
	"fmt"
	"image"

	"github.com/dudu/faceblend/internal/imgbuf"
)

// SeamlessCloner pastes the masked part of src into dst with gradient domain
// blending and writes the result to out. center is the position in dst where
// the centre of the mask's bounding box lands. src and dst are 3-channel and
// equal in size; out has the shape of dst.
type SeamlessCloner interface {
	Clone(src, dst, mask *imgbuf.Buffer, center image.Point, out *imgbuf.Buffer) error
}

// AlphaBlend writes fg over bg weighted by alpha into dst:
//
//	dst = ((255-a)*bg + a*fg) >> 8
//
// with a = 0 giving bg and a = 255 giving fg exactly. Only the three colour
// channels are blended; a fourth channel in dst is left as it was. dst may
// alias bg.
func AlphaBlend(fg, bg, alpha, dst *imgbuf.Buffer) error {
	w, h := dst.Width(), dst.Height()
	if fg.Width() < w || fg.Height() < h || bg.Width() < w || bg.Height() < h ||
		alpha.Width() < w || alpha.Height() < h {
		return fmt.Errorf("alpha blend: inputs smaller than %dx%d output", w, h)
	}
	if fg.Channels() < colorChannels || bg.Channels() < colorChannels || dst.Channels() < colorChannels {
		return fmt.Errorf("alpha blend: need colour buffers, got %d/%d/%d channels",
			fg.Channels(), bg.Channels(), dst.Channels())
	}

	fc, bc, dc := fg.Channels(), bg.Channels(), dst.Channels()
	for y := 0; y < h; y++ {
		f, b, m, d := fg.Row(y), bg.Row(y), alpha.Row(y), dst.Row(y)
		for x := 0; x < w; x++ {
			a := uint32(m[x*alpha.Channels()])
			fi, bi, di := x*fc, x*bc, x*dc
			switch a {
			case 0:
				d[di], d[di+1], d[di+2] = b[bi], b[bi+1], b[bi+2]
			case 255:
				d[di], d[di+1], d[di+2] = f[fi], f[fi+1], f[fi+2]
			default:
				na := 255 - a
				for c := 0; c < colorChannels; c++ {
					d[di+c] = byte((na*uint32(b[bi+c]) + a*uint32(f[fi+c])) >> 8)
				}
			}
		}
	}
	return nil
}
