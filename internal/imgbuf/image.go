package imgbuf

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// FromImage copies img into a new 4-channel RGBA buffer (non-premultiplied)
func FromImage(img image.Image) *Buffer {
	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Rect.Min != (image.Point{}) {
		nrgba = imaging.Clone(img)
	}
	w, h := nrgba.Rect.Dx(), nrgba.Rect.Dy()
	b := New(w, h, 4)
	for y := 0; y < h; y++ {
		copy(b.Row(y), nrgba.Pix[y*nrgba.Stride:y*nrgba.Stride+w*4])
	}
	return b
}

// ToImage copies b into a new NRGBA image. Three channel buffers are treated
// as RGB with opaque alpha, single channel buffers as gray.
func ToImage(b *Buffer) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, b.width, b.height))
	for y := 0; y < b.height; y++ {
		src := b.Row(y)
		dst := out.Pix[y*out.Stride : y*out.Stride+b.width*4]
		for x := 0; x < b.width; x++ {
			s := src[x*b.channels:]
			d := dst[x*4 : x*4+4]
			switch b.channels {
			case 1:
				d[0], d[1], d[2], d[3] = s[0], s[0], s[0], 255
			case 3:
				d[0], d[1], d[2], d[3] = s[0], s[1], s[2], 255
			default:
				copy(d, s[:4])
			}
		}
	}
	return out
}

// Open decodes an image file into a 4-channel RGBA buffer. The caller must
// close it.
func Open(path string) (*Buffer, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	return FromImage(img), nil
}

// Save encodes b to path; the format follows the file extension
func Save(b *Buffer, path string) error {
	if err := imaging.Save(ToImage(b), path); err != nil {
		return fmt.Errorf("failed to save image %s: %w", path, err)
	}
	return nil
}
