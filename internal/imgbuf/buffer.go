// Package imgbuf provides 8-bit interleaved pixel buffers backed by gocv Mats
// and non-owning region views into them.
//
// A Buffer returned by New owns a continuous Mat and must be closed. Region
// returns a view that shares the owner's memory: writes through the view are
// visible in the owner and in every other view of the same allocation. Mat
// hands OpenCV a header over exactly the pixels of a buffer or view, so gocv
// calls and the byte accessors below work on the same memory.
package imgbuf

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/dudu/faceblend/internal/geom"
)

// Buffer is an interleaved 8-bit image with 1, 3 or 4 channels.
type Buffer struct {
	mat      *gocv.Mat // backing Mat, set on the owning buffer only
	owner    *Buffer   // nil for the owning buffer
	pix      []byte    // starts at this view's (0,0)
	stride   int       // bytes between the starts of two rows
	width    int
	height   int
	channels int
	offset   image.Point // position inside the owning allocation
}

// MatType returns the 8-bit Mat type for a channel count
func MatType(channels int) gocv.MatType {
	switch channels {
	case 1:
		return gocv.MatTypeCV8UC1
	case 3:
		return gocv.MatTypeCV8UC3
	default:
		return gocv.MatTypeCV8UC4
	}
}

// New allocates a zeroed width x height buffer
func New(width, height, channels int) *Buffer {
	if width < 0 || height < 0 {
		panic(fmt.Sprintf("imgbuf: negative size %dx%d", width, height))
	}
	if channels < 1 || channels > 4 || channels == 2 {
		panic(fmt.Sprintf("imgbuf: unsupported channel count %d", channels))
	}
	b := &Buffer{
		stride:   width * channels,
		width:    width,
		height:   height,
		channels: channels,
	}
	if width == 0 || height == 0 {
		return b
	}
	mat := gocv.NewMatWithSize(height, width, MatType(channels))
	pix, err := mat.DataPtrUint8()
	if err != nil {
		mat.Close()
		panic(fmt.Sprintf("imgbuf: failed to map %dx%dx%d mat: %v", width, height, channels, err))
	}
	clear(pix)
	b.mat = &mat
	b.pix = pix
	return b
}

// FromMat returns an owning buffer holding a copy of an 8-bit Mat
func FromMat(mat gocv.Mat) (*Buffer, error) {
	if mat.Empty() {
		return nil, fmt.Errorf("empty mat")
	}
	ch := mat.Channels()
	if ch == 2 || ch > 4 || mat.Type() != MatType(ch) {
		return nil, fmt.Errorf("unsupported mat type %v", mat.Type())
	}
	b := New(mat.Cols(), mat.Rows(), ch)
	if err := b.CopyFromMat(mat); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

// Close releases the backing Mat of an owning buffer. Closing a view does
// nothing; views of a closed buffer must not be used.
func (b *Buffer) Close() error {
	if b == nil || b.owner != nil || b.mat == nil {
		return nil
	}
	err := b.mat.Close()
	b.mat = nil
	b.pix = nil
	return err
}

// root returns the buffer that owns the memory of b
func (b *Buffer) root() *Buffer {
	if b.owner != nil {
		return b.owner
	}
	return b
}

// Mat returns a Mat header over the pixels of b. OpenCV writes through the
// header land in b. The caller must close the header. An empty buffer gives
// an empty Mat.
func (b *Buffer) Mat() gocv.Mat {
	root := b.root()
	if b.Empty() || root.mat == nil {
		return gocv.NewMat()
	}
	return root.mat.Region(image.Rect(b.offset.X, b.offset.Y, b.offset.X+b.width, b.offset.Y+b.height))
}

// CopyFromMat copies an 8-bit Mat of the same shape into b
func (b *Buffer) CopyFromMat(mat gocv.Mat) error {
	if mat.Rows() != b.height || mat.Cols() != b.width || mat.Channels() != b.channels {
		return fmt.Errorf("mat %dx%dx%d does not match buffer %dx%dx%d",
			mat.Cols(), mat.Rows(), mat.Channels(), b.width, b.height, b.channels)
	}
	if b.Empty() {
		return nil
	}
	dst := b.Mat()
	defer dst.Close()
	mat.CopyTo(&dst)
	return nil
}

// Width returns the width in pixels
func (b *Buffer) Width() int { return b.width }

// Height returns the height in pixels
func (b *Buffer) Height() int { return b.height }

// Channels returns the number of interleaved channels
func (b *Buffer) Channels() int { return b.channels }

// Stride returns the distance in bytes between two rows
func (b *Buffer) Stride() int { return b.stride }

// Offset returns the position of this view inside its owning allocation
func (b *Buffer) Offset() image.Point { return b.offset }

// Bounds returns the local rect (0, 0, width, height)
func (b *Buffer) Bounds() geom.Rect {
	return geom.Rect{Width: b.width, Height: b.height}
}

// Owner returns the buffer that owns the memory of b, which is b itself for
// an owning buffer. b covers Owner().Region(b.Extent()).
func (b *Buffer) Owner() *Buffer {
	return b.root()
}

// Extent returns the rect b covers inside its owner
func (b *Buffer) Extent() geom.Rect {
	return geom.Rect{X: b.offset.X, Y: b.offset.Y, Width: b.width, Height: b.height}
}

// Empty reports whether the buffer has no pixels
func (b *Buffer) Empty() bool {
	return b == nil || b.width == 0 || b.height == 0
}

// SameShape reports whether o has the same size and channel count
func (b *Buffer) SameShape(o *Buffer) bool {
	return o != nil && b.width == o.width && b.height == o.height && b.channels == o.channels
}

// Row returns the bytes of row y (width*channels long)
func (b *Buffer) Row(y int) []byte {
	start := y * b.stride
	return b.pix[start : start+b.width*b.channels : start+b.width*b.channels]
}

// Pixel returns the channel bytes of pixel (x, y)
func (b *Buffer) Pixel(x, y int) []byte {
	i := y*b.stride + x*b.channels
	return b.pix[i : i+b.channels : i+b.channels]
}

// At returns channel c of pixel (x, y)
func (b *Buffer) At(x, y, c int) byte {
	return b.pix[y*b.stride+x*b.channels+c]
}

// Set writes channel c of pixel (x, y)
func (b *Buffer) Set(x, y, c int, v byte) {
	b.pix[y*b.stride+x*b.channels+c] = v
}

// Region returns a view of r (in local coordinates) that aliases b's memory.
// r is clipped to the buffer bounds; a fully outside r gives an empty view.
func (b *Buffer) Region(r geom.Rect) *Buffer {
	r = geom.Intersect(r, b.Bounds())
	view := &Buffer{
		owner:    b.root(),
		stride:   b.stride,
		channels: b.channels,
		offset:   b.offset.Add(image.Pt(r.X, r.Y)),
	}
	if r.Empty() {
		return view
	}
	start := r.Y*b.stride + r.X*b.channels
	end := start + (r.Height-1)*b.stride + r.Width*b.channels
	view.pix = b.pix[start:end:end]
	view.width = r.Width
	view.height = r.Height
	return view
}

// setTo fills every pixel of b with s
func (b *Buffer) setTo(s gocv.Scalar) {
	if b.Empty() {
		return
	}
	m := b.Mat()
	defer m.Close()
	m.SetTo(s)
}

// Fill sets every channel of every pixel to v
func (b *Buffer) Fill(v byte) {
	f := float64(v)
	b.setTo(gocv.NewScalar(f, f, f, f))
}

// Zero clears the buffer
func (b *Buffer) Zero() {
	b.setTo(gocv.NewScalar(0, 0, 0, 0))
}

// FillColor sets every pixel to the given channel values. Channels without a
// value are set to zero.
func (b *Buffer) FillColor(c ...byte) {
	var v [4]float64
	for i := 0; i < len(c) && i < 4; i++ {
		v[i] = float64(c[i])
	}
	b.setTo(gocv.NewScalar(v[0], v[1], v[2], v[3]))
}

// CopyTo copies b into dst where mask is non-zero. A nil mask copies every
// pixel. Only the overlapping extent of the buffers is touched; mask must be
// single channel and at least that large. When the channel counts differ the
// first min(b, dst) channels are copied and the rest of dst is kept.
func (b *Buffer) CopyTo(dst *Buffer, mask *Buffer) {
	r := geom.Rect{Width: min(b.width, dst.width), Height: min(b.height, dst.height)}
	if r.Empty() {
		return
	}
	if b.channels != dst.channels {
		copyChannels(dst.Region(r), b.Region(r), mask, min(b.channels, dst.channels))
		return
	}
	src := b.Region(r).Mat()
	defer src.Close()
	out := dst.Region(r).Mat()
	defer out.Close()
	if mask == nil {
		src.CopyTo(&out)
		return
	}
	m := mask.Region(r).Mat()
	defer m.Close()
	src.CopyToWithMask(&out, m)
}

// CopyChannels copies the first n channels of src into dst pixel by pixel,
// leaving the remaining channels of dst untouched. It converts between 3 and
// 4 channel buffers without disturbing an alpha channel.
func CopyChannels(dst, src *Buffer, n int) {
	copyChannels(dst, src, nil, min(n, src.channels, dst.channels))
}

func copyChannels(dst, src, mask *Buffer, n int) {
	w := min(src.width, dst.width)
	h := min(src.height, dst.height)
	for y := 0; y < h; y++ {
		s := src.Row(y)
		d := dst.Row(y)
		var m []byte
		if mask != nil {
			m = mask.Row(y)
		}
		for x := 0; x < w; x++ {
			if m != nil && m[x*mask.channels] == 0 {
				continue
			}
			copy(d[x*dst.channels:x*dst.channels+n], s[x*src.channels:x*src.channels+n])
		}
	}
}

// Clone returns a compact, owning copy of b
func (b *Buffer) Clone() *Buffer {
	out := New(b.width, b.height, b.channels)
	b.CopyTo(out, nil)
	return out
}

// Equal reports whether o has the same shape and pixel values
func (b *Buffer) Equal(o *Buffer) bool {
	if !b.SameShape(o) {
		return false
	}
	for y := 0; y < b.height; y++ {
		if string(b.Row(y)) != string(o.Row(y)) {
			return false
		}
	}
	return true
}

// Bytes returns the pixels packed row after row without padding. For a
// compact buffer this is the backing memory itself.
func (b *Buffer) Bytes() []byte {
	rowLen := b.width * b.channels
	if b.stride == rowLen {
		return b.pix[:b.height*rowLen]
	}
	out := make([]byte, 0, b.height*rowLen)
	for y := 0; y < b.height; y++ {
		out = append(out, b.Row(y)...)
	}
	return out
}

// CountNonZero counts pixels whose channel c is not zero
func (b *Buffer) CountNonZero(c int) int {
	if b.Empty() {
		return 0
	}
	if b.channels == 1 {
		m := b.Mat()
		defer m.Close()
		return gocv.CountNonZero(m)
	}
	n := 0
	for y := 0; y < b.height; y++ {
		row := b.Row(y)
		for i := c; i < len(row); i += b.channels {
			if row[i] != 0 {
				n++
			}
		}
	}
	return n
}
