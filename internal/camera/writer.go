package camera

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/dudu/faceblend/internal/imgbuf"
)

// DefaultCodec is the fourcc used for written video
const DefaultCodec = "mp4v"

// Writer encodes RGB or RGBA buffers into a video file
type Writer struct {
	video  *gocv.VideoWriter
	bgr    gocv.Mat
	width  int
	height int
	frames int
}

// NewWriter creates a video file of the given size
func NewWriter(path, codec string, fps float64, width, height int) (*Writer, error) {
	if codec == "" {
		codec = DefaultCodec
	}
	if fps <= 0 {
		fps = 30
	}
	video, err := gocv.VideoWriterFile(path, codec, fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create video %s: %w", path, err)
	}
	return &Writer{video: video, bgr: gocv.NewMat(), width: width, height: height}, nil
}

// Write appends one frame
func (w *Writer) Write(frame *imgbuf.Buffer) error {
	if frame.Width() != w.width || frame.Height() != w.height {
		return fmt.Errorf("frame %dx%d does not match video %dx%d",
			frame.Width(), frame.Height(), w.width, w.height)
	}
	code := gocv.ColorRGBToBGR
	switch frame.Channels() {
	case 3:
	case 4:
		code = gocv.ColorRGBAToBGR
	default:
		return fmt.Errorf("cannot write a %d channel frame", frame.Channels())
	}

	mat := frame.Mat()
	defer mat.Close()
	gocv.CvtColor(mat, &w.bgr, code)
	if err := w.video.Write(w.bgr); err != nil {
		return fmt.Errorf("failed to write frame %d: %w", w.frames, err)
	}
	w.frames++
	return nil
}

// Frames returns the number of frames written
func (w *Writer) Frames() int {
	return w.frames
}

// Close finishes the file
func (w *Writer) Close() error {
	w.bgr.Close()
	return w.video.Close()
}
