package camera

import (
	"fmt"
	"io"
	"sync"

	"gocv.io/x/gocv"

	"github.com/dudu/faceblend/internal/imgbuf"
)

// Capture reads frames from a camera device or a video file and hands them
// out as 3-channel RGB buffers
type Capture struct {
	source     *gocv.VideoCapture
	name       string
	raw        gocv.Mat
	frame      *imgbuf.Buffer
	width      int
	height     int
	fps        float64
	frameCount int
	mu         sync.Mutex
}

// OpenDevice opens a camera device at 720p
func OpenDevice(deviceID int, targetFPS int) (*Capture, error) {
	return OpenDeviceWithResolution(deviceID, targetFPS, 1280, 720)
}

// OpenDeviceWithResolution opens a camera device and requests a resolution
func OpenDeviceWithResolution(deviceID int, targetFPS int, width, height int) (*Capture, error) {
	webcam, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", deviceID, err)
	}

	webcam.Set(gocv.VideoCaptureFrameWidth, float64(width))
	webcam.Set(gocv.VideoCaptureFrameHeight, float64(height))
	webcam.Set(gocv.VideoCaptureFPS, float64(targetFPS))

	// The camera may not support the requested resolution
	return newCapture(webcam, fmt.Sprintf("camera %d", deviceID)), nil
}

// OpenFile opens a video file
func OpenFile(path string) (*Capture, error) {
	video, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video %s: %w", path, err)
	}
	if !video.IsOpened() {
		video.Close()
		return nil, fmt.Errorf("failed to open video %s", path)
	}
	return newCapture(video, path), nil
}

func newCapture(source *gocv.VideoCapture, name string) *Capture {
	return &Capture{
		source:     source,
		name:       name,
		raw:        gocv.NewMat(),
		width:      int(source.Get(gocv.VideoCaptureFrameWidth)),
		height:     int(source.Get(gocv.VideoCaptureFrameHeight)),
		fps:        source.Get(gocv.VideoCaptureFPS),
		frameCount: int(source.Get(gocv.VideoCaptureFrameCount)),
	}
}

// Read returns the next frame. The returned buffer is reused by the next
// call. io.EOF marks the end of a file or a closed capture.
func (c *Capture) Read() (*imgbuf.Buffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.source == nil {
		return nil, io.EOF
	}
	if !c.source.Read(&c.raw) || c.raw.Empty() {
		return nil, io.EOF
	}
	if c.raw.Channels() != 3 {
		return nil, fmt.Errorf("%s: unexpected %d channel frame", c.name, c.raw.Channels())
	}

	if c.frame == nil || c.frame.Width() != c.raw.Cols() || c.frame.Height() != c.raw.Rows() {
		c.frame.Close()
		c.frame = imgbuf.New(c.raw.Cols(), c.raw.Rows(), 3)
	}
	// Convert straight into the frame's memory
	rgb := c.frame.Mat()
	defer rgb.Close()
	gocv.CvtColor(c.raw, &rgb, gocv.ColorBGRToRGB)
	return c.frame, nil
}

// Width returns frame width
func (c *Capture) Width() int {
	return c.width
}

// Height returns frame height
func (c *Capture) Height() int {
	return c.height
}

// FPS returns the frame rate reported by the source
func (c *Capture) FPS() float64 {
	return c.fps
}

// FrameCount returns the number of frames of a video file, 0 when unknown
func (c *Capture) FrameCount() int {
	if c.frameCount < 0 {
		return 0
	}
	return c.frameCount
}

// Close releases the source
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.source == nil {
		return nil
	}
	err := c.source.Close()
	c.source = nil
	c.raw.Close()
	c.frame.Close()
	c.frame = nil
	return err
}
