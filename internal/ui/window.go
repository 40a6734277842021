package ui

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"gocv.io/x/gocv"

	"github.com/dudu/faceblend/internal/imgbuf"
	"github.com/dudu/faceblend/internal/pipeline"
)

var textColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}

// Window manages the preview display
type Window struct {
	window     *gocv.Window
	name       string
	display    gocv.Mat
	lastFrame  time.Time
	frameCount int
	fps        float64
}

// NewWindow creates a new preview window
func NewWindow(name string, width, height int) *Window {
	window := gocv.NewWindow(name)
	// Force window to appear on macOS
	window.ResizeWindow(width, height)
	window.MoveWindow(100, 100)
	return &Window{
		window:    window,
		name:      name,
		display:   gocv.NewMat(),
		lastFrame: time.Now(),
	}
}

// StatusLine formats per stage timings for the preview
func StatusLine(t pipeline.Timing) string {
	ms := func(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }
	return fmt.Sprintf("G:%.1f M:%.1f W:%.1f C:%.1f F:%.1f B:%.1f T:%.1fms",
		ms(t.Geometry), ms(t.Mask), ms(t.Warp), ms(t.Color), ms(t.Feather), ms(t.Composite), ms(t.Total))
}

// Show displays an RGB or RGBA frame with the FPS counter and a status line
func (w *Window) Show(frame *imgbuf.Buffer, status string) error {
	w.frameCount++
	now := time.Now()

	// Calculate FPS every second
	elapsed := now.Sub(w.lastFrame)
	if elapsed >= time.Second {
		w.fps = float64(w.frameCount) / elapsed.Seconds()
		w.frameCount = 0
		w.lastFrame = now
	}

	if frame.Empty() {
		return fmt.Errorf("empty frame")
	}
	mat := frame.Mat()
	defer mat.Close()
	code := gocv.ColorRGBToBGR
	if frame.Channels() == 4 {
		code = gocv.ColorRGBAToBGR
	}
	gocv.CvtColor(mat, &w.display, code)

	gocv.PutText(&w.display, fmt.Sprintf("FPS: %.1f", w.fps), image.Pt(10, 30),
		gocv.FontHersheyPlain, 2, textColor, 2)
	if status != "" {
		gocv.PutText(&w.display, status, image.Pt(10, 60),
			gocv.FontHersheyPlain, 1.5, textColor, 2)
	}

	w.window.IMShow(w.display)
	return nil
}

// WaitKey waits for key press, returns key code or -1
func (w *Window) WaitKey(delayMs int) int {
	return w.window.WaitKey(delayMs)
}

// FPS returns current frames per second
func (w *Window) FPS() float64 {
	return w.fps
}

// Close closes the window
func (w *Window) Close() error {
	w.display.Close()
	if w.window != nil {
		return w.window.Close()
	}
	return nil
}
