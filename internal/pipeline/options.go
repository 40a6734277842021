package pipeline

import (
	"errors"
	"log"
	"time"

	"github.com/dudu/faceblend/internal/imgbuf"
	"github.com/dudu/faceblend/internal/landmark"
	"github.com/dudu/faceblend/internal/swapper"
)

var (
	// ErrEmptyRegion is returned when the faces do not overlap the frame.
	ErrEmptyRegion = errors.New("face region lies outside the frame")
	// ErrNoTarget is returned by ChangeFace before SetTargetImage was called.
	ErrNoTarget = errors.New("no target image set")
	// ErrClosed is returned by every call on a closed session.
	ErrClosed = errors.New("session closed")
	// ErrNoCloner is returned by New when seamless cloning is requested
	// without a cloner.
	ErrNoCloner = errors.New("seamless clone requested without a cloner")
	// ErrChannelMismatch is returned when a source frame and the target
	// frame have different channel counts.
	ErrChannelMismatch = errors.New("channel count mismatch")
)

// Options configures a Session
type Options struct {
	// Scheme is the landmark layout of every set passed to the session.
	Scheme landmark.Scheme
	// UseSeamlessClone composites pairs with Cloner instead of alpha
	// blending. Batch mode always alpha blends.
	UseSeamlessClone bool
	// EnableColorCorrection runs ColorTransfer on every pasted face.
	EnableColorCorrection bool
	// DrawDebugOverlay marks contours, keypoints and regions on the output.
	DrawDebugOverlay bool
	// ColorTransfer defaults to histogram matching. The session closes it
	// on Close when it implements io.Closer.
	ColorTransfer swapper.ColorTransfer
	// Cloner is required when UseSeamlessClone is set.
	Cloner swapper.SeamlessCloner
	// Logger receives diagnostics; nil keeps the session silent.
	Logger *log.Logger
}

// DefaultOptions returns the settings used by the command line tool
func DefaultOptions() Options {
	return Options{
		Scheme:                landmark.Dlib68,
		EnableColorCorrection: true,
	}
}

// Timing holds per stage durations of the last call
type Timing struct {
	Geometry  time.Duration
	Mask      time.Duration
	Warp      time.Duration
	Color     time.Duration
	Feather   time.Duration
	Composite time.Duration
	Total     time.Duration
}

// FaceChange is one queued batch operation: the face described by
// SourceLandmarks in Source is stamped onto TargetLandmarks in the target
// image.
type FaceChange struct {
	Source          *imgbuf.Buffer
	SourceLandmarks landmark.Set
	TargetLandmarks landmark.Set
	Alpha           float64
}
