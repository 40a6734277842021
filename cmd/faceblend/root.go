package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dudu/faceblend/internal/cvbridge"
	"github.com/dudu/faceblend/internal/imgbuf"
	"github.com/dudu/faceblend/internal/landmark"
	"github.com/dudu/faceblend/internal/pipeline"
)

// Version is the application version.
const Version = "0.1.0"

// Options holds the settings shared by every subcommand
type Options struct {
	Scheme          string
	Seamless        bool
	ColorCorrection bool
	Transfer        string
	DebugOverlay    bool
	Verbose         bool
}

var globalOpts Options

var rootCmd = &cobra.Command{
	Use:     "faceblend",
	Short:   "Landmark driven face swapping and replacement",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := landmark.ParseScheme(globalOpts.Scheme); err != nil {
			return err
		}
		switch globalOpts.Transfer {
		case "histogram", "lab", "ycrcb":
			return nil
		}
		return fmt.Errorf("invalid transfer: %s (use histogram, lab or ycrcb)", globalOpts.Transfer)
	},
}

// Execute runs the root command until it finishes or the process is
// interrupted
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	defaults := pipeline.DefaultOptions()
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&globalOpts.Scheme, "scheme", defaults.Scheme.String(), "Landmark scheme: 9, 68 or 76")
	pf.BoolVar(&globalOpts.Seamless, "seamless", defaults.UseSeamlessClone, "Composite pairs with Poisson blending")
	pf.BoolVar(&globalOpts.ColorCorrection, "color-correction", defaults.EnableColorCorrection, "Match pasted face colours to the covered face")
	pf.StringVar(&globalOpts.Transfer, "transfer", "histogram", "Colour transfer: histogram, lab or ycrcb")
	pf.BoolVar(&globalOpts.DebugOverlay, "debug-overlay", defaults.DrawDebugOverlay, "Draw contours, keypoints and regions")
	pf.BoolVarP(&globalOpts.Verbose, "verbose", "v", false, "Log per call diagnostics")
}

// newSession builds a pipeline session from the global flags
func newSession(opts Options) (*pipeline.Session, error) {
	scheme, err := landmark.ParseScheme(opts.Scheme)
	if err != nil {
		return nil, err
	}
	po := pipeline.DefaultOptions()
	po.Scheme = scheme
	po.UseSeamlessClone = opts.Seamless
	po.EnableColorCorrection = opts.ColorCorrection
	po.DrawDebugOverlay = opts.DebugOverlay
	if opts.Seamless {
		po.Cloner = cvbridge.NewSeamlessCloner()
	}
	switch opts.Transfer {
	case "lab":
		po.ColorTransfer = cvbridge.NewLabTransfer()
	case "ycrcb":
		po.ColorTransfer = cvbridge.NewYCrCbTransfer()
	}
	if opts.Verbose {
		po.Logger = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
	}

	s, err := pipeline.New(po)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return s, nil
}

// loadFaces returns the faces of frame n of a landmark file
func loadFaces(path string, n int) ([]landmark.Set, error) {
	frames, err := landmark.Load(path)
	if err != nil {
		return nil, err
	}
	fr, ok := landmark.Index(frames)[n]
	if !ok {
		return nil, fmt.Errorf("%s has no frame %d", path, n)
	}
	return fr.Faces, nil
}

// withChannels returns buf converted to the given channel count. Buffers that
// already match are returned as they are.
func withChannels(buf *imgbuf.Buffer, channels int) *imgbuf.Buffer {
	if buf.Channels() == channels {
		return buf
	}
	out := imgbuf.New(buf.Width(), buf.Height(), channels)
	if channels == 4 {
		out.FillColor(0, 0, 0, 255)
	}
	imgbuf.CopyChannels(out, buf, 3)
	return out
}
