package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/dudu/faceblend/internal/camera"
	"github.com/dudu/faceblend/internal/landmark"
	"github.com/dudu/faceblend/internal/ui"
)

var (
	replayLandmarks       string
	replayOutput          string
	replayMode            string
	replaySource          string
	replaySourceLandmarks string
	replayAlpha           float64
	replayPreview         bool
	replayCodec           string
)

var replayCmd = &cobra.Command{
	Use:   "replay VIDEO",
	Short: "Process every frame of a video with recorded landmarks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runReplay(cmd.Context(), args[0], globalOpts)
	},
}

func init() {
	replayCmd.Flags().StringVarP(&replayLandmarks, "landmarks", "l", "", "Per frame landmark file")
	replayCmd.Flags().StringVarP(&replayOutput, "out", "o", "replay.mp4", "Output video")
	replayCmd.Flags().StringVarP(&replayMode, "mode", "m", "swap", "Processing mode: swap or change")
	replayCmd.Flags().StringVarP(&replaySource, "source", "s", "", "Source face image (change mode)")
	replayCmd.Flags().StringVar(&replaySourceLandmarks, "source-landmarks", "", "Landmark file of the source image (change mode)")
	replayCmd.Flags().Float64VarP(&replayAlpha, "alpha", "a", 1, "Blend weight of the pasted faces")
	replayCmd.Flags().BoolVarP(&replayPreview, "preview", "p", false, "Show preview window")
	replayCmd.Flags().StringVar(&replayCodec, "codec", camera.DefaultCodec, "Output fourcc")

	replayCmd.MarkFlagRequired("landmarks")
	rootCmd.AddCommand(replayCmd)
}

func validateReplayFlags(input string) error {
	switch replayMode {
	case "swap":
	case "change":
		if replaySource == "" || replaySourceLandmarks == "" {
			return fmt.Errorf("change mode needs --source and --source-landmarks")
		}
	default:
		return fmt.Errorf("invalid mode: %s (use swap or change)", replayMode)
	}
	inAbs, _ := filepath.Abs(input)
	outAbs, _ := filepath.Abs(replayOutput)
	if inAbs == outAbs {
		return fmt.Errorf("input and output paths must be different")
	}
	return nil
}

func runReplay(ctx context.Context, path string, opts Options) error {
	if err := validateReplayFlags(path); err != nil {
		return err
	}

	frames, err := landmark.Load(replayLandmarks)
	if err != nil {
		return err
	}
	index := landmark.Index(frames)

	var src sourceFace
	if replayMode == "change" {
		if src, err = loadSourceFace(replaySource, replaySourceLandmarks); err != nil {
			return err
		}
		// Video frames are RGB
		if rgb := withChannels(src.image, 3); rgb != src.image {
			src.image.Close()
			src.image = rgb
		}
		defer src.image.Close()
	}

	session, err := newSession(opts)
	if err != nil {
		return err
	}
	defer session.Close()

	video, err := camera.OpenFile(path)
	if err != nil {
		return err
	}
	defer video.Close()
	fmt.Printf("Opened %s: %dx%d @ %.1f fps\n", path, video.Width(), video.Height(), video.FPS())

	writer, err := camera.NewWriter(replayOutput, replayCodec, video.FPS(), video.Width(), video.Height())
	if err != nil {
		return err
	}
	defer writer.Close()

	var window *ui.Window
	if replayPreview {
		window = ui.NewWindow("faceblend", video.Width(), video.Height())
		defer window.Close()
	}

	total := video.FrameCount()
	if total == 0 {
		total = -1
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Replaying"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	processed, failed := 0, 0
	for n := 0; ; n++ {
		if ctx.Err() != nil {
			fmt.Println("\nShutting down...")
			break
		}

		frame, err := video.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		if fr, ok := index[n]; ok && len(fr.Faces) > 0 {
			var perr error
			if replayMode == "change" {
				_, perr = changeFaces(session, frame, src, fr.Faces, replayAlpha)
			} else {
				_, perr = swapPairs(session, frame, fr.Faces, replayAlpha)
			}
			processed++
			if perr != nil {
				failed++
				if opts.Verbose {
					fmt.Fprintf(os.Stderr, "\nframe %d: %v\n", n, perr)
				}
			}
		}

		if err := writer.Write(frame); err != nil {
			return err
		}
		bar.Add(1)

		if window != nil {
			if err := window.Show(frame, ui.StatusLine(session.LastTiming())); err != nil {
				return err
			}
			key := window.WaitKey(1)
			if key == 'q' || key == 27 { // 'q' or ESC
				fmt.Println("\nQuitting...")
				break
			}
		}
	}
	bar.Finish()

	fmt.Printf("\nWrote %d frames to %s (%d with faces, %d with errors)\n",
		writer.Frames(), replayOutput, processed, failed)
	return nil
}
