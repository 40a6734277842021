package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dudu/faceblend/internal/imgbuf"
	"github.com/dudu/faceblend/internal/landmark"
	"github.com/dudu/faceblend/internal/pipeline"
)

var (
	swapLandmarks string
	swapOutput    string
	swapAlpha     float64
	swapFrame     int
)

var swapCmd = &cobra.Command{
	Use:   "swap IMAGE",
	Short: "Swap faces 0<->1, 2<->3, ... inside one image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runSwap(args[0], globalOpts)
	},
}

func init() {
	swapCmd.Flags().StringVarP(&swapLandmarks, "landmarks", "l", "", "Landmark file (json, jsonl or msgpack)")
	swapCmd.Flags().StringVarP(&swapOutput, "out", "o", "swapped.png", "Output image")
	swapCmd.Flags().Float64VarP(&swapAlpha, "alpha", "a", 1, "Blend weight of the pasted faces")
	swapCmd.Flags().IntVar(&swapFrame, "frame", 0, "Landmark frame to use")

	swapCmd.MarkFlagRequired("landmarks")
	rootCmd.AddCommand(swapCmd)
}

func runSwap(path string, opts Options) error {
	frame, err := imgbuf.Open(path)
	if err != nil {
		return err
	}
	defer frame.Close()
	faces, err := loadFaces(swapLandmarks, swapFrame)
	if err != nil {
		return err
	}
	if len(faces) < 2 {
		return fmt.Errorf("need at least two faces, %s has %d", swapLandmarks, len(faces))
	}

	session, err := newSession(opts)
	if err != nil {
		return err
	}
	defer session.Close()

	n, err := swapPairs(session, frame, faces, swapAlpha)
	if err != nil {
		fmt.Printf("Warning: %v\n", err)
	}
	if n == 0 {
		return fmt.Errorf("no face pair could be swapped")
	}
	if err := imgbuf.Save(frame, swapOutput); err != nil {
		return err
	}
	fmt.Printf("Swapped %d face pair(s) in %s -> %s\n", n, path, swapOutput)
	return nil
}

// swapPairs swaps consecutive pairs of faces and reports how many succeeded
func swapPairs(session *pipeline.Session, frame *imgbuf.Buffer, faces []landmark.Set, alpha float64) (int, error) {
	var errs []error
	n := 0
	for i := 0; i+1 < len(faces); i += 2 {
		if err := session.SwapFaces(frame, faces[i], faces[i+1], alpha); err != nil {
			errs = append(errs, fmt.Errorf("pair %d/%d: %w", i, i+1, err))
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}
