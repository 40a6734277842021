package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dudu/faceblend/internal/imgbuf"
	"github.com/dudu/faceblend/internal/landmark"
	"github.com/dudu/faceblend/internal/pipeline"
)

var (
	changeLandmarks       string
	changeSource          string
	changeSourceLandmarks string
	changeOutput          string
	changeAlpha           float64
	changeFrame           int
)

var changeCmd = &cobra.Command{
	Use:   "change TARGET",
	Short: "Stamp one source face onto every face of a target image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runChange(args[0], globalOpts)
	},
}

func init() {
	changeCmd.Flags().StringVarP(&changeLandmarks, "landmarks", "l", "", "Landmark file of the target")
	changeCmd.Flags().StringVarP(&changeSource, "source", "s", "", "Source face image")
	changeCmd.Flags().StringVar(&changeSourceLandmarks, "source-landmarks", "", "Landmark file of the source image")
	changeCmd.Flags().StringVarP(&changeOutput, "out", "o", "changed.png", "Output image")
	changeCmd.Flags().Float64VarP(&changeAlpha, "alpha", "a", 1, "Blend weight of the pasted faces")
	changeCmd.Flags().IntVar(&changeFrame, "frame", 0, "Landmark frame of the target to use")

	changeCmd.MarkFlagRequired("landmarks")
	changeCmd.MarkFlagRequired("source")
	changeCmd.MarkFlagRequired("source-landmarks")
	rootCmd.AddCommand(changeCmd)
}

// sourceFace is the face stamped by change and replay --mode change
type sourceFace struct {
	image     *imgbuf.Buffer
	landmarks landmark.Set
}

func loadSourceFace(imagePath, landmarkPath string) (sourceFace, error) {
	img, err := imgbuf.Open(imagePath)
	if err != nil {
		return sourceFace{}, err
	}
	faces, err := loadFaces(landmarkPath, 0)
	if err == nil && len(faces) == 0 {
		err = fmt.Errorf("%s has no face", landmarkPath)
	}
	if err != nil {
		img.Close()
		return sourceFace{}, err
	}
	return sourceFace{image: img, landmarks: faces[0]}, nil
}

func runChange(path string, opts Options) error {
	target, err := imgbuf.Open(path)
	if err != nil {
		return err
	}
	defer target.Close()
	faces, err := loadFaces(changeLandmarks, changeFrame)
	if err != nil {
		return err
	}
	src, err := loadSourceFace(changeSource, changeSourceLandmarks)
	if err != nil {
		return err
	}
	defer src.image.Close()

	session, err := newSession(opts)
	if err != nil {
		return err
	}
	defer session.Close()

	n, err := changeFaces(session, target, src, faces, changeAlpha)
	if err != nil {
		fmt.Printf("Warning: %v\n", err)
	}
	if err := imgbuf.Save(target, changeOutput); err != nil {
		return err
	}
	fmt.Printf("Changed %d of %d face(s) in %s -> %s\n", n, len(faces), path, changeOutput)
	return nil
}

// changeFaces stamps src onto every face of target in one commit and reports
// how many faces were composited
func changeFaces(session *pipeline.Session, target *imgbuf.Buffer, src sourceFace, faces []landmark.Set, alpha float64) (int, error) {
	if err := session.SetTargetImage(target); err != nil {
		return 0, err
	}
	source := withChannels(src.image, target.Channels())
	if source != src.image {
		defer source.Close()
	}
	for _, face := range faces {
		if err := session.AddFaceChangeData(source, src.landmarks, face, alpha); err != nil {
			session.ClearFaceChangeData()
			return 0, err
		}
	}
	err := session.ChangeFace()
	return session.Committed(), err
}
