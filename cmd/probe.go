package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/videowall/wlvideo/internal/probe"
)

// CreateProbeCmd creates the probe command.
func CreateProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <video.mp4>",
		Short: "Inspect a video container without playing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			info, err := probe.File(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("path:       %s\n", info.Path)
			fmt.Printf("codec:      %s\n", info.Codec)
			fmt.Printf("resolution: %dx%d\n", info.Width, info.Height)
			fmt.Printf("frames:     %d\n", info.FrameCount)
			fmt.Printf("fps:        %.3f\n", info.FrameRate)
			fmt.Printf("duration:   %s\n", info.Duration)
			return nil
		},
	}
}
