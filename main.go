// wlvideo renders looping video wallpaper on Wayland outputs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/videowall/wlvideo/cmd"
	"github.com/videowall/wlvideo/internal/version"
)

func main() {
	info := version.Get()
	root := &cobra.Command{
		Use:     "wlvideo",
		Short:   "Wayland video wallpaper player",
		Version: fmt.Sprintf("%s (commit %s, built %s, %s, %s)",
			info.Version, info.GitCommit, info.BuildDate, info.GoVersion, info.Platform),
	}
	root.AddCommand(cmd.CreatePlayCmd())
	root.AddCommand(cmd.CreateProbeCmd())
	root.AddCommand(cmd.CreateDevicesCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
