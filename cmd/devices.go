package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/videowall/wlvideo/internal/gpu"
)

// CreateDevicesCmd creates the devices command.
func CreateDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List DRM render nodes usable for hardware decoding",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			nodes, err := gpu.FindRenderNodes()
			if err != nil {
				return err
			}
			if len(nodes) == 0 {
				fmt.Println("no DRM render nodes found")
				return nil
			}
			for _, n := range nodes {
				zc := ""
				if n.Vendor.ZeroCopyCapable() {
					zc = " (zero-copy capable)"
				}
				fmt.Printf("%s  %s%s\n", n.Path, n.Vendor, zc)
			}
			return nil
		},
	}
}
