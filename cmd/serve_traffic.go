package cmd

import (
	"github.com/nsyszr/flowcount/pkg/cmd/server"
	"github.com/spf13/cobra"
)

// serveTrafficCmd represents the serve traffic command
var serveTrafficCmd = &cobra.Command{
	Use:   "traffic",
	Short: "Serve the camera sessions and the traffic API",
	Run:   server.RunServeTraffic(c),
}

func init() {
	serveCmd.AddCommand(serveTrafficCmd)
}
