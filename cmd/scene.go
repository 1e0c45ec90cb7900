package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// sceneCmd represents the scene command
var sceneCmd = &cobra.Command{
	Use:   "scene",
	Short: "Query and clean the traffic of a running server",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(cmd.UsageString())
		os.Exit(2)
	},
}

var sceneListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the scenes and their cameras",
	Run:   cmdHandler.Scene.List,
}

var sceneTrafficCmd = &cobra.Command{
	Use:   "traffic <scene>",
	Short: "Show the traffic of a scene",
	Run:   cmdHandler.Scene.Traffic,
}

var sceneCleanCmd = &cobra.Command{
	Use:   "clean <ip> <port>",
	Short: "Reset the counters of one camera",
	Run:   cmdHandler.Scene.Clean,
}

var sceneCleanAllCmd = &cobra.Command{
	Use:   "clean-all",
	Short: "Reset the counters of every camera",
	Run:   cmdHandler.Scene.CleanAll,
}

var sceneWatchCmd = &cobra.Command{
	Use:   "watch [scene]",
	Short: "Follow the traffic published on NATS",
	Run:   cmdHandler.Scene.Watch,
}

func init() {
	sceneCmd.PersistentFlags().BoolVar(&cmdHandler.Scene.JSON, "json", false, "print JSON instead of tables")

	sceneCmd.AddCommand(sceneListCmd)
	sceneCmd.AddCommand(sceneTrafficCmd)
	sceneCmd.AddCommand(sceneCleanCmd)
	sceneCmd.AddCommand(sceneCleanAllCmd)
	sceneCmd.AddCommand(sceneWatchCmd)
	RootCmd.AddCommand(sceneCmd)
}
