package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/nsyszr/flowcount/config"
	"github.com/nsyszr/flowcount/pkg/client"
	"github.com/nsyszr/flowcount/pkg/client/natsio"
	"github.com/nsyszr/flowcount/pkg/client/rest"
	"github.com/nsyszr/flowcount/pkg/notify"
	"github.com/spf13/cobra"
)

type SceneHandler struct {
	c   *config.Config
	out io.Writer

	// JSON prints the raw resources instead of tables
	JSON bool

	newClient func() client.Interface
}

func newSceneHandler(c *config.Config) *SceneHandler {
	h := &SceneHandler{c: c, out: os.Stdout}
	h.newClient = func() client.Interface {
		return rest.New(&rest.Config{
			BaseURL: h.c.ServerURL,
			Timeout: 30 * time.Second,
		})
	}
	return h
}

func fail(err error) {
	fmt.Printf("Error: %v\n", err)
	os.Exit(1)
}

func (h *SceneHandler) printJSON(v interface{}) error {
	enc := json.NewEncoder(h.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (h *SceneHandler) List(cmd *cobra.Command, args []string) {
	if err := h.list(); err != nil {
		fail(err)
	}
}

func (h *SceneHandler) list() error {
	scenes, err := h.newClient().Scenes()
	if err != nil {
		return err
	}
	if h.JSON {
		return h.printJSON(scenes)
	}

	w := tabwriter.NewWriter(h.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "SCENE\tCAMERA\tTYPE\tADDRESS\tLOCATION")
	for _, s := range scenes {
		for _, cam := range s.Cameras {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s:%d\t%s\n", s.Name, cam.Name, cam.Type, cam.IP, cam.Port, cam.Location)
		}
	}
	return w.Flush()
}

func (h *SceneHandler) Traffic(cmd *cobra.Command, args []string) {
	if len(args) != 1 {
		fmt.Println(cmd.UsageString())
		os.Exit(2)
	}
	if err := h.traffic(args[0]); err != nil {
		fail(err)
	}
}

func (h *SceneHandler) traffic(scene string) error {
	views, err := h.newClient().Traffic(scene)
	if err != nil {
		return err
	}
	if h.JSON {
		return h.printJSON(views)
	}

	w := tabwriter.NewWriter(h.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "CAMERA\tADDRESS\tONLINE\tIN\tOUT")
	totalIn, totalOut := 0, 0
	for _, v := range views {
		fmt.Fprintf(w, "%s\t%s:%d\t%t\t%d\t%d\n", v.Name, v.IP, v.Port, v.Online, v.In, v.Out)
		totalIn += v.In
		totalOut += v.Out
	}
	fmt.Fprintf(w, "TOTAL\t\t\t%d\t%d\n", totalIn, totalOut)
	return w.Flush()
}

func (h *SceneHandler) Clean(cmd *cobra.Command, args []string) {
	if len(args) != 2 {
		fmt.Println(cmd.UsageString())
		os.Exit(2)
	}
	port, err := strconv.Atoi(args[1])
	if err != nil {
		fail(fmt.Errorf("invalid port '%s'", args[1]))
	}

	if err := h.newClient().Clean(args[0], port); err != nil {
		fail(err)
	}
	fmt.Fprintf(h.out, "Cleaned traffic of %s:%d\n", args[0], port)
}

func (h *SceneHandler) CleanAll(cmd *cobra.Command, args []string) {
	if err := h.cleanAll(); err != nil {
		fail(err)
	}
}

func (h *SceneHandler) cleanAll() error {
	outcomes, err := h.newClient().CleanAll()
	if err != nil {
		return err
	}
	if h.JSON {
		return h.printJSON(outcomes)
	}

	w := tabwriter.NewWriter(h.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "SCENE\tCAMERA\tADDRESS\tRESULT")
	for _, o := range outcomes {
		result := "ok"
		if !o.Success {
			result = o.Reason
		}
		fmt.Fprintf(w, "%s\t%s\t%s:%d\t%s\n", o.Scene, o.Camera, o.IP, o.Port, result)
	}
	return w.Flush()
}

// Watch prints the traffic published on NATS until interrupted.
func (h *SceneHandler) Watch(cmd *cobra.Command, args []string) {
	scene := ""
	if len(args) > 0 {
		scene = args[0]
	}
	if h.c.NATSServerURL == "" {
		fail(fmt.Errorf("NATS_URL is not set"))
	}

	watcher, err := natsio.New(&natsio.Config{URL: h.c.NATSServerURL})
	if err != nil {
		fail(err)
	}
	defer watcher.Close()

	stop, err := watcher.WatchTraffic(scene, h.printTraffic)
	if err != nil {
		fail(err)
	}
	defer stop()

	quitCh := make(chan os.Signal, 1)
	signal.Notify(quitCh, os.Interrupt)
	<-quitCh
}

func (h *SceneHandler) printTraffic(m *notify.TrafficMessage) {
	if h.JSON {
		_ = h.printJSON(m)
		return
	}
	fmt.Fprintf(h.out, "%s %s %s (%s) in=%d out=%d\n",
		m.Timestamp.Local().Format(time.RFC3339), m.Scene, m.Camera, m.Key, m.In, m.Out)
}
