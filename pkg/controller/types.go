package controller

// Command names, the last token of the command subject
const (
	CommandReset    = "reset"
	CommandResetAll = "reset-all"
)

const (
	ReplyStatusOK    = "ok"
	ReplyStatusError = "error"
)

// CommandRequest addresses the camera of a reset command.
type CommandRequest struct {
	IP   string `json:"ip"`
	Port int    `json:"port"`
}

type CameraResult struct {
	Scene  string `json:"scene"`
	Camera string `json:"camera"`
	Key    string `json:"key"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type CommandReply struct {
	Status  string          `json:"status"`
	Reason  string          `json:"reason,omitempty"`
	Results []*CameraResult `json:"results,omitempty"`
}
