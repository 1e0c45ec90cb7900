// Package controller accepts traffic commands over NATS request-reply.
package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nsyszr/flowcount/pkg/aggregator"
	log "github.com/sirupsen/logrus"
)

const (
	commandSubjectPrefix = "flowcount.v1.command."
	queueGroup           = "flowcount.v1.controllers"
)

// Traffic is the part of the aggregator the controller drives.
type Traffic interface {
	ResetByAddress(ctx context.Context, ip string, port int) error
	ResetAll(ctx context.Context) []aggregator.Outcome
}

type Controller struct {
	nc      *nats.Conn
	traffic Traffic
	timeout time.Duration
	sub     *nats.Subscription
}

// New creates a controller; timeout bounds the handling of one command.
func New(nc *nats.Conn, traffic Traffic, timeout time.Duration) *Controller {
	return &Controller{
		nc:      nc,
		traffic: traffic,
		timeout: timeout,
	}
}

// CommandSubject is the subject a command is requested on.
func CommandSubject(cmd string) string {
	return commandSubjectPrefix + cmd
}

func (ctrl *Controller) Subscribe() error {
	if ctrl.nc == nil {
		return fmt.Errorf("controller: connection to nats is missing")
	}

	sub, err := ctrl.nc.QueueSubscribe(commandSubjectPrefix+">", queueGroup, func(msg *nats.Msg) {
		data := ctrl.handleMessage(msg.Subject, msg.Data)
		if msg.Reply == "" {
			return
		}
		if err := ctrl.nc.Publish(msg.Reply, data); err != nil {
			log.Errorf("controller: failed to reply to %s: %v", msg.Subject, err)
		}
	})
	if err != nil {
		return err
	}
	ctrl.sub = sub

	return nil
}

func (ctrl *Controller) Unsubscribe() {
	if ctrl.sub != nil {
		ctrl.sub.Unsubscribe()
	}
}

func (ctrl *Controller) handleMessage(subject string, data []byte) []byte {
	ctx, cancel := context.WithTimeout(context.Background(), ctrl.timeout)
	defer cancel()

	var reply *CommandReply
	switch cmd := strings.TrimPrefix(subject, commandSubjectPrefix); cmd {
	case CommandReset:
		reply = ctrl.handleReset(ctx, data)
	case CommandResetAll:
		reply = ctrl.handleResetAll(ctx)
	default:
		reply = &CommandReply{Status: ReplyStatusError, Reason: fmt.Sprintf("unknown command '%s'", cmd)}
	}

	out, _ := json.Marshal(reply)
	return out
}

func (ctrl *Controller) handleReset(ctx context.Context, data []byte) *CommandReply {
	req := CommandRequest{}
	if err := json.Unmarshal(data, &req); err != nil {
		return &CommandReply{Status: ReplyStatusError, Reason: "malformed request"}
	}
	if req.IP == "" || req.Port <= 0 {
		return &CommandReply{Status: ReplyStatusError, Reason: "ip and port are required"}
	}

	if err := ctrl.traffic.ResetByAddress(ctx, req.IP, req.Port); err != nil {
		return &CommandReply{Status: ReplyStatusError, Reason: err.Error()}
	}
	return &CommandReply{Status: ReplyStatusOK}
}

func (ctrl *Controller) handleResetAll(ctx context.Context) *CommandReply {
	reply := &CommandReply{Status: ReplyStatusOK}

	for _, o := range ctrl.traffic.ResetAll(ctx) {
		r := &CameraResult{
			Scene:  o.Scene,
			Camera: o.Camera.Name,
			Key:    o.Camera.Key(),
			Status: ReplyStatusOK,
		}
		if o.Err != nil {
			r.Status = ReplyStatusError
			r.Reason = o.Err.Error()
			reply.Status = ReplyStatusError
			reply.Reason = "some cameras failed"
		}
		reply.Results = append(reply.Results, r)
	}

	return reply
}
