package streamcam

import (
	"github.com/nsyszr/flowcount/pkg/model"
	"github.com/nsyszr/flowcount/pkg/streamcam/proto"
)

// messageHandler works like an http.Handler for device messages and allows
// middleware such as ensureState. Handlers run with the Conn locked and
// queue their I/O with later.
type messageHandler interface {
	Handle(sess *session, msg *proto.Message)
}

type messageHandlerFunc func(sess *session, msg *proto.Message)

func (f messageHandlerFunc) Handle(sess *session, msg *proto.Message) {
	f(sess, msg)
}

func (c *Conn) handleMessage(msg *proto.Message, h messageHandler) {
	c.Lock()
	defer c.unlock()

	if c.sess == nil {
		c.dropMessage("no session", msg.Ret)
		return
	}

	c.metrics.MessageReceived(string(msg.Action))
	h.Handle(c.sess, msg)
}

func (c *Conn) ensureState(want State, next messageHandler) messageHandler {
	return messageHandlerFunc(func(sess *session, msg *proto.Message) {
		if sess.state != want {
			c.dropMessage("'"+msg.Action.String()+"' not expected in state "+sess.state.String(), msg.Ret)
			return
		}
		next.Handle(sess, msg)
	})
}

func (c *Conn) loginHandler() messageHandlerFunc {
	return messageHandlerFunc(func(sess *session, msg *proto.Message) {
		status, err := msg.Status()
		if err != nil {
			c.dropMessage(err.Error(), msg.Ret)
			return
		}

		if !proto.LoginAccepted(status) {
			// No retry here, a new connection brings a new login.
			c.logger().Warnf("streamcam login rejected: %s", status)
			c.record(model.TopicSessionLoginFailed, map[string]string{"status": status})
			return
		}

		c.transition(sess, StateAuthenticated)
		c.record(model.TopicSessionAuthenticated, nil)
		c.logger().Info("streamcam login succeeded, start polling")

		go c.poll(sess)
	})
}

func (c *Conn) personCountHandler() messageHandlerFunc {
	return messageHandlerFunc(func(sess *session, msg *proto.Message) {
		counters, err := msg.PersonCount()
		if err != nil {
			c.dropMessage(err.Error(), msg.Ret)
			return
		}

		// Store observers publish the update, keep them off the lock.
		c.later(func() {
			if c.store.Upsert(c.scene, c.camera, counters) {
				c.metrics.TrafficUpdated(model.FamilyStream.String())
			}
		})
	})
}

func (c *Conn) clearHandler() messageHandlerFunc {
	return messageHandlerFunc(func(sess *session, msg *proto.Message) {
		status, err := msg.Status()
		if err != nil {
			// A malformed acknowledgement is no answer. The pending reset
			// runs into its timeout, which closes the connection.
			c.dropMessage(err.Error(), msg.Ret)
			return
		}

		if !c.pending.Resolve(c.camera.Key(), proto.ClearAccepted(status)) {
			c.logger().Debugf("streamcam clear response '%s' without pending command", status)
		}
	})
}
