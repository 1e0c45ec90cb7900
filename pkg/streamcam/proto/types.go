// Package proto encodes and decodes the JSON messages spoken by stream
// cameras.
package proto

import "strings"

type Action string

const (
	ActionInvalid          Action = ""
	ActionLogin            Action = "login"
	ActionGetPersonCount   Action = "get_person_count"
	ActionClearPersonCount Action = "clear_person_count"
)

func (a Action) String() string {
	if a == ActionInvalid {
		return "INVALID"
	}
	return string(a)
}

// Known reports whether the engine handles messages of this action.
func (a Action) Known() bool {
	switch a {
	case ActionLogin, ActionGetPersonCount, ActionClearPersonCount:
		return true
	}
	return false
}

// LoginSucceeded is the only login acknowledgement treated as success.
const LoginSucceeded = "login successfully"

// LoginAccepted reports whether a login status means success.
func LoginAccepted(status string) bool {
	return status == LoginSucceeded
}

// ClearAccepted reports whether a clear status means success.
func ClearAccepted(status string) bool {
	return strings.EqualFold(strings.TrimSpace(status), "ok")
}

type LoginMessage struct {
	Action   Action `json:"action"`
	UserName string `json:"user_name"`
	Password string `json:"pwd"`
}

type CommandMessage struct {
	Action Action `json:"action"`
}

// Message is any inbound message. Ret stays raw until the action tells
// how to read it.
type Message struct {
	Action Action
	Ret    []byte
}
