package proto

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/nsyszr/flowcount/pkg/model"
)

// UnmarshalMessage decodes the envelope of an inbound message. A missing
// action yields ActionInvalid and no error.
func UnmarshalMessage(data []byte) (*Message, error) {
	var envelope struct {
		Action *string         `json:"action"`
		Ret    json.RawMessage `json:"ret"`
	}

	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, NewMalformedMessageError("invalid message data", err)
	}

	msg := &Message{Ret: []byte(envelope.Ret)}
	if envelope.Action != nil {
		msg.Action = Action(*envelope.Action)
	}
	return msg, nil
}

// Status reads ret as a status string.
func (m *Message) Status() (string, error) {
	var s string
	if len(m.Ret) == 0 {
		return "", NewMalformedMessageError("ret is missing", nil)
	}
	if err := json.Unmarshal(m.Ret, &s); err != nil {
		return "", NewMalformedMessageError("ret is not a string", err)
	}
	return s, nil
}

// PersonCount reads ret as an object carrying in and out counters.
func (m *Message) PersonCount() (model.Counters, error) {
	var ret struct {
		In  *count `json:"in"`
		Out *count `json:"out"`
	}

	if len(m.Ret) == 0 {
		return model.Counters{}, NewMalformedMessageError("ret is missing", nil)
	}
	if err := json.Unmarshal(m.Ret, &ret); err != nil {
		return model.Counters{}, NewMalformedMessageError("ret is not a person count", err)
	}
	if ret.In == nil || ret.Out == nil {
		return model.Counters{}, NewMalformedMessageError("person count lacks in or out", nil)
	}
	if *ret.In < 0 || *ret.Out < 0 {
		return model.Counters{}, NewMalformedMessageError("person count is negative", nil)
	}

	return model.Counters{In: int(*ret.In), Out: int(*ret.Out)}, nil
}

// count accepts numbers and numeric strings, some firmwares send both.
type count int

func (c *count) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return err
	}
	*c = count(n)
	return nil
}
