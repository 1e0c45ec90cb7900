package resource

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/nsyszr/flowcount/pkg/model"
)

type EventResource struct {
	ID        int32       `json:"id"`
	Scene     string      `json:"scene"`
	CameraKey string      `json:"cameraKey"`
	Family    string      `json:"family"`
	Topic     string      `json:"topic"`
	Timestamp time.Time   `json:"timestamp"`
	Details   interface{} `json:"details"`
}

type EventListResource struct {
	Members []*EventResource `json:"members"`
}

func NewEvent(m *model.Event) (out *EventResource) {
	out = &EventResource{
		ID:        m.ID,
		Scene:     m.Scene,
		CameraKey: m.CameraKey,
		Family:    m.Family,
		Topic:     m.Topic,
		Timestamp: m.Timestamp,
	}

	var details interface{}
	if err := json.Unmarshal([]byte(m.Details), &details); err == nil {
		out.Details = details
	}

	return // out
}

func NewEventList(m map[int32]model.Event) (out *EventListResource) {
	out = &EventListResource{
		Members: make([]*EventResource, 0, len(m)),
	}

	for _, elem := range m {
		elem := elem
		out.Members = append(out.Members, NewEvent(&elem))
	}

	// Default sort by ID
	sort.Slice(out.Members, func(i, j int) bool {
		return out.Members[i].ID < out.Members[j].ID
	})

	return // out
}
