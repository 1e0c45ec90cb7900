package resource

import (
	"errors"

	"github.com/nsyszr/flowcount/pkg/aggregator"
)

// TrafficParams addresses the camera to clean.
type TrafficParams struct {
	IP   string `json:"ip"`
	Port int    `json:"port"`
}

func (p *TrafficParams) Validate() error {
	if p.IP == "" {
		return errors.New("ip is required")
	}
	if p.Port <= 0 || p.Port > 65535 {
		return errors.New("port is out of range")
	}
	return nil
}

type CleanOutcomeResource struct {
	Scene   string `json:"scene"`
	Camera  string `json:"camera"`
	IP      string `json:"ip"`
	Port    int    `json:"port"`
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

func NewCleanOutcomeList(m []aggregator.Outcome) []*CleanOutcomeResource {
	out := make([]*CleanOutcomeResource, 0, len(m))
	for _, o := range m {
		r := &CleanOutcomeResource{
			Scene:   o.Scene,
			Camera:  o.Camera.Name,
			IP:      o.Camera.IP,
			Port:    o.Camera.Port,
			Success: o.Err == nil,
		}
		if o.Err != nil {
			r.Reason = o.Err.Error()
		}
		out = append(out, r)
	}
	return out
}
