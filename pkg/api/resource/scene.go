package resource

import "github.com/nsyszr/flowcount/pkg/model"

type CameraResource struct {
	Name     string `json:"name"`
	IP       string `json:"ip"`
	Port     int    `json:"port"`
	Location string `json:"location"`
	Type     string `json:"type"`
	RTSPPort int    `json:"rtspPort"`
}

type SceneResource struct {
	Name     string            `json:"name"`
	Capacity int               `json:"capacity"`
	Low      int               `json:"low"`
	Medium   int               `json:"medium"`
	High     int               `json:"high"`
	Cameras  []*CameraResource `json:"cameras"`
}

func NewScene(m *model.Scene) *SceneResource {
	out := &SceneResource{
		Name:     m.Name,
		Capacity: m.Capacity,
		Low:      m.Low,
		Medium:   m.Medium,
		High:     m.High,
		Cameras:  make([]*CameraResource, 0, len(m.Cameras)),
	}

	for _, cam := range m.Cameras {
		out.Cameras = append(out.Cameras, &CameraResource{
			Name:     cam.Name,
			IP:       cam.IP,
			Port:     cam.Port,
			Location: cam.Location,
			Type:     cam.Family.String(),
			RTSPPort: cam.RTSPPort,
		})
	}

	return out
}

func NewSceneList(m []model.Scene) []*SceneResource {
	out := make([]*SceneResource, 0, len(m))
	for i := range m {
		out = append(out, NewScene(&m[i]))
	}
	return out
}
