package model

// Scene is a named physical zone grouping cameras. Counters are not kept
// here, see the traffic store.
type Scene struct {
	Name     string   `mapstructure:"name" json:"name"`
	Capacity int      `mapstructure:"capacity" json:"capacity"`
	Low      int      `mapstructure:"low" json:"low"`
	Medium   int      `mapstructure:"medium" json:"medium"`
	High     int      `mapstructure:"high" json:"high"`
	Cameras  []Camera `mapstructure:"cameras" json:"cameras"`
}

// CamerasOf returns the scene's cameras of the given family in configured
// order.
func (s Scene) CamerasOf(f Family) []Camera {
	out := make([]Camera, 0, len(s.Cameras))
	for _, c := range s.Cameras {
		if c.Family == f {
			out = append(out, c)
		}
	}
	return out
}
