package model

// Counters holds the in and out pedestrian counts of one camera.
type Counters struct {
	In  int `json:"in"`
	Out int `json:"out"`
}

// Sanitize clamps negative device values to zero.
func (c Counters) Sanitize() Counters {
	if c.In < 0 {
		c.In = 0
	}
	if c.Out < 0 {
		c.Out = 0
	}
	return c
}

// Entry pairs a camera with the counters last observed for it.
type Entry struct {
	Camera   Camera
	Counters Counters
}

// TrafficUpdate is emitted whenever stored counters change.
type TrafficUpdate struct {
	Scene    string
	Camera   Camera
	Counters Counters
}
