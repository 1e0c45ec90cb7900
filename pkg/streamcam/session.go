package streamcam

import "time"

type State int

const (
	StateConnected State = iota
	StateLoginSent
	StateAuthenticated
	StateClosed
)

func (state State) String() string {
	names := []string{
		"CONNECTED",
		"LOGIN_SENT",
		"AUTHENTICATED",
		"CLOSED"}

	if state < StateConnected || state > StateClosed {
		return "UNKNOWN"
	}

	return names[state]
}

// session lives from transport activation until the connection ends. Its
// fields are guarded by the owning Conn.
type session struct {
	state State
	since time.Time
}

func newSession() *session {
	return &session{
		state: StateConnected,
		since: time.Now(),
	}
}
