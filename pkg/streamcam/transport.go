package streamcam

// Transport is the connection a Conn talks through. Close ends the current
// connection only; reconnecting is up to the transport.
type Transport interface {
	WriteAndFlush(data []byte) error
	Close() error
	IsActive() bool
}

// Handler receives the lifecycle callbacks of a transport. Callbacks of one
// connection must not run concurrently, except OnIdle.
type Handler interface {
	OnActive()
	OnMessage(data []byte)
	OnIdle()
	OnError(err error)
	OnInactive()
}
