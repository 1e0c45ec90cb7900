// Package pending correlates reset commands with the device responses
// that complete them.
package pending

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nsyszr/flowcount/pkg/model"
)

// DefaultTimeout bounds the wait for a device response.
const DefaultTimeout = 3 * time.Second

type Result int

const (
	ResultPending Result = iota
	ResultOK
	ResultFailed
	ResultTimeout
	ResultSuperseded
	ResultCanceled
)

func (r Result) String() string {
	names := []string{
		"PENDING",
		"OK",
		"FAILED",
		"TIMEOUT",
		"SUPERSEDED",
		"CANCELED"}

	if r < ResultPending || r > ResultCanceled {
		return "UNKNOWN"
	}

	return names[r]
}

// Command is the completion handle of one in-flight command. It completes
// exactly once.
type Command struct {
	ID        uuid.UUID
	Key       string
	CreatedAt time.Time

	once   sync.Once
	done   chan struct{}
	result Result
}

func newCommand(key string) *Command {
	return &Command{
		ID:        uuid.New(),
		Key:       key,
		CreatedAt: time.Now(),
		done:      make(chan struct{}),
	}
}

// Done is closed once the command completed.
func (c *Command) Done() <-chan struct{} {
	return c.done
}

// Result returns the outcome, or ResultPending while not completed.
func (c *Command) Result() Result {
	select {
	case <-c.done:
		return c.result
	default:
		return ResultPending
	}
}

func (c *Command) complete(r Result) bool {
	completed := false
	c.once.Do(func() {
		c.result = r
		close(c.done)
		completed = true
	})
	return completed
}

// Registry holds at most one pending command per camera key.
type Registry struct {
	entries sync.Map // key -> *Command
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Issue registers a new command for key. A command still pending for the
// same key is replaced and completes with ResultSuperseded.
func (r *Registry) Issue(key string) *Command {
	cmd := newCommand(key)
	if prev, loaded := r.entries.Swap(key, cmd); loaded {
		prev.(*Command).complete(ResultSuperseded)
	}
	return cmd
}

// Resolve completes the pending command for key and removes it. It reports
// false if nothing was pending.
func (r *Registry) Resolve(key string, ok bool) bool {
	v, loaded := r.entries.LoadAndDelete(key)
	if !loaded {
		return false
	}

	result := ResultFailed
	if ok {
		result = ResultOK
	}
	return v.(*Command).complete(result)
}

// Cancel removes cmd if it is still the pending entry for its key and
// completes it as failed.
func (r *Registry) Cancel(cmd *Command) {
	r.entries.CompareAndDelete(cmd.Key, cmd)
	cmd.complete(ResultFailed)
}

// Await blocks until cmd completes, the timeout elapses or ctx is done.
// The timeout removes the entry on its own; no cancel call is needed.
func (r *Registry) Await(ctx context.Context, cmd *Command, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-cmd.done:
	case <-timer.C:
		r.entries.CompareAndDelete(cmd.Key, cmd)
		cmd.complete(ResultTimeout)
	case <-ctx.Done():
		r.entries.CompareAndDelete(cmd.Key, cmd)
		cmd.complete(ResultCanceled)
	}

	// A response may have won the race against the timer.
	switch cmd.result {
	case ResultOK:
		return nil
	case ResultTimeout:
		return model.ErrResponseTimeout
	case ResultSuperseded:
		return model.ErrSuperseded
	case ResultCanceled:
		return ctx.Err()
	}
	return model.ErrResetFailed
}

// Pending reports whether a command is outstanding for key.
func (r *Registry) Pending(key string) bool {
	_, ok := r.entries.Load(key)
	return ok
}

// Len returns the number of outstanding commands.
func (r *Registry) Len() int {
	n := 0
	r.entries.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}
