package pending

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nsyszr/flowcount/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const key = "10.0.0.1:5006"

func TestResolveCompletesAndRemoves(t *testing.T) {
	r := NewRegistry()
	cmd := r.Issue(key)
	require.True(t, r.Pending(key))

	go func() {
		time.Sleep(20 * time.Millisecond)
		r.Resolve(key, true)
	}()

	err := r.Await(context.Background(), cmd, time.Second)
	require.NoError(t, err)
	assert.Equal(t, ResultOK, cmd.Result())
	assert.False(t, r.Pending(key))
	assert.Equal(t, 0, r.Len())
}

func TestResolveFalseReportsResetFailed(t *testing.T) {
	r := NewRegistry()
	cmd := r.Issue(key)
	require.True(t, r.Resolve(key, false))

	err := r.Await(context.Background(), cmd, time.Second)
	assert.Equal(t, model.ErrResetFailed, err)
}

func TestResolveWithoutPendingIsNoop(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Resolve(key, true))
}

func TestSecondResolutionIsNoop(t *testing.T) {
	r := NewRegistry()
	cmd := r.Issue(key)

	assert.True(t, r.Resolve(key, true))
	assert.False(t, r.Resolve(key, false))
	assert.False(t, cmd.complete(ResultFailed))
	assert.Equal(t, ResultOK, cmd.Result())
}

func TestAwaitTimeoutRemovesEntry(t *testing.T) {
	r := NewRegistry()
	cmd := r.Issue(key)

	start := time.Now()
	err := r.Await(context.Background(), cmd, 50*time.Millisecond)
	assert.Equal(t, model.ErrResponseTimeout, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.False(t, r.Pending(key))

	// A late response finds nothing to resolve.
	assert.False(t, r.Resolve(key, true))
	assert.Equal(t, ResultTimeout, cmd.Result())
}

func TestAwaitContextCanceled(t *testing.T) {
	r := NewRegistry()
	cmd := r.Issue(key)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Await(ctx, cmd, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, r.Pending(key))
}

func TestIssueReplacesAndSupersedes(t *testing.T) {
	r := NewRegistry()
	first := r.Issue(key)
	second := r.Issue(key)

	assert.Equal(t, 1, r.Len())
	assert.NotEqual(t, first.ID, second.ID)

	err := r.Await(context.Background(), first, time.Second)
	assert.Equal(t, model.ErrSuperseded, err)

	// The replacement is still pending and resolvable.
	require.True(t, r.Pending(key))
	require.True(t, r.Resolve(key, true))
	assert.NoError(t, r.Await(context.Background(), second, time.Second))
}

func TestTimeoutOfOldCommandKeepsReplacement(t *testing.T) {
	r := NewRegistry()
	first := r.Issue(key)
	second := r.Issue(key)

	// first is already superseded; awaiting it must not remove second.
	_ = r.Await(context.Background(), first, time.Millisecond)
	assert.True(t, r.Pending(key))
	r.Cancel(second)
	assert.False(t, r.Pending(key))
	assert.Equal(t, ResultFailed, second.Result())
}

func TestAtMostOnePendingPerKeyUnderConcurrency(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Issue(key)
			assert.LessOrEqual(t, r.Len(), 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, r.Len())
}

func TestConcurrentResolveAndTimeoutCompleteOnce(t *testing.T) {
	r := NewRegistry()

	for i := 0; i < 100; i++ {
		cmd := r.Issue(key)
		go r.Resolve(key, true)
		err := r.Await(context.Background(), cmd, time.Millisecond)

		res := cmd.Result()
		switch res {
		case ResultOK:
			assert.NoError(t, err)
		case ResultTimeout:
			assert.Equal(t, model.ErrResponseTimeout, err)
		default:
			t.Fatalf("unexpected result %s", res)
		}
	}
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "TIMEOUT", ResultTimeout.String())
	assert.Equal(t, "UNKNOWN", Result(42).String())
}
