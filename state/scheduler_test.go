package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv returns an Env whose dispatched closures can be drained by the test.
func testEnv(t *testing.T, buf int) (*Env, *State, chan func(*State) error, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ch := make(chan func(*State) error, buf)
	env := &Env{
		DispatchChannel: ch,
		Context:         ctx,
		Cancel: func(error) {
			cancel()
		},
	}
	env.Timing = TimingCfg{TimerRate: 1000}
	return env, &State{Env: env}, ch, cancel
}

func next(t *testing.T, ch <-chan func(*State) error, s *State) {
	t.Helper()
	select {
	case f := <-ch:
		require.NoError(t, f(s))
	case <-time.After(500 * time.Millisecond):
		t.Fatal("nothing was dispatched")
	}
}

func TestDispatchRunsOnLoop(t *testing.T) {
	env, s, ch, _ := testEnv(t, 1)
	ran := false
	env.Dispatch(func(*State) error {
		ran = true
		return nil
	})
	assert.False(t, ran)
	next(t, ch, s)
	assert.True(t, ran)
}

func TestDispatchWaitReturnsResult(t *testing.T) {
	env, s, ch, _ := testEnv(t, 1)
	go func() {
		f := <-ch
		_ = f(s)
	}()
	res, err := env.DispatchWait(func(*State) (any, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, res)
}

func TestScheduleTaskDelays(t *testing.T) {
	env, s, ch, _ := testEnv(t, 1)
	start := time.Now()
	var at time.Duration
	env.ScheduleTask(func(*State) error {
		at = time.Since(start)
		return nil
	}, 30*time.Millisecond)
	next(t, ch, s)
	assert.GreaterOrEqual(t, at, 30*time.Millisecond)
}

func TestRepeatTaskStopsOnCancel(t *testing.T) {
	env, s, ch, cancel := testEnv(t, 4)
	snapshots := 0
	env.RepeatTask(func(*State) error {
		snapshots++
		return nil
	}, 10*time.Millisecond)

	// the first run is dispatched immediately, later ones every interval
	for range 3 {
		next(t, ch, s)
	}
	assert.Equal(t, 3, snapshots)

	cancel()
	time.Sleep(30 * time.Millisecond)
	for len(ch) > 0 {
		require.NoError(t, (<-ch)(s))
	}
	settled := snapshots
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, ch)
	assert.Equal(t, settled, snapshots)
}

func TestEnvScheduleRunsOnDispatch(t *testing.T) {
	env, s, ch, _ := testEnv(t, 1)
	fired := false
	env.Schedule(func() {
		fired = true
	}, 20)
	next(t, ch, s)
	assert.True(t, fired)
}

func TestDispatchAfterCancel(t *testing.T) {
	env, _, _, cancel := testEnv(t, 0)
	cancel()

	done := make(chan struct{})
	go func() {
		env.Dispatch(func(*State) error { return nil })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Dispatch blocked after the context was cancelled")
	}
}
