package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRunNowExecutesJob verifies RunNow runs the job and returns its error
func TestRunNowExecutesJob(t *testing.T) {
	s := New(zerolog.New(nil).Level(zerolog.Disabled))

	ran := false
	err := s.RunNow(FuncJob{JobName: "test", Fn: func() error {
		ran = true
		return nil
	}})
	require.NoError(t, err)
	assert.True(t, ran)

	wantErr := errors.New("boom")
	err = s.RunNow(FuncJob{JobName: "failing", Fn: func() error { return wantErr }})
	assert.ErrorIs(t, err, wantErr)
}

// TestAddJobRejectsBadSchedule verifies an invalid cron expression is
// reported at registration time
func TestAddJobRejectsBadSchedule(t *testing.T) {
	s := New(zerolog.New(nil).Level(zerolog.Disabled))

	err := s.AddJob("not a schedule", FuncJob{JobName: "test", Fn: func() error { return nil }})
	assert.Error(t, err)

	err = s.AddJob("@every 90m", FuncJob{JobName: "test", Fn: func() error { return nil }})
	assert.NoError(t, err)
}

// TestPollRunsImmediatelyAndStopsOnCancel verifies the poll loop fires
// right away and exits when the context is cancelled
func TestPollRunsImmediatelyAndStopsOnCancel(t *testing.T) {
	s := New(zerolog.New(nil).Level(zerolog.Disabled))

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Poll(ctx, time.Hour, func(context.Context) error {
			calls.Add(1)
			return nil
		})
	}()

	require.Eventually(t, func() bool {
		return calls.Load() == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poll loop did not stop after cancellation")
	}
	assert.Equal(t, int32(1), calls.Load())
}

// TestPollKeepsGoingAfterError verifies a failing iteration does not
// terminate the loop
func TestPollKeepsGoingAfterError(t *testing.T) {
	s := New(zerolog.New(nil).Level(zerolog.Disabled))

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Poll(ctx, time.Millisecond, func(context.Context) error {
			calls.Add(1)
			return errors.New("transient")
		})
	}()

	require.Eventually(t, func() bool {
		return calls.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
