package systems

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobSystemValidation(t *testing.T) {
	_, err := NewJobSystem(0, 1)
	assert.ErrorIs(t, err, ErrNoWorkers)

	_, err = NewJobSystem(1, -1)
	assert.ErrorIs(t, err, ErrNegativeChannelSize)
}

func TestJobsRunBeforeShutdownReturns(t *testing.T) {
	js, err := NewJobSystem(3, 4)
	require.NoError(t, err)

	var completed atomic.Int32
	for i := 0; i < 20; i++ {
		n := i
		require.NoError(t, js.Submit(JobTask{
			Name:       "count",
			OnStart:    func() (interface{}, error) { return n, nil },
			OnComplete: func(result interface{}) { completed.Add(1) },
		}))
	}
	require.NoError(t, js.Shutdown())
	assert.Equal(t, int32(20), completed.Load())
}

func TestJobFailureCallback(t *testing.T) {
	js, err := NewJobSystem(1, 0)
	require.NoError(t, err)

	boom := errors.New("boom")
	var wg sync.WaitGroup
	wg.Add(1)
	var got error
	require.NoError(t, js.Submit(JobTask{
		Name:       "fail",
		OnStart:    func() (interface{}, error) { return nil, boom },
		OnComplete: func(interface{}) { t.Error("completed a failed job") },
		OnFailure: func(err error) {
			got = err
			wg.Done()
		},
	}))
	wg.Wait()
	assert.ErrorIs(t, got, boom)
	require.NoError(t, js.Shutdown())
}

func TestSubmitAfterShutdown(t *testing.T) {
	js, err := NewJobSystem(1, 1)
	require.NoError(t, err)
	require.NoError(t, js.Shutdown())
	require.NoError(t, js.Shutdown())

	assert.ErrorIs(t, js.Submit(JobTask{OnStart: func() (interface{}, error) { return nil, nil }}), ErrJobSystemClosed)
}
