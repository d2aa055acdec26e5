package watcher

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mickyco94/minuteur/internal/config"
	"github.com/mitchellh/go-ps"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProcess mocks `ps.Process`
type mockProcess struct {
	executable string
}

func (m mockProcess) Executable() string {
	return m.executable
}

func (m mockProcess) PPid() int {
	return 1
}

func (m mockProcess) Pid() int {
	return 2
}

// newTestProcess returns a watcher whose process table contains "top"
// whenever the returned flag is set
func newTestProcess(initiallyRunning bool) (*Process, *atomic.Bool) {
	running := &atomic.Bool{}
	running.Store(initiallyRunning)

	proc := NewProcess(logrus.New())
	proc.interval = 10 * time.Millisecond
	proc.source = func() ([]ps.Process, error) {
		if running.Load() {
			return []ps.Process{mockProcess{executable: "top"}}, nil
		}
		return []ps.Process{}, nil
	}

	return proc, running
}

func TestListenForOpen(t *testing.T) {
	proc, running := newTestProcess(false)

	called := make(chan struct{}, 1)
	require.NoError(t, proc.HandleFunc(&config.Process{
		Executable: "top",
		State:      config.Open,
	}, func() {
		called <- struct{}{}
	}))

	go proc.Run()

	<-time.After(50 * time.Millisecond)
	running.Store(true)

	select {
	case <-time.After(time.Second):
		t.Error("Timed out")
	case <-called:
	}

	assert.NoError(t, proc.Stop(context.Background()))
}

func TestCloseWhenAlreadyRunning(t *testing.T) {
	proc, running := newTestProcess(true)

	called := make(chan struct{}, 1)
	require.NoError(t, proc.HandleFunc(&config.Process{
		Executable: "top",
		State:      config.Close,
	}, func() {
		called <- struct{}{}
	}))

	go proc.Run()

	<-time.After(50 * time.Millisecond)
	running.Store(false)

	select {
	case <-time.After(time.Second):
		t.Error("Timed out")
	case <-called:
	}

	assert.NoError(t, proc.Stop(context.Background()))
}

func TestOpenWhenAlreadyOpen(t *testing.T) {
	proc, _ := newTestProcess(true)

	var calls atomic.Int32
	require.NoError(t, proc.HandleFunc(&config.Process{
		Executable: "top",
		State:      config.Open,
	}, func() {
		calls.Add(1)
	}))

	go proc.Run()

	<-time.After(100 * time.Millisecond)

	assert.NoError(t, proc.Stop(context.Background()))
	assert.Equal(t, int32(0), calls.Load())
}

func TestUnsupportedState(t *testing.T) {
	proc := NewProcess(logrus.New())

	err := proc.HandleFunc(&config.Process{Executable: "top", State: "restart"}, func() {})

	assert.ErrorIs(t, err, ErrUnsupportedState)
}

func TestRunFailsWhenProcessesUnavailable(t *testing.T) {
	errUnavailable := errors.New("unavailable")

	proc := NewProcess(logrus.New())
	proc.source = func() ([]ps.Process, error) {
		return nil, errUnavailable
	}

	assert.ErrorIs(t, proc.Run(), errUnavailable)
}

func TestStopBeforeRun(t *testing.T) {
	proc := NewProcess(logrus.New())

	assert.NoError(t, proc.Stop(context.Background()))
	assert.ErrorIs(t, proc.Stop(context.Background()), ErrAlreadyStopped)

	result := make(chan error, 1)
	go func() {
		result <- proc.Run()
	}()

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
