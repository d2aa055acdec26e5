package executor

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// appendTo is a concrete Operation
type appendTo struct {
	log   *[]string
	value string
}

func (a appendTo) Call() error {
	*a.log = append(*a.log, a.value)
	return nil
}

func newLogger() (*logrus.Logger, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger, hook
}

func TestNewRejectsMissingOperation(t *testing.T) {
	var fn OperationFunc
	var action Action

	for _, op := range []Operation{nil, fn, action} {
		e, err := New(logrus.New(), "nil", op)

		assert.ErrorIs(t, err, ErrInvalidArgument)
		assert.Nil(t, e)
	}
}

func TestNewDefaults(t *testing.T) {
	e, err := New(nil, "", Action(func() {}), nil)
	require.NoError(t, err)

	assert.Equal(t, "operation", e.Name())
	assert.Equal(t, logrus.StandardLogger(), e.logger)
	assert.Empty(t, e.recorders)
}

func TestExecuteInvokesOperationOnce(t *testing.T) {
	calls := 0
	e, err := New(logrus.New(), "count", Action(func() { calls++ }))
	require.NoError(t, err)

	assert.NoError(t, e.Execute())
	assert.Equal(t, 1, calls)

	assert.NoError(t, e.Execute())
	assert.Equal(t, 2, calls)
}

func TestExecuteLogsElapsed(t *testing.T) {
	logger, hook := newLogger()
	e, err := New(logger, "greet", Action(func() {}))
	require.NoError(t, err)

	require.NoError(t, e.Execute())

	require.Len(t, hook.Entries, 2)
	assert.Equal(t, logrus.DebugLevel, hook.Entries[0].Level)
	assert.Equal(t, "Executing operation", hook.Entries[0].Message)

	last := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, last.Level)
	assert.Equal(t, "Operation finished", last.Message)
	assert.Equal(t, "greet", last.Data["operation"])
	assert.NotEmpty(t, last.Data["run_id"])
	assert.GreaterOrEqual(t, last.Data["elapsed_ms"], int64(0))
}

func TestExecuteMeasuresWithClock(t *testing.T) {
	logger, hook := newLogger()
	var got Measurement
	e, err := New(logger, "clock", Action(func() {}), RecorderFunc(func(m Measurement) { got = m }))
	require.NoError(t, err)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ticks := []time.Time{start, start.Add(1500 * time.Millisecond)}
	e.now = func() time.Time {
		next := ticks[0]
		ticks = ticks[1:]
		return next
	}

	require.NoError(t, e.Execute())

	assert.Equal(t, 1500*time.Millisecond, got.Elapsed)
	assert.Equal(t, start, got.StartedAt)
	assert.Equal(t, int64(1500), hook.LastEntry().Data["elapsed_ms"])
	assert.Equal(t, "1.5s", hook.LastEntry().Data["elapsed"])
}

func TestExecuteNeverReportsNegativeElapsed(t *testing.T) {
	var got Measurement
	e, err := New(logrus.New(), "skew", Action(func() {}), RecorderFunc(func(m Measurement) { got = m }))
	require.NoError(t, err)

	start := time.Now()
	ticks := []time.Time{start, start.Add(-time.Second)}
	e.now = func() time.Time {
		next := ticks[0]
		ticks = ticks[1:]
		return next
	}

	require.NoError(t, e.Execute())
	assert.Equal(t, time.Duration(0), got.Elapsed)
}

func TestSideEffectHappensBetweenTimestamps(t *testing.T) {
	var at time.Time
	var got Measurement
	e, err := New(logrus.New(), "between", Action(func() { at = time.Now() }), RecorderFunc(func(m Measurement) { got = m }))
	require.NoError(t, err)

	require.NoError(t, e.Execute())

	assert.False(t, at.Before(got.StartedAt))
	assert.False(t, at.After(got.FinishedAt))
	assert.GreaterOrEqual(t, got.Elapsed, time.Duration(0))
	assert.True(t, got.Success())
	assert.Equal(t, "success", got.Outcome())
}

func TestExecutorsAreIndependent(t *testing.T) {
	log := []string{}

	first, err := New(logrus.New(), "first", appendTo{log: &log, value: "first"})
	require.NoError(t, err)

	require.NoError(t, first.Execute())
	assert.Equal(t, []string{"first"}, log)

	second, err := New(logrus.New(), "second", appendTo{log: &log, value: "second"})
	require.NoError(t, err)

	require.NoError(t, second.Execute())
	assert.Equal(t, []string{"first", "second"}, log)

	require.NoError(t, first.Execute())
	assert.Equal(t, []string{"first", "second", "first"}, log)
}

func TestExecutePropagatesError(t *testing.T) {
	logger, hook := newLogger()
	errBoom := errors.New("boom")
	log := []string{"first"}
	calls := 0

	var got Measurement
	e, err := New(logger, "fails", OperationFunc(func() error {
		calls++
		return errBoom
	}), RecorderFunc(func(m Measurement) { got = m }))
	require.NoError(t, err)

	err = e.Execute()

	assert.Same(t, errBoom, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"first"}, log)

	assert.Same(t, errBoom, got.Err)
	assert.False(t, got.Success())
	assert.Equal(t, "error", got.Outcome())

	last := hook.LastEntry()
	assert.Equal(t, logrus.ErrorLevel, last.Level)
	assert.Equal(t, "Operation failed", last.Message)
	assert.Equal(t, errBoom, last.Data[logrus.ErrorKey])
}

func TestExecuteReraisesPanic(t *testing.T) {
	logger, hook := newLogger()
	calls := 0

	var got Measurement
	e, err := New(logger, "panics", Action(func() {
		calls++
		panic("boom")
	}), RecorderFunc(func(m Measurement) { got = m }))
	require.NoError(t, err)

	assert.PanicsWithValue(t, "boom", func() { _ = e.Execute() })

	assert.Equal(t, 1, calls)
	assert.True(t, got.Panicked)
	assert.Equal(t, "panic", got.Outcome())
	assert.Equal(t, "Operation panicked", hook.LastEntry().Message)
}

func TestCallingConventions(t *testing.T) {
	log := []string{}

	ops := []Operation{
		appendTo{log: &log, value: "concrete"},
		OperationFunc(func() error {
			log = append(log, "func")
			return nil
		}),
		Action(func() { log = append(log, "closure") }),
	}

	for _, op := range ops {
		e, err := New(logrus.New(), "", op)
		require.NoError(t, err)
		require.NoError(t, e.Execute())
	}

	assert.Equal(t, []string{"concrete", "func", "closure"}, log)
}

func TestRebind(t *testing.T) {
	log := []string{}
	e, err := New(logrus.New(), "rebind", appendTo{log: &log, value: "a"})
	require.NoError(t, err)

	assert.ErrorIs(t, e.Rebind(nil), ErrInvalidArgument)
	require.NoError(t, e.Execute())

	require.NoError(t, e.Rebind(appendTo{log: &log, value: "b"}))
	require.NoError(t, e.Execute())

	assert.Equal(t, []string{"a", "b"}, log)
}

func TestRecorderPanicIsNotFatal(t *testing.T) {
	logger, hook := newLogger()
	recorded := false

	e, err := New(logger, "recorders", Action(func() {}),
		RecorderFunc(func(Measurement) { panic("sink down") }),
		RecorderFunc(func(Measurement) { recorded = true }),
	)
	require.NoError(t, err)

	assert.NoError(t, e.Execute())
	assert.True(t, recorded)

	warned := false
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Message == "Recorder failed" {
			warned = true
		}
	}
	assert.True(t, warned)
}
