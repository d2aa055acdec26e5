package executor

import "time"

// Measurement is the timing of a single Execute call.
// It is created per call and never shared between calls.
type Measurement struct {
	Name  string
	RunID string

	StartedAt  time.Time
	FinishedAt time.Time
	Elapsed    time.Duration

	// Err is the error returned by the Operation, if any
	Err error
	// Panicked is set when the Operation panicked instead of returning
	Panicked bool
}

// Success reports whether the Operation returned normally without an error.
func (m Measurement) Success() bool {
	return m.Err == nil && !m.Panicked
}

// Outcome is a short label for the result, suitable for metric labels.
func (m Measurement) Outcome() string {
	switch {
	case m.Panicked:
		return "panic"
	case m.Err != nil:
		return "error"
	default:
		return "success"
	}
}

// Recorder is a sink for measurements, in addition to the executor's logger.
//
// Record is called synchronously at the end of every Execute,
// implementations must not block indefinitely and must be safe for
// concurrent use if the executor is shared.
type Recorder interface {
	Record(Measurement)
}

// RecorderFunc adapts a function to a Recorder.
type RecorderFunc func(Measurement)

func (f RecorderFunc) Record(m Measurement) {
	f(m)
}
