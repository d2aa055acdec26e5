package executor

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrInvalidArgument is returned when an Executor is constructed or rebound
// without an Operation.
var ErrInvalidArgument = errors.New("Operation is required")

const defaultName = "operation"

// Executor times and logs the invocation of a bound Operation.
//
// The Operation is bound once by New and is then invoked on every
// call to Execute. Execute takes no locks: concurrent calls are only
// safe when the bound Operation is itself safe for concurrent use.
type Executor struct {
	logger    logrus.FieldLogger
	name      string
	op        Operation
	recorders []Recorder

	now func() time.Time
}

// New binds op to a new Executor.
//
// Defaults:
// - A nil logger uses the logrus standard logger
// - An empty name becomes "operation"
// - Nil recorders are ignored
func New(logger logrus.FieldLogger, name string, op Operation, recorders ...Recorder) (*Executor, error) {
	if isNil(op) {
		return nil, ErrInvalidArgument
	}

	if logger == nil {
		logger = logrus.StandardLogger()
	}

	if name == "" {
		name = defaultName
	}

	rs := make([]Recorder, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			rs = append(rs, r)
		}
	}

	return &Executor{
		logger:    logger,
		name:      name,
		op:        op,
		recorders: rs,
		now:       time.Now,
	}, nil
}

// Name returns the name the executor logs and records under.
func (e *Executor) Name() string {
	return e.name
}

// Rebind replaces the bound Operation.
// It must not be called while Execute is running on another goroutine,
// callers sharing an Executor are responsible for that synchronisation.
func (e *Executor) Rebind(op Operation) error {
	if isNil(op) {
		return ErrInvalidArgument
	}
	e.op = op
	return nil
}

// Execute invokes the bound Operation exactly once and logs how long it took.
//
// The Operation's error is returned as is. If the Operation panics the
// measurement is still logged and recorded, then the panic is re-raised
// with its original value.
func (e *Executor) Execute() error {
	m := Measurement{Name: e.name, RunID: uuid.NewString()}
	logger := e.logger.
		WithField("operation", e.name).
		WithField("run_id", m.RunID)

	logger.Debug("Executing operation")

	m.StartedAt = e.now()
	recovered, panicked, err := e.invoke()
	m.FinishedAt = e.now()

	m.Elapsed = m.FinishedAt.Sub(m.StartedAt)
	if m.Elapsed < 0 {
		m.Elapsed = 0
	}
	m.Err = err
	m.Panicked = panicked

	logger = logger.
		WithField("elapsed", m.Elapsed.String()).
		WithField("elapsed_ms", m.Elapsed.Milliseconds())

	switch {
	case panicked:
		logger.WithField("panic", recovered).Error("Operation panicked")
	case err != nil:
		logger.WithError(err).Error("Operation failed")
	default:
		logger.Info("Operation finished")
	}

	e.record(logger, m)

	if panicked {
		panic(recovered)
	}

	return err
}

// invoke calls the Operation, capturing a panic instead of unwinding
// so that the measurement can be completed first.
func (e *Executor) invoke() (recovered any, panicked bool, err error) {
	defer func() {
		if panicked {
			recovered = recover()
		}
	}()

	panicked = true
	err = e.op.Call()
	panicked = false

	return nil, false, err
}

// record hands m to every recorder. Recorders are best effort, a panicking
// recorder is logged and skipped.
func (e *Executor) record(logger logrus.FieldLogger, m Measurement) {
	for _, r := range e.recorders {
		func() {
			defer func() {
				if p := recover(); p != nil {
					logger.WithField("recorder_panic", p).Warn("Recorder failed")
				}
			}()
			r.Record(m)
		}()
	}
}
