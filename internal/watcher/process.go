package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/mickyco94/minuteur/internal/config"
	"github.com/mitchellh/go-ps"
	"github.com/sirupsen/logrus"
)

const defaultProcessInterval = 100 * time.Millisecond

type processEntry struct {
	executable string
	state      config.State
	//running is the last observed state of the executable
	running bool
	handler func()
}

// Process triggers handlers when a process with a given executable name
// starts or exits, detected by polling the process table.
type Process struct {
	runningMu sync.Mutex
	isRunning bool
	stopped   bool
	close     chan struct{}
	done      chan struct{}

	logger   logrus.FieldLogger
	interval time.Duration
	source   func() ([]ps.Process, error)

	entries []*processEntry
}

func NewProcess(logger logrus.FieldLogger) *Process {
	return &Process{
		close:    make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger,
		interval: defaultProcessInterval,
		source:   ps.Processes,
	}
}

// HandleFunc registers handler to be executed every time the executable
// transitions into the configured state.
func (p *Process) HandleFunc(condition *config.Process, handler func()) error {
	if condition.State != config.Open && condition.State != config.Close {
		return ErrUnsupportedState
	}

	p.entries = append(p.entries, &processEntry{
		executable: condition.Executable,
		state:      condition.State,
		handler:    handler,
	})

	return nil
}

// Run polls the process table, blocking until Stop is called or the
// process table cannot be read.
//
// The state at the time Run is called is the baseline, processes that are
// already open do not trigger an open handler. Run returns straight away
// when Stop has already been called.
func (p *Process) Run() error {
	p.runningMu.Lock()
	if p.stopped {
		p.runningMu.Unlock()
		return nil
	}
	if p.isRunning {
		p.runningMu.Unlock()
		return ErrAlreadyRunning
	}
	p.isRunning = true
	p.runningMu.Unlock()

	defer close(p.done)

	if err := p.poll(false); err != nil {
		return err
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.close:
			return nil
		case <-ticker.C:
			if err := p.poll(true); err != nil {
				p.logger.WithError(err).Error("Failed to list processes")
				return err
			}
		}
	}
}

func (p *Process) poll(dispatch bool) error {
	processes, err := p.source()
	if err != nil {
		return err
	}

	open := make(map[string]struct{}, len(processes))
	for _, process := range processes {
		open[process.Executable()] = struct{}{}
	}

	for _, entry := range p.entries {
		_, running := open[entry.executable]

		if dispatch {
			opened := running && !entry.running && entry.state == config.Open
			closed := !running && entry.running && entry.state == config.Close
			if opened || closed {
				entry.handler()
			}
		}

		entry.running = running
	}

	return nil
}

// Stop signals Run to return and waits for it until ctx is done.
// Stopping a watcher that has not been run yet keeps it from ever running.
func (p *Process) Stop(ctx context.Context) error {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()

	if p.stopped {
		return ErrAlreadyStopped
	}
	p.stopped = true

	close(p.close)

	if !p.isRunning {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return nil
	}
}
