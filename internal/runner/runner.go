package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mickyco94/minuteur/internal/config"
	"github.com/mickyco94/minuteur/internal/executor"
	"github.com/mickyco94/minuteur/internal/metrics"
	"github.com/mickyco94/minuteur/internal/operation"
	"github.com/mickyco94/minuteur/internal/tracing"
	"github.com/mickyco94/minuteur/internal/watcher"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownLogFormat = errors.New("Unknown log format")
	ErrNoTriggers       = errors.New("No operation has a trigger configured")
)

var (
	shutdownDelay   = time.Second * 5
	pollingInterval = time.Millisecond * 100
)

// NewLogger builds the application logger from the logging configuration
func NewLogger(cfg config.Logging) (*logrus.Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)

	switch cfg.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownLogFormat, cfg.Format)
	}

	return logger, nil
}

// service is a configured operation bound to its executor
type service struct {
	spec     config.OperationSpec
	executor *executor.Executor
}

type Runner struct {
	ctx    context.Context
	logger logrus.FieldLogger
	cfg    *config.Raw

	metrics *metrics.Recorder
	tracing *tracing.Provider

	services []service
}

// new wires every configured operation to an executor up front,
// nothing is executed until Once or Run asks for it
func new(ctx context.Context, cfg *config.Raw, logger logrus.FieldLogger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	provider, err := tracing.NewProvider(ctx, tracing.Config{
		ServiceName: cfg.Tracing.Service,
		Endpoint:    cfg.Tracing.Endpoint,
		Enabled:     cfg.Tracing.Enabled,
	}, logger)
	if err != nil {
		return nil, err
	}

	runner := &Runner{
		ctx:     ctx,
		logger:  logger,
		cfg:     cfg,
		metrics: metrics.NewRecorder(),
		tracing: provider,
	}

	recorders := []executor.Recorder{runner.metrics}
	if cfg.Tracing.Enabled {
		recorders = append(recorders, provider.Recorder())
	}

	for _, spec := range cfg.Operations {
		op, err := runner.construct(spec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", spec.Name, err)
		}

		e, err := executor.New(logger, spec.Name, op, recorders...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", spec.Name, err)
		}

		runner.services = append(runner.services, service{spec: spec, executor: e})
	}

	return runner, nil
}

// OperationConstructor builds the operation for a spec of one operation type
type OperationConstructor func(runner *Runner, spec config.OperationSpec) (executor.Operation, error)

var OperationConstructors = map[config.OperationType]OperationConstructor{
	config.ShellKey: ShellConstructor,
	config.SleepKey: SleepConstructor,
}

func ShellConstructor(runner *Runner, spec config.OperationSpec) (executor.Operation, error) {
	shell := operation.NewShell(runner.ctx, runner.logger.WithField("operation", spec.Name))
	if err := spec.Execute.Decode(shell); err != nil {
		return nil, err
	}
	if err := shell.Validate(); err != nil {
		return nil, err
	}
	return shell, nil
}

func SleepConstructor(runner *Runner, spec config.OperationSpec) (executor.Operation, error) {
	sleep := operation.NewSleep(runner.ctx)
	if err := spec.Execute.Decode(sleep); err != nil {
		return nil, err
	}
	return sleep, nil
}

// construct builds the operation described by spec
func (runner *Runner) construct(spec config.OperationSpec) (executor.Operation, error) {
	constructor, exists := OperationConstructors[config.OperationType(spec.Execute.Type)]
	if !exists {
		return nil, config.ErrUnknownOperationType
	}
	return constructor(runner, spec)
}

// Once executes every configured operation a single time, in the order
// they are configured. A failing operation does not stop the ones after
// it, all failures are returned together.
func Once(ctx context.Context, cfg *config.Raw, logger logrus.FieldLogger) error {
	runner, err := new(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer runner.flush()

	var errs []error
	for _, svc := range runner.services {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		if err := svc.executor.Execute(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", svc.executor.Name(), err))
		}
	}

	return errors.Join(errs...)
}

// flush writes the metrics textfile, if configured, and flushes pending spans
func (runner *Runner) flush() {
	if path := runner.cfg.Metrics.Textfile; path != "" {
		if err := runner.metrics.WriteTextfile(path); err != nil {
			runner.logger.WithError(err).WithField("path", path).Error("Failed to write metrics")
		}
	}

	ctx, done := context.WithTimeout(context.Background(), shutdownDelay)
	defer done()

	if err := runner.tracing.Shutdown(ctx); err != nil {
		runner.logger.WithError(err).Error("Tracing failed to shutdown")
	}
}

// triggers are the watchers operations are bound to by Run, a watcher
// stays nil when no operation uses it
type triggers struct {
	cron    *watcher.Cron
	file    *watcher.File
	process *watcher.Process
	pool    *executor.Pool
}

// Run binds every operation with a trigger to its watcher and executes it on
// the pool each time the trigger fires. Run blocks until ctx is done or a
// watcher fails.
func Run(ctx context.Context, cfg *config.Raw, logger logrus.FieldLogger) error {
	runner, err := new(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer runner.flush()

	t := &triggers{pool: executor.NewPool(logger, cfg.Pool.Size)}

	registered := 0
	for _, svc := range runner.services {
		if svc.spec.Trigger == nil {
			logger.WithField("operation", svc.spec.Name).Warn("Operation has no trigger, skipping")
			continue
		}

		if err := runner.register(t, svc); err != nil {
			return fmt.Errorf("%s: %w", svc.spec.Name, err)
		}
		registered++
	}

	if registered == 0 {
		return ErrNoTriggers
	}

	if err := t.pool.Start(); err != nil {
		return err
	}

	failed := make(chan error, 2)

	if t.file != nil {
		go func() {
			if err := t.file.Run(pollingInterval); err != nil {
				failed <- fmt.Errorf("file watcher: %w", err)
			}
		}()
	}

	if t.process != nil {
		go func() {
			if err := t.process.Run(); err != nil {
				failed <- fmt.Errorf("process watcher: %w", err)
			}
		}()
	}

	if t.cron != nil {
		t.cron.Start()
	}

	// a watcher stopped before its goroutine gets to Run never starts
	defer runner.shutdown(t)

	logger.WithField("operations", registered).Info("Watching for triggers")

	select {
	case <-ctx.Done():
		logger.Debug("Context done, shutting down")
		return nil
	case err := <-failed:
		logger.WithError(err).Error("Watcher failed unexpectedly, shutting down")
		return err
	}
}

// register binds svc to the watcher of its trigger type
func (runner *Runner) register(t *triggers, svc service) error {
	name := svc.spec.Name
	queueJob := func() {
		err := t.pool.Enqueue(executor.Job{
			Service:  name,
			Executor: svc.executor,
		})
		if err != nil {
			runner.logger.WithError(err).WithField("operation", name).Warn("Trigger dropped")
		}
	}

	trigger := svc.spec.Trigger

	switch config.Trigger(trigger.Type) {
	case config.CronKey:
		cronConf := &config.Cron{}
		if err := trigger.Decode(cronConf); err != nil {
			return err
		}
		if t.cron == nil {
			t.cron = watcher.NewCron(runner.logger)
		}
		return t.cron.HandleFunc(cronConf, queueJob)
	case config.FileKey:
		fileConf := &config.File{}
		if err := trigger.Decode(fileConf); err != nil {
			return err
		}
		if t.file == nil {
			t.file = watcher.NewFile(runner.logger)
		}
		return t.file.HandleFunc(fileConf, queueJob)
	case config.ProcessKey:
		processConf := &config.Process{}
		if err := trigger.Decode(processConf); err != nil {
			return err
		}
		if t.process == nil {
			t.process = watcher.NewProcess(runner.logger)
		}
		return t.process.HandleFunc(processConf, queueJob)
	default:
		return config.ErrUnknownTriggerType
	}
}

// shutdown stops the watchers and then drains the pool, giving up on
// anything still running after shutdownDelay
func (runner *Runner) shutdown(t *triggers) {
	wg := &sync.WaitGroup{}
	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownDelay)
	defer done()

	stop := func(name string, stopper func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if err := stopper(shutdownCtx); err != nil {
				runner.logger.WithError(err).Errorf("%s failed to shutdown", name)
			}
		}()
	}

	if t.file != nil {
		stop("File watcher", t.file.Stop)
	}
	if t.cron != nil {
		stop("Cron", t.cron.Stop)
	}
	if t.process != nil {
		stop("Process watcher", t.process.Stop)
	}

	wg.Wait()

	if err := t.pool.Stop(shutdownCtx); err != nil {
		runner.logger.WithError(err).Error("Executors failed to shutdown")
	}
}
