package operation

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrTimeoutExceeded is an err that indicates the configured timeout for the command
// has been exceeded.
// Timeout for shell operations can be set by setting the "timeout" property
// in the operation config. The units are in seconds for this field.
var ErrTimeoutExceeded = errors.New("Execution timeout exceeded")

var ErrNegativeTimeout = errors.New("Timeout cannot be negative")

var waitDelay = 500 * time.Millisecond

// NewShell creates a new Shell operation with default
// values set for optional fields in the configuration and all
// dependencies
//
// ctx bounds every command the operation starts, cancelling it
// kills any command still running.
func NewShell(ctx context.Context, logger logrus.FieldLogger) *Shell {
	return &Shell{
		ctx:       ctx,
		logger:    logger,
		Timeout:   5,
		LogOutput: false,
	}
}

// Shell is an operation that runs a command in the
// users defined shell. The command that will be run is specified
// via the Command member of this struct.
//
// Defaults:
// - Logging output is disabled
// - Timeout for commands is 5s, a timeout of 0 disables it
//
// Shell holds no state between calls and can be invoked concurrently.
type Shell struct {
	ctx    context.Context
	logger logrus.FieldLogger

	LogOutput bool   `yaml:"log"`
	Shell     string `yaml:"shell"`
	Command   string `yaml:"command"`
	Timeout   int    `yaml:"timeout"`
}

// shell determines the shell to use for execution of the specified
// command. This is determined either by user configuration or environment variables.
func (shell *Shell) shell() string {
	if shell.Shell != "" {
		return shell.Shell
	}

	s, exists := os.LookupEnv("SHELL")
	if !exists {
		return "sh"
	}
	return s
}

// Validate checks the decoded configuration
func (shell *Shell) Validate() error {
	if shell.Timeout < 0 {
		return ErrNegativeTimeout
	}
	return nil
}

// Call runs the configured command, waiting for it to exit.
// A non-zero exit status is returned as an *exec.ExitError.
func (shell *Shell) Call() error {
	ctx, done := shell.ctx, context.CancelFunc(func() {})
	if shell.Timeout > 0 {
		ctx, done = context.WithTimeout(shell.ctx, time.Second*time.Duration(shell.Timeout))
	}
	defer done()

	sh := shell.shell()

	// the command is a single argument to the shell, quoting is left to it
	cmd := exec.CommandContext(ctx, sh, "-c", shell.Command)
	// children of a killed shell can keep stdout open
	cmd.WaitDelay = waitDelay

	out, err := cmd.Output()

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || os.IsTimeout(err) {
			return ErrTimeoutExceeded
		}
		return err
	}

	if shell.LogOutput {
		shell.logger.
			WithField("stdout", strings.TrimSpace(string(out))).
			WithField("shell", sh).
			WithField("input", shell.Command).
			Info("Shell execution output")
	}

	return nil
}
