package operation

import (
	"context"
	"time"
)

// NewSleep creates a Sleep operation that gives up early once ctx is done
func NewSleep(ctx context.Context) *Sleep {
	return &Sleep{ctx: ctx}
}

// Sleep is an operation that pauses for a fixed duration.
// It has no other side effect, which makes it handy for checking
// the timing output of a configuration.
type Sleep struct {
	ctx context.Context

	Duration time.Duration `yaml:"duration"`
}

// Call pauses for Duration, returning the context's error if it is
// done first.
func (s *Sleep) Call() error {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	timer := time.NewTimer(s.Duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
