package chrome

import (
	"context"
	"encoding/json"
	"time"
)

// WaitFor is one condition the caller wants satisfied before treating a
// navigation as complete. Implementations block until satisfied, ctx is
// done, or their own internal deadline elapses.
type WaitFor interface {
	Wait(ctx context.Context, s *Session) *ChromeError
}

// waitForAll composes a list of WaitFor policies as a logical AND,
// running them in order so a caller can combine e.g. IdleNetwork with a
// Selector check.
type waitForAll struct {
	policies []WaitFor
}

// WaitForAll composes policies into one WaitFor satisfied only once every
// one of them is.
func WaitForAll(policies ...WaitFor) WaitFor {
	return &waitForAll{policies: policies}
}

func (w *waitForAll) Wait(ctx context.Context, s *Session) *ChromeError {
	for _, policy := range w.policies {
		if err := policy.Wait(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// Delay is a fixed, unconditional wait, used as a last-resort policy for
// sites with no reliable readiness signal.
type Delay struct {
	Duration time.Duration
}

func (d Delay) Wait(ctx context.Context, _ *Session) *ChromeError {
	timer := time.NewTimer(d.Duration)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return &ChromeError{Message: ctx.Err().Error(), Retryable: true, Cause: ErrCauseWaitTimeout}
	}
}

// IdleNetwork waits until no request has started, finished, or failed for
// Idle, or fails once Timeout elapses without reaching that quiet window.
type IdleNetwork struct {
	Idle    time.Duration
	Timeout time.Duration
}

func (p IdleNetwork) Wait(ctx context.Context, s *Session) *ChromeError {
	feed, cancel := s.SubscribeNetworkActivity()
	defer cancel()

	deadline := time.NewTimer(p.Timeout)
	defer deadline.Stop()
	idleTimer := time.NewTimer(p.Idle)
	defer idleTimer.Stop()

	for {
		select {
		case _, ok := <-feed.Started:
			if !ok {
				return nil
			}
			resetTimer(idleTimer, p.Idle)
		case _, ok := <-feed.Finished:
			if !ok {
				return nil
			}
			resetTimer(idleTimer, p.Idle)
		case _, ok := <-feed.Failed:
			if !ok {
				return nil
			}
			resetTimer(idleTimer, p.Idle)
		case <-idleTimer.C:
			return nil
		case <-deadline.C:
			return &ChromeError{Message: "network never went idle", Retryable: true, Cause: ErrCauseWaitTimeout}
		case <-ctx.Done():
			return &ChromeError{Message: ctx.Err().Error(), Retryable: true, Cause: ErrCauseWaitTimeout}
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// IdleDOM polls document.readyState until it reports "complete" or
// Timeout elapses.
type IdleDOM struct {
	PollInterval time.Duration
	Timeout      time.Duration
}

func (p IdleDOM) Wait(ctx context.Context, s *Session) *ChromeError {
	return pollUntilTrue(ctx, s, `document.readyState === "complete"`, p.PollInterval, p.Timeout)
}

// Selector polls document.querySelector(CSS) until it returns a match or
// Timeout elapses.
type Selector struct {
	CSS          string
	PollInterval time.Duration
	Timeout      time.Duration
}

func (p Selector) Wait(ctx context.Context, s *Session) *ChromeError {
	expr := "!!document.querySelector(" + quoteJS(p.CSS) + ")"
	return pollUntilTrue(ctx, s, expr, p.PollInterval, p.Timeout)
}

func quoteJS(s string) string {
	encoded, _ := json.Marshal(s)
	return string(encoded)
}

func pollUntilTrue(ctx context.Context, s *Session, expression string, interval, timeout time.Duration) *ChromeError {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	check := func() (bool, *ChromeError) {
		result, err := s.Evaluate(ctx, expression)
		if err != nil {
			return false, err
		}
		truthy, _ := result.Value.(bool)
		return truthy, nil
	}

	if ok, err := check(); err != nil {
		return err
	} else if ok {
		return nil
	}

	for {
		select {
		case <-ticker.C:
			ok, err := check()
			if err != nil {
				return err
			}
			if ok {
				return nil
			}
		case <-deadline.C:
			return &ChromeError{Message: "condition never became true: " + expression, Retryable: true, Cause: ErrCauseWaitTimeout}
		case <-ctx.Done():
			return &ChromeError{Message: ctx.Err().Error(), Retryable: true, Cause: ErrCauseWaitTimeout}
		}
	}
}
