package pipeline

import (
	"context"
	"time"
)

func alwaysRetry(error) bool { return true }

func neverRetry(error) bool { return false }

// retry calls fn until it succeeds, the error is not retryable, or the
// configured retries are spent, sleeping with exponential backoff between
// attempts. Each attempt runs detached from ctx cancellation under timeout;
// cancellation only stops further attempts.
func (o *Orchestrator) retry(ctx context.Context, timeout time.Duration, retryable func(error) bool, fn func(context.Context) error) (int, error) {
	backoff := o.cfg.Backoff
	attempts := 0
	for {
		attempts++
		err := o.attempt(ctx, timeout, fn)
		if err == nil || attempts > o.cfg.Retries || !retryable(err) {
			return attempts, err
		}
		if ctx.Err() != nil {
			return attempts, err
		}
		if serr := o.sleep(ctx, backoff); serr != nil {
			return attempts, err
		}
		backoff *= 2
		if o.cfg.MaxBackoff > 0 && backoff > o.cfg.MaxBackoff {
			backoff = o.cfg.MaxBackoff
		}
	}
}

func (o *Orchestrator) attempt(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	callCtx := context.WithoutCancel(ctx)
	var cancel context.CancelFunc
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(callCtx, timeout)
	} else {
		callCtx, cancel = context.WithCancel(callCtx)
	}
	defer cancel()
	return fn(callCtx)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
