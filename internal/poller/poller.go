// Package poller repeatedly checks a call's status with a fixed delay until
// the call reaches a terminal state.
package poller

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"oilcall-go/internal/types"
)

// ErrGaveUp is returned when the attempt budget runs out before a terminal state.
var ErrGaveUp = errors.New("poller: call did not reach a terminal state")

var errPending = errors.New("call still in progress")

type FetchFunc func(ctx context.Context) (*types.CallResponse, error)

// Poller waits Interval between fetches. MaxAttempts <= 0 polls until the
// context is cancelled. OnUpdate, if set, sees every status received.
type Poller struct {
	Interval    time.Duration
	MaxAttempts int
	OnUpdate    func(*types.CallResponse)
}

// Wait calls fetch until the returned call is terminal. A fetch error stops
// polling and is returned as is. On ErrGaveUp the last status seen is returned
// alongside the error.
func (p Poller) Wait(ctx context.Context, fetch FetchFunc) (*types.CallResponse, error) {
	var last *types.CallResponse

	op := func() error {
		call, err := fetch(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		last = call
		if p.OnUpdate != nil {
			p.OnUpdate(call)
		}
		if types.IsTerminal(call.CallStatus) {
			return nil
		}
		return errPending
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(p.Interval)
	if p.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
	}

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		if errors.Is(err, errPending) {
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			return last, ErrGaveUp
		}
		return last, err
	}
	return last, nil
}
