package graph

import (
	"context"
	"io"
	"time"
)

// idleTimeoutReader wraps an io.Reader with an idle-read timeout, distinct
// from any wall-clock deadline on the surrounding request: the timer resets
// on each read that returns ≥ 1 byte, so only a stalled transfer (no forward
// progress within the idle window) is aborted, per §5 and §9.
type idleTimeoutReader struct {
	ctx     context.Context
	cancel  context.CancelFunc
	r       io.Reader
	timeout time.Duration
	timer   *time.Timer
}

// newIdleTimeoutReader wraps r so that Read calls abort the returned
// context (and subsequently error) if timeout elapses without any forward
// progress. Used when the reader is available before the request it guards
// is dispatched (e.g. an upload body), so the caller can thread the
// returned context straight into that request.
func newIdleTimeoutReader(parent context.Context, r io.Reader, timeout time.Duration) (*idleTimeoutReader, context.Context) {
	ctx, cancel := context.WithCancel(parent)

	return bindIdleTimeoutReader(ctx, cancel, r, timeout), ctx
}

// bindIdleTimeoutReader wraps r with an idle-read timeout that cancels the
// given ctx/cancel pair directly, rather than deriving a fresh child
// context. Needed for a response body: the body only exists once the
// request has already been sent, so the context controlling its read
// deadline must be created — and passed to the request — before the reader
// is available to wrap. Canceling that shared context is what unblocks a
// stalled resp.Body.Read.
func bindIdleTimeoutReader(ctx context.Context, cancel context.CancelFunc, r io.Reader, timeout time.Duration) *idleTimeoutReader {
	itr := &idleTimeoutReader{
		ctx:     ctx,
		cancel:  cancel,
		r:       r,
		timeout: timeout,
	}

	if timeout > 0 {
		itr.timer = time.AfterFunc(timeout, cancel)
	}

	return itr
}

func (itr *idleTimeoutReader) Read(p []byte) (int, error) {
	if err := itr.ctx.Err(); err != nil {
		return 0, err
	}

	n, err := itr.r.Read(p)
	if n > 0 && itr.timer != nil {
		itr.timer.Reset(itr.timeout)
	}

	return n, err
}

// Close stops the idle timer and releases the context. Safe to call
// multiple times.
func (itr *idleTimeoutReader) Close() error {
	if itr.timer != nil {
		itr.timer.Stop()
	}

	itr.cancel()

	if closer, ok := itr.r.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}
