package bridge

import (
	"context"

	"github.com/edgelet/hostbridge/engine"
	"github.com/edgelet/hostbridge/heap"
	"github.com/edgelet/hostbridge/hostval"
	"github.com/edgelet/hostbridge/platform"
)

// suspend yields op through the current session. Re-entered during a
// rewind it consumes the operation's result instead. Without a session
// bound (tests, synchronous embedding) the operation runs inline.
func (b *Bridge) suspend(ctx context.Context, op engine.PendingOp) heap.Handle {
	async := engine.GetAsyncify(ctx)
	if async != nil && async.IsRewinding() {
		v, err := engine.Resume(ctx)
		if err != nil {
			panic(err)
		}
		return heap.Handle(v)
	}

	if err := engine.Suspend(ctx, op); err != nil {
		v, opErr := op.Execute(ctx)
		if opErr != nil {
			panic(opErr)
		}
		return heap.Handle(v)
	}

	// Unwinding: the guest discards this value and re-enters later.
	return heap.Null
}

type pendingCall struct {
	bridge *Bridge
	scope  *heap.Scope
	fn     *hostval.Function
	args   []any
}

func (p *pendingCall) Execute(ctx context.Context) (uint64, error) {
	result, err := p.fn.Invoke(p.args)
	if err != nil {
		return 0, err
	}
	return uint64(p.bridge.heap.Put(p.scope, result)), nil
}

// CallAsync invokes a function handle as a suspending operation: the
// guest unwinds, the invocation runs off-loop, and the result handle is
// the resume value.
func (b *Bridge) CallAsync(ctx context.Context, fnH, argsH heap.Handle) heap.Handle {
	async := engine.GetAsyncify(ctx)
	if async != nil && async.IsRewinding() {
		return b.suspend(ctx, nil)
	}

	fn, ok := b.function(fnH)
	if !ok {
		return heap.Null
	}
	args, ok := b.value(argsH, "call arguments")
	if !ok {
		return heap.Null
	}
	return b.suspend(ctx, &pendingCall{
		bridge: b,
		scope:  ScopeFrom(ctx),
		fn:     fn,
		args:   hostval.Positional(args),
	})
}

type pendingFetch struct {
	bridge *Bridge
	scope  *heap.Scope
	req    *hostval.Object
}

func (p *pendingFetch) Execute(ctx context.Context) (uint64, error) {
	resp, err := p.bridge.services.Fetcher().Do(ctx, p.req)
	if err != nil {
		return 0, err
	}
	return uint64(p.bridge.heap.Put(p.scope, resp)), nil
}

// Fetch performs an outbound HTTP request as a suspending operation. The
// resume value is a response object handle; transport failures abort the
// guest call.
func (b *Bridge) Fetch(ctx context.Context, reqH heap.Handle) heap.Handle {
	async := engine.GetAsyncify(ctx)
	if async != nil && async.IsRewinding() {
		return b.suspend(ctx, nil)
	}

	req, ok := b.object(reqH)
	if !ok {
		return heap.Null
	}
	return b.suspend(ctx, &pendingFetch{
		bridge: b,
		scope:  ScopeFrom(ctx),
		req:    req,
	})
}

type pendingRateCheck struct {
	limiter *platform.Limiter
	key     string
}

func (p *pendingRateCheck) Execute(ctx context.Context) (uint64, error) {
	return uint64(heap.Bool(p.limiter.Check(p.key))), nil
}

// RatelimitCheck asks a limiter handle for one token, suspending while
// the check runs. Fail-closed: stale handles, wrong shapes, and any
// internal failure all read as False.
func (b *Bridge) RatelimitCheck(ctx context.Context, limH, keyH heap.Handle) (out heap.Handle) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Warn("rate limit check aborted, denying")
			out = heap.False
		}
	}()

	async := engine.GetAsyncify(ctx)
	if async != nil && async.IsRewinding() {
		return b.suspend(ctx, nil)
	}

	limiter, ok := b.limiter(limH)
	if !ok {
		return heap.False
	}
	key, ok := b.str(keyH)
	if !ok {
		return heap.False
	}
	return b.suspend(ctx, &pendingRateCheck{limiter: limiter, key: key})
}
