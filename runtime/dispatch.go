package runtime

import (
	"context"

	"go.uber.org/zap"

	"github.com/edgelet/hostbridge/bridge"
	"github.com/edgelet/hostbridge/engine"
	"github.com/edgelet/hostbridge/errors"
	"github.com/edgelet/hostbridge/heap"
	"github.com/edgelet/hostbridge/hostval"
)

// task is one logical request moving through the dispatcher.
type task struct {
	event    Event
	req      *bridge.Request
	scope    *heap.Scope
	entry    engine.Callable
	ctxH     heap.Handle
	session  *engine.CallSession
	region   engine.StackRegion
	finished chan struct{}
}

type resumeMsg struct {
	t  *task
	yr engine.YieldResult
}

// Dispatch runs one logical request: it builds the request context,
// hands it to the dispatcher, and blocks until the resolution channel
// settles or the configured timeout forces a failure. Safe to call from
// any goroutine.
func (r *Runtime) Dispatch(ctx context.Context, event Event, payload *hostval.Object) (any, error) {
	entry, ok := r.entries[event]
	if !ok {
		return nil, errors.NotFound(errors.PhaseDispatch, "entry point", string(event))
	}

	data := hostval.NewObject()
	data.Set("event", string(event))
	if payload != nil {
		data.Set("request", payload)
	}
	envObj := hostval.NewObject()
	for k, v := range r.env {
		envObj.Set(k, v)
	}
	data.Set("env", envObj)

	req := bridge.NewRequest(data, r.log)
	scope := r.heap.NewScope()
	t := &task{
		event:    event,
		req:      req,
		scope:    scope,
		entry:    entry,
		ctxH:     r.heap.Put(scope, req),
		finished: make(chan struct{}),
	}

	dctx, cancel := context.WithTimeout(ctx, r.cfg.RequestTimeout)
	defer cancel()

	select {
	case r.tasks <- t:
	case <-r.done:
		r.heap.Release(scope)
		return nil, errors.NotInitialized(errors.PhaseDispatch, "dispatcher")
	case <-dctx.Done():
		r.heap.Release(scope)
		return nil, errors.Wrap(errors.PhaseDispatch, errors.KindTimeout, dctx.Err(), "request queue full")
	}

	var out bridge.Outcome
	select {
	case out = <-req.Outcome():
	case <-dctx.Done():
		// Forcibly settle; a racing guest resolution still wins the
		// channel and is returned instead.
		req.Fail(errors.Wrap(errors.PhaseResolve, errors.KindTimeout, dctx.Err(), string(event)+" request timed out"))
		out = <-req.Outcome()
	}

	go r.cleanup(t)
	return out.Value, out.Err
}

// cleanup releases the request scope once the session left the guest and
// every registered background task fired. Leaks are the guest's unpaired
// handles; they are reclaimed and counted.
func (r *Runtime) cleanup(t *task) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.RequestTimeout)
	defer cancel()

	select {
	case <-t.finished:
	case <-ctx.Done():
	case <-r.done:
	}
	if err := t.req.WaitIdle(ctx); err != nil {
		r.log.Warn("background tasks still pending at scope release",
			zap.String("event", string(t.event)),
			zap.Int("outstanding", t.req.TasksOutstanding()))
	}

	if leaked := r.heap.Release(t.scope); leaked > 0 {
		r.log.Warn("request leaked handles",
			zap.String("event", string(t.event)),
			zap.Int("count", leaked))
	}
}

// loop is the dispatcher goroutine. It is the only goroutine that enters
// the guest instance; pending operations run elsewhere and report back
// through the resume channel.
func (r *Runtime) loop() {
	for {
		select {
		case <-r.done:
			return
		case t := <-r.tasks:
			r.startTask(t)
		case m := <-r.resumes:
			r.stepTask(m.t, &m.yr)
		}
	}
}

func (r *Runtime) startTask(t *task) {
	region, err := r.acquireRegion()
	if err != nil {
		r.failTask(t, err)
		return
	}
	t.region = region
	t.session = engine.NewCallSession(r.asyncify, region)

	if err := t.session.Execute(r.taskContext(t), t.entry, uint64(t.ctxH)); err != nil {
		r.failTask(t, err)
		return
	}
	r.stepTask(t, nil)
}

// acquireRegion hands out a parked save area, or allocates a fresh one
// in guest memory when the pool is empty. The guest pins regions for the
// instance lifetime, so reuse keeps linear memory bounded no matter how
// many requests flow through. Loop goroutine only.
func (r *Runtime) acquireRegion() (engine.StackRegion, error) {
	if n := len(r.regionPool); n > 0 {
		region := r.regionPool[n-1]
		r.regionPool = r.regionPool[:n-1]
		return region, nil
	}
	addr, err := r.alloc.Alloc(context.Background(), r.cfg.StackSize)
	if err != nil {
		return engine.StackRegion{}, errors.AllocationFailed(errors.PhaseDispatch, r.cfg.StackSize)
	}
	return engine.StackRegion{Addr: addr, Size: r.cfg.StackSize}, nil
}

// releaseRegion parks a finished task's save area for reuse. The session
// re-initializes the region's header words on its next Execute.
func (r *Runtime) releaseRegion(region engine.StackRegion) {
	if region.Size == 0 {
		return
	}
	r.regionPool = append(r.regionPool, region)
}

func (r *Runtime) stepTask(t *task, yr *engine.YieldResult) {
	sr, err := t.session.Step(r.taskContext(t), yr)
	if err != nil {
		r.failTask(t, err)
		return
	}

	switch sr.Status {
	case engine.StepDone:
		if !t.req.Resolved() {
			t.req.Fail(errors.Unresolved(string(t.event)))
		}
		r.releaseRegion(t.region)
		close(t.finished)
	case engine.StepContinue:
		op := sr.PendingOp
		go func() {
			yr := runPendingOp(op)
			select {
			case r.resumes <- resumeMsg{t: t, yr: yr}:
			case <-r.done:
			}
		}()
	}
}

// runPendingOp shields the dispatcher from panicking host operations: a
// panic settles the owning request abnormally instead of crashing the
// process alongside every other in-flight request.
func runPendingOp(op engine.PendingOp) (yr engine.YieldResult) {
	defer func() {
		if rec := recover(); rec != nil {
			if err, ok := rec.(error); ok {
				yr.Error = err
				return
			}
			yr.Error = errors.New(errors.PhaseCall, errors.KindThrown).
				Detail("host operation panicked: %v", rec).
				Build()
		}
	}()
	yr.Value, yr.Error = op.Execute(context.Background())
	return yr
}

// failTask settles a request whose session errored. With the
// pass-through flag set a guest exception degrades to a pass-through
// outcome instead of a failure.
func (r *Runtime) failTask(t *task, err error) {
	if t.req.PassThrough() && errors.IsKind(err, errors.KindThrown) {
		r.log.Warn("guest threw, passing through",
			zap.String("event", string(t.event)),
			zap.Error(err))
		obj := hostval.NewObject()
		obj.Set("passThrough", true)
		t.req.Resolve(obj)
	} else if !t.req.Resolved() {
		t.req.Fail(err)
	}
	r.releaseRegion(t.region)
	close(t.finished)
}

func (r *Runtime) taskContext(t *task) context.Context {
	ctx := context.Background()
	ctx = engine.WithSession(ctx, t.session)
	ctx = engine.WithAsyncify(ctx, r.asyncify)
	ctx = bridge.WithScope(ctx, t.scope)
	ctx = bridge.WithRequest(ctx, t.req)
	return ctx
}
