package engine

import (
	"context"
	"fmt"
)

// Callable is the exported guest function a session drives. wazero's
// api.Function satisfies it; tests use in-process fakes.
type Callable interface {
	Call(ctx context.Context, params ...uint64) ([]uint64, error)
}

// PendingOp represents an async host operation yielded at a suspension
// point. Execute runs off the dispatcher loop; its result is the resume
// value delivered back into the guest.
type PendingOp interface {
	Execute(ctx context.Context) (uint64, error)
}

type StepStatus int

const (
	StepContinue StepStatus = iota // yielded an operation, expects resume
	StepDone                       // execution complete
)

type StepResult struct {
	PendingOp PendingOp
	Error     error
	ErrorKind ErrorKind
	Results   []uint64
	Status    StepStatus
}

// YieldResult carries a completed PendingOp's outcome into the next Step.
type YieldResult struct {
	Error error
	Value uint64
}

// CallSession drives one logical request's guest call through suspension
// points. Each session owns an asyncify stack region; the asyncify module
// state is shared, so Step must only run on the goroutine that owns the
// instance.
type CallSession struct {
	fn          Callable
	pendingOp   PendingOp
	err         error
	asyncify    *Asyncify
	region      StackRegion
	args        []uint64
	result      uint64
	initialized bool
}

func NewCallSession(asyncify *Asyncify, region StackRegion) *CallSession {
	return &CallSession{
		asyncify: asyncify,
		region:   region,
	}
}

func (s *CallSession) SetPending(op PendingOp) {
	s.pendingOp = op
}

func (s *CallSession) Region() StackRegion {
	return s.region
}

func (s *CallSession) takeResult() (uint64, error) {
	return s.result, s.err
}

func (s *CallSession) clearPending() {
	s.pendingOp = nil
	s.result = 0
	s.err = nil
}

// Execute initializes the session for fn(args...). Call Step to advance.
func (s *CallSession) Execute(ctx context.Context, fn Callable, args ...uint64) error {
	if !s.asyncify.IsNormal() {
		return fmt.Errorf("session: asyncify not in normal state")
	}
	s.fn = fn
	s.args = args
	s.initialized = true
	if err := s.asyncify.InitRegion(s.region); err != nil {
		return err
	}
	return nil
}

// Step advances execution. Pass nil for the first call, or the finished
// PendingOp's YieldResult to resume a suspended session. A rewind
// re-invokes the same entry function with the same arguments; the guest
// restores its stack and continues past the suspension point.
func (s *CallSession) Step(ctx context.Context, yr *YieldResult) (StepResult, error) {
	if err := ctx.Err(); err != nil {
		return StepResult{Error: err, ErrorKind: ClassifyError(err)}, err
	}
	if !s.initialized {
		err := fmt.Errorf("session: call Execute first")
		return StepResult{Error: err, ErrorKind: KindInvalid}, err
	}

	if yr != nil {
		s.result = yr.Value
		s.err = yr.Error
		if s.err != nil {
			s.initialized = false
			return StepResult{Error: s.err, ErrorKind: ClassifyError(s.err)}, s.err
		}
		if err := s.asyncify.StartRewind(ctx, s.region); err != nil {
			err = fmt.Errorf("session: start rewind: %w", err)
			return StepResult{Error: err, ErrorKind: KindInternal}, err
		}
	}

	results, callErr := s.fn.Call(ctx, s.args...)

	if s.asyncify.IsUnwinding() {
		if err := s.asyncify.StopUnwind(ctx); err != nil {
			err = fmt.Errorf("session: stop unwind: %w", err)
			return StepResult{Error: err, ErrorKind: KindInternal}, err
		}
		if s.pendingOp == nil {
			err := fmt.Errorf("session: no pending operation after unwind")
			return StepResult{Error: err, ErrorKind: KindInternal}, err
		}
		op := s.pendingOp
		s.pendingOp = nil
		return StepResult{Status: StepContinue, PendingOp: op}, nil
	}

	if callErr != nil {
		s.initialized = false
		return StepResult{Error: callErr, ErrorKind: ClassifyError(callErr)}, callErr
	}

	if !s.asyncify.IsNormal() {
		err := fmt.Errorf("session: unexpected asyncify state after call")
		return StepResult{Error: err, ErrorKind: KindInternal}, err
	}

	s.initialized = false
	return StepResult{Status: StepDone, Results: results}, nil
}

// Run executes to completion, resolving pending operations inline.
// Convenience wrapper over Execute/Step for single-request callers; the
// dispatcher drives Step itself to interleave requests.
func (s *CallSession) Run(ctx context.Context, fn Callable, args ...uint64) ([]uint64, error) {
	if err := s.Execute(ctx, fn, args...); err != nil {
		return nil, err
	}

	var yr *YieldResult
	for {
		sr, err := s.Step(ctx, yr)
		if err != nil {
			return nil, err
		}

		switch sr.Status {
		case StepDone:
			return sr.Results, nil
		case StepContinue:
			val, opErr := sr.PendingOp.Execute(ctx)
			yr = &YieldResult{Value: val, Error: opErr}
		}
	}
}

type ctxKeySession struct{}
type ctxKeyAsyncify struct{}

func WithSession(ctx context.Context, s *CallSession) context.Context {
	return context.WithValue(ctx, ctxKeySession{}, s)
}

func GetSession(ctx context.Context) *CallSession {
	if v := ctx.Value(ctxKeySession{}); v != nil {
		return v.(*CallSession)
	}
	return nil
}

func WithAsyncify(ctx context.Context, a *Asyncify) context.Context {
	return context.WithValue(ctx, ctxKeyAsyncify{}, a)
}

func GetAsyncify(ctx context.Context) *Asyncify {
	if v := ctx.Value(ctxKeyAsyncify{}); v != nil {
		return v.(*Asyncify)
	}
	return nil
}

// Suspend registers op on the current session and starts unwinding into
// its stack region. Called by suspending host handlers.
func Suspend(ctx context.Context, op PendingOp) error {
	session := GetSession(ctx)
	async := GetAsyncify(ctx)

	if session == nil || async == nil {
		return fmt.Errorf("suspend: session or asyncify not in context")
	}

	session.SetPending(op)
	return async.StartUnwind(ctx, session.region)
}

// Resume takes the pending operation's result and stops rewinding.
// Called by suspending host handlers when re-entered during a rewind.
func Resume(ctx context.Context) (uint64, error) {
	session := GetSession(ctx)
	async := GetAsyncify(ctx)

	if session == nil || async == nil {
		return 0, fmt.Errorf("resume: session or asyncify not in context")
	}

	result, err := session.takeResult()
	if err != nil {
		return 0, err
	}

	if err := async.StopRewind(ctx); err != nil {
		return 0, err
	}

	session.clearPending()
	return result, nil
}
