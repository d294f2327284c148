package engine

import (
	"context"
	"errors"
	"testing"
)

type mockPendingOp struct {
	err    error
	result uint64
	called bool
}

func (m *mockPendingOp) Execute(ctx context.Context) (uint64, error) {
	m.called = true
	return m.result, m.err
}

// plainFn completes without suspending.
type plainFn struct {
	results []uint64
	err     error
	calls   int
}

func (f *plainFn) Call(ctx context.Context, params ...uint64) ([]uint64, error) {
	f.calls++
	return f.results, f.err
}

// suspendingFn suspends once on op, then resumes and returns the yielded
// value. It behaves the way an asyncified guest export does: re-invoked
// during rewind, it picks up where it left off.
type suspendingFn struct {
	op      PendingOp
	resumed uint64
	calls   int
}

func (f *suspendingFn) Call(ctx context.Context, params ...uint64) ([]uint64, error) {
	f.calls++
	a := GetAsyncify(ctx)
	if a.IsRewinding() {
		v, err := Resume(ctx)
		if err != nil {
			return nil, err
		}
		f.resumed = v
		return []uint64{v}, nil
	}
	if err := Suspend(ctx, f.op); err != nil {
		return nil, err
	}
	return nil, nil // stack unwound
}

func sessionContext(s *CallSession, a *Asyncify) context.Context {
	ctx := context.Background()
	ctx = WithAsyncify(ctx, a)
	ctx = WithSession(ctx, s)
	return ctx
}

func TestCallSession_StepWithoutExecute(t *testing.T) {
	s := NewCallSession(NewAsyncify(), StackRegion{Addr: 16, Size: 256})

	_, err := s.Step(context.Background(), nil)
	if err == nil {
		t.Error("expected error when Step called without Execute")
	}
}

func TestCallSession_StepWithCanceledContext(t *testing.T) {
	s := NewCallSession(NewAsyncify(), StackRegion{Addr: 16, Size: 256})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sr, err := s.Step(ctx, nil)
	if err == nil {
		t.Error("expected error with canceled context")
	}
	if sr.ErrorKind != KindCanceled {
		t.Errorf("expected KindCanceled, got %v", sr.ErrorKind)
	}
}

func TestCallSession_CompletesWithoutSuspension(t *testing.T) {
	a := NewAsyncify()
	s := NewCallSession(a, StackRegion{Addr: 16, Size: 256})
	fn := &plainFn{results: []uint64{7}}
	ctx := sessionContext(s, a)

	if err := s.Execute(ctx, fn, 1, 2); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	sr, err := s.Step(ctx, nil)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if sr.Status != StepDone {
		t.Fatalf("expected StepDone, got %v", sr.Status)
	}
	if len(sr.Results) != 1 || sr.Results[0] != 7 {
		t.Errorf("unexpected results %v", sr.Results)
	}
	if fn.calls != 1 {
		t.Errorf("expected 1 call, got %d", fn.calls)
	}
}

func TestCallSession_SuspendResume(t *testing.T) {
	a := NewAsyncify()
	s := NewCallSession(a, StackRegion{Addr: 16, Size: 256})
	op := &mockPendingOp{result: 42}
	fn := &suspendingFn{op: op}
	ctx := sessionContext(s, a)

	if err := s.Execute(ctx, fn); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	sr, err := s.Step(ctx, nil)
	if err != nil {
		t.Fatalf("first Step: %v", err)
	}
	if sr.Status != StepContinue {
		t.Fatalf("expected StepContinue, got %v", sr.Status)
	}
	if sr.PendingOp != op {
		t.Fatal("wrong pending op surfaced")
	}
	if !a.IsNormal() {
		t.Errorf("asyncify should be parked normal between steps, state %d", a.State())
	}

	val, opErr := sr.PendingOp.Execute(ctx)
	if opErr != nil {
		t.Fatalf("op: %v", opErr)
	}

	sr, err = s.Step(ctx, &YieldResult{Value: val})
	if err != nil {
		t.Fatalf("resume Step: %v", err)
	}
	if sr.Status != StepDone {
		t.Fatalf("expected StepDone, got %v", sr.Status)
	}
	if len(sr.Results) != 1 || sr.Results[0] != 42 {
		t.Errorf("unexpected results %v", sr.Results)
	}
	if fn.calls != 2 {
		t.Errorf("expected re-invocation during rewind, calls=%d", fn.calls)
	}
	if fn.resumed != 42 {
		t.Errorf("expected resume value 42, got %d", fn.resumed)
	}
}

func TestCallSession_ResumeWithError(t *testing.T) {
	a := NewAsyncify()
	s := NewCallSession(a, StackRegion{Addr: 16, Size: 256})
	opErr := errors.New("operation failed")
	fn := &suspendingFn{op: &mockPendingOp{err: opErr}}
	ctx := sessionContext(s, a)

	if err := s.Execute(ctx, fn); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	sr, err := s.Step(ctx, nil)
	if err != nil || sr.Status != StepContinue {
		t.Fatalf("expected suspension, got %v / %v", sr.Status, err)
	}

	_, opErrGot := sr.PendingOp.Execute(ctx)
	_, err = s.Step(ctx, &YieldResult{Error: opErrGot})
	if !errors.Is(err, opErr) {
		t.Errorf("expected op error to propagate, got %v", err)
	}
}

func TestCallSession_Run(t *testing.T) {
	a := NewAsyncify()
	s := NewCallSession(a, StackRegion{Addr: 16, Size: 256})
	op := &mockPendingOp{result: 9}
	fn := &suspendingFn{op: op}
	ctx := sessionContext(s, a)

	results, err := s.Run(ctx, fn)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 || results[0] != 9 {
		t.Errorf("unexpected results %v", results)
	}
	if !op.called {
		t.Error("pending op never executed")
	}
}

func TestSuspend_NoContextValues(t *testing.T) {
	err := Suspend(context.Background(), &mockPendingOp{})
	if err == nil {
		t.Error("expected error when session/asyncify not in context")
	}
}

func TestResume_NoContextValues(t *testing.T) {
	if _, err := Resume(context.Background()); err == nil {
		t.Error("expected error when session/asyncify not in context")
	}
}

func TestContextHelpers(t *testing.T) {
	a := NewAsyncify()
	s := NewCallSession(a, StackRegion{})

	ctx := sessionContext(s, a)
	if GetAsyncify(ctx) != a {
		t.Error("failed to get asyncify from context")
	}
	if GetSession(ctx) != s {
		t.Error("failed to get session from context")
	}

	if GetAsyncify(context.Background()) != nil {
		t.Error("should return nil for empty context")
	}
	if GetSession(context.Background()) != nil {
		t.Error("should return nil for empty context")
	}
}
