package bridge

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edgelet/hostbridge/hostval"
)

// Outcome is the settled result of one logical request.
type Outcome struct {
	Value any
	Err   error
}

// Request is the per-request context value the guest receives as its
// entry-point argument. It doubles as an object (event, request, env
// live on it) and carries the resolution state: exactly one resolution
// wins, later ones are dropped with a warn log.
type Request struct {
	Object *hostval.Object
	log    *zap.Logger

	mu          sync.Mutex
	resolved    bool
	passThrough bool
	tasks       int

	outcome chan Outcome
}

func NewRequest(obj *hostval.Object, log *zap.Logger) *Request {
	if obj == nil {
		obj = hostval.NewObject()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Request{
		Object:  obj,
		log:     log,
		outcome: make(chan Outcome, 1),
	}
}

// Resolve settles the request with a value. Returns false if the request
// was already settled.
func (r *Request) Resolve(v any) bool {
	return r.settle(Outcome{Value: v})
}

// Fail settles the request with an error.
func (r *Request) Fail(err error) bool {
	return r.settle(Outcome{Err: err})
}

func (r *Request) settle(o Outcome) bool {
	r.mu.Lock()
	if r.resolved {
		r.mu.Unlock()
		r.log.Warn("duplicate request resolution dropped")
		return false
	}
	r.resolved = true
	r.mu.Unlock()

	r.outcome <- o
	return true
}

// Outcome delivers the single settled outcome.
func (r *Request) Outcome() <-chan Outcome {
	return r.outcome
}

func (r *Request) Resolved() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolved
}

// SetPassThrough marks the request to fall back to origin behavior when
// the guest throws instead of surfacing the error.
func (r *Request) SetPassThrough() {
	r.mu.Lock()
	r.passThrough = true
	r.mu.Unlock()
}

func (r *Request) PassThrough() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.passThrough
}

// RegisterTask extends the request's lifetime until the returned
// resolver fires. Scope release waits for all registered tasks.
func (r *Request) RegisterTask() *TaskResolver {
	r.mu.Lock()
	r.tasks++
	r.mu.Unlock()
	return &TaskResolver{req: r}
}

func (r *Request) taskDone() {
	r.mu.Lock()
	r.tasks--
	r.mu.Unlock()
}

// TasksOutstanding returns the number of registered tasks not yet
// resolved.
func (r *Request) TasksOutstanding() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tasks
}

// WaitIdle blocks until every registered task resolved or ctx expires.
func (r *Request) WaitIdle(ctx context.Context) error {
	if r.TasksOutstanding() == 0 {
		return nil
	}
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if r.TasksOutstanding() == 0 {
				return nil
			}
		}
	}
}

// TaskResolver is the handle value backing task_register. Done is
// idempotent.
type TaskResolver struct {
	req  *Request
	once sync.Once
}

func (t *TaskResolver) Done() {
	t.once.Do(t.req.taskDone)
}
