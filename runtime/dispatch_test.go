package runtime

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/edgelet/hostbridge/bridge"
	"github.com/edgelet/hostbridge/engine"
	"github.com/edgelet/hostbridge/errors"
	"github.com/edgelet/hostbridge/heap"
	"github.com/edgelet/hostbridge/hostval"
)

type bumpAllocator struct {
	next  uint32
	calls int
}

func (a *bumpAllocator) Alloc(_ context.Context, size uint32) (uint32, error) {
	if a.next == 0 {
		a.next = 8
	}
	a.calls++
	ptr := a.next
	a.next += size
	return ptr, nil
}

func (a *bumpAllocator) AllocSentinel(ctx context.Context, size uint32) (uint32, error) {
	return a.Alloc(ctx, size+1)
}

// entryFunc adapts a closure into a guest entry point stand-in.
type entryFunc func(ctx context.Context, ctxH heap.Handle) error

func (f entryFunc) Call(ctx context.Context, params ...uint64) ([]uint64, error) {
	if err := f(ctx, heap.Handle(params[0])); err != nil {
		return nil, err
	}
	return []uint64{0}, nil
}

func newTestRuntime(t *testing.T, cfg Config) *Runtime {
	t.Helper()
	cfg = cfg.withDefaults()
	rt := newCore(cfg, map[string]string{"REGION": "test"}, zap.NewNop())
	rt.alloc = &bumpAllocator{}
	go rt.loop()
	t.Cleanup(func() { _ = rt.Close(context.Background()) })
	return rt
}

func waitLive(t *testing.T, rt *Runtime, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if rt.Heap().Live() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Errorf("heap live = %d, want %d", rt.Heap().Live(), want)
}

func TestDispatch_ScalarEcho(t *testing.T) {
	rt := newTestRuntime(t, Config{})
	b := rt.Bridge()

	rt.entries[EventFetch] = entryFunc(func(ctx context.Context, ctxH heap.Handle) error {
		req := bridge.RequestFrom(ctx)
		payload, _ := req.Object.Get("request")
		body, _ := payload.(*hostval.Object).Get("body")

		out := hostval.NewObject()
		out.Set("echoed", true)
		out.Set("body", body)

		resultH := rt.Heap().Put(bridge.ScopeFrom(ctx), out)
		b.Resolve(ctxH, resultH)
		b.Free(resultH)
		return nil
	})

	payload := hostval.NewObject()
	payload.Set("body", "hello")
	result, err := rt.Dispatch(context.Background(), EventFetch, payload)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	text, err := hostval.Stringify(result)
	if err != nil {
		t.Fatalf("Stringify: %v", err)
	}
	if text != `{"echoed":true,"body":"hello"}` {
		t.Errorf("result = %s", text)
	}

	waitLive(t, rt, 0)
}

func TestDispatch_EnvVisible(t *testing.T) {
	rt := newTestRuntime(t, Config{})

	rt.entries[EventScheduled] = entryFunc(func(ctx context.Context, ctxH heap.Handle) error {
		req := bridge.RequestFrom(ctx)
		env, _ := req.Object.Get("env")
		region, _ := env.(*hostval.Object).Get("REGION")
		h := rt.Heap().Put(bridge.ScopeFrom(ctx), region)
		rt.Bridge().Resolve(ctxH, h)
		return nil
	})

	result, err := rt.Dispatch(context.Background(), EventScheduled, nil)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if result != "test" {
		t.Errorf("env REGION = %v", result)
	}
}

func TestDispatch_UnknownEvent(t *testing.T) {
	rt := newTestRuntime(t, Config{})
	if _, err := rt.Dispatch(context.Background(), EventQueue, nil); !errors.IsKind(err, errors.KindNotFound) {
		t.Errorf("expected not_found, got %v", err)
	}
}

func TestDispatch_UnresolvedSynthesizesFailure(t *testing.T) {
	rt := newTestRuntime(t, Config{RequestTimeout: 5 * time.Second})

	rt.entries[EventFetch] = entryFunc(func(context.Context, heap.Handle) error {
		return nil // returns without resolving
	})

	start := time.Now()
	_, err := rt.Dispatch(context.Background(), EventFetch, nil)
	if !errors.IsKind(err, errors.KindUnresolved) {
		t.Errorf("expected unresolved failure, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("synthesized failure should not wait for the timeout")
	}
}

func TestDispatch_GuestThrow(t *testing.T) {
	rt := newTestRuntime(t, Config{})

	rt.entries[EventFetch] = entryFunc(func(context.Context, heap.Handle) error {
		return errors.Thrown("guest blew up")
	})

	_, err := rt.Dispatch(context.Background(), EventFetch, nil)
	if !errors.IsKind(err, errors.KindThrown) {
		t.Errorf("expected thrown failure, got %v", err)
	}
}

func TestDispatch_PassThroughOnException(t *testing.T) {
	rt := newTestRuntime(t, Config{})

	rt.entries[EventFetch] = entryFunc(func(ctx context.Context, ctxH heap.Handle) error {
		rt.Bridge().PassThroughOnException(ctxH)
		return errors.Thrown("guest blew up")
	})

	result, err := rt.Dispatch(context.Background(), EventFetch, nil)
	if err != nil {
		t.Fatalf("pass-through should settle without error, got %v", err)
	}
	obj, ok := result.(*hostval.Object)
	if !ok {
		t.Fatalf("result = %T", result)
	}
	if v, _ := obj.Get("passThrough"); v != true {
		t.Errorf("passThrough member = %v", v)
	}
}

func TestDispatch_Timeout(t *testing.T) {
	rt := newTestRuntime(t, Config{RequestTimeout: 100 * time.Millisecond})

	rt.entries[EventFetch] = suspendingEntry(rt, time.Second, "late")

	start := time.Now()
	_, err := rt.Dispatch(context.Background(), EventFetch, nil)
	if !errors.IsKind(err, errors.KindTimeout) {
		t.Errorf("expected timeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 600*time.Millisecond {
		t.Errorf("timeout settled after %v", elapsed)
	}

	waitLive(t, rt, 0)
}

// suspendingEntry suspends once on a delayed operation, then resolves
// with the operation's value.
func suspendingEntry(rt *Runtime, delay time.Duration, value any) entryFunc {
	return func(ctx context.Context, ctxH heap.Handle) error {
		if a := engine.GetAsyncify(ctx); a.IsRewinding() {
			v, err := engine.Resume(ctx)
			if err != nil {
				return err
			}
			rt.Bridge().Resolve(ctxH, heap.Handle(v))
			return nil
		}
		return engine.Suspend(ctx, &delayedOp{
			rt:    rt,
			scope: bridge.ScopeFrom(ctx),
			delay: delay,
			value: value,
		})
	}
}

type delayedOp struct {
	rt    *Runtime
	scope *heap.Scope
	delay time.Duration
	value any
}

func (o *delayedOp) Execute(ctx context.Context) (uint64, error) {
	time.Sleep(o.delay)
	return uint64(o.rt.Heap().Put(o.scope, o.value)), nil
}

// Two requests suspend concurrently; the one with the shorter host
// operation must settle first even though it was dispatched second.
func TestDispatch_SuspensionNonBlocking(t *testing.T) {
	rt := newTestRuntime(t, Config{RequestTimeout: 5 * time.Second})

	rt.entries[EventFetch] = suspendingEntry(rt, 150*time.Millisecond, "slow")
	rt.entries[EventQueue] = suspendingEntry(rt, 20*time.Millisecond, "fast")

	order := make(chan string, 2)
	dispatch := func(event Event) {
		v, err := rt.Dispatch(context.Background(), event, nil)
		if err != nil {
			t.Errorf("Dispatch(%s): %v", event, err)
			order <- "error"
			return
		}
		order <- v.(string)
	}

	go dispatch(EventFetch)
	time.Sleep(10 * time.Millisecond) // the slow request suspends first
	go dispatch(EventQueue)

	if first := <-order; first != "fast" {
		t.Errorf("first settled = %q, want fast", first)
	}
	if second := <-order; second != "slow" {
		t.Errorf("second settled = %q, want slow", second)
	}
}

func TestDispatch_BackgroundTaskDelaysRelease(t *testing.T) {
	rt := newTestRuntime(t, Config{})

	var resolverH heap.Handle
	rt.entries[EventFetch] = entryFunc(func(ctx context.Context, ctxH heap.Handle) error {
		resolverH = rt.Bridge().TaskRegister(ctx)
		h := rt.Heap().Put(bridge.ScopeFrom(ctx), "done")
		rt.Bridge().Resolve(ctxH, h)
		return nil
	})

	if _, err := rt.Dispatch(context.Background(), EventFetch, nil); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	// The scope stays alive while the task is outstanding.
	time.Sleep(50 * time.Millisecond)
	if rt.Heap().Live() == 0 {
		t.Fatal("scope released while a background task was outstanding")
	}

	rt.Bridge().TaskResolve(resolverH)
	waitLive(t, rt, 0)
}

// Sequential requests must share one parked stack region; the guest
// pins every allocation, so allocating per request would leak linear
// memory forever.
func TestDispatch_StackRegionReuse(t *testing.T) {
	rt := newTestRuntime(t, Config{})
	alloc := rt.alloc.(*bumpAllocator)

	rt.entries[EventFetch] = entryFunc(func(ctx context.Context, ctxH heap.Handle) error {
		h := rt.Heap().Put(bridge.ScopeFrom(ctx), "ok")
		rt.Bridge().Resolve(ctxH, h)
		return nil
	})

	for i := 0; i < 3; i++ {
		if _, err := rt.Dispatch(context.Background(), EventFetch, nil); err != nil {
			t.Fatalf("Dispatch %d: %v", i, err)
		}
	}

	if alloc.calls != 1 {
		t.Errorf("guest allocations = %d, want 1 region reused across requests", alloc.calls)
	}
}

type panickyOp struct {
	msg string
}

func (o panickyOp) Execute(context.Context) (uint64, error) {
	panic(o.msg)
}

// A host operation that panics must fail only its own request; the
// dispatcher and later requests keep working.
func TestDispatch_PanickingHostOpFailsRequest(t *testing.T) {
	rt := newTestRuntime(t, Config{RequestTimeout: 5 * time.Second})

	rt.entries[EventFetch] = entryFunc(func(ctx context.Context, ctxH heap.Handle) error {
		if a := engine.GetAsyncify(ctx); a.IsRewinding() {
			_, err := engine.Resume(ctx)
			return err
		}
		return engine.Suspend(ctx, panickyOp{msg: "host op exploded"})
	})
	rt.entries[EventQueue] = entryFunc(func(ctx context.Context, ctxH heap.Handle) error {
		h := rt.Heap().Put(bridge.ScopeFrom(ctx), "alive")
		rt.Bridge().Resolve(ctxH, h)
		return nil
	})

	if _, err := rt.Dispatch(context.Background(), EventFetch, nil); err == nil {
		t.Fatal("panicking host op should fail the request")
	}

	result, err := rt.Dispatch(context.Background(), EventQueue, nil)
	if err != nil {
		t.Fatalf("dispatcher should survive a panicking op, got %v", err)
	}
	if result != "alive" {
		t.Errorf("result = %v", result)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if cfg.StackSize != 4096 {
		t.Errorf("StackSize = %v", cfg.StackSize)
	}
	if cfg.MaxHandles != 100000 {
		t.Errorf("MaxHandles = %v", cfg.MaxHandles)
	}
}
