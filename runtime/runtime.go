package runtime

import (
	"context"
	"sync"

	"go.uber.org/zap"

	hostbridge "github.com/edgelet/hostbridge"
	"github.com/edgelet/hostbridge/bridge"
	"github.com/edgelet/hostbridge/engine"
	"github.com/edgelet/hostbridge/errors"
	"github.com/edgelet/hostbridge/guestmem"
	"github.com/edgelet/hostbridge/heap"
	"github.com/edgelet/hostbridge/platform"
)

// Event names a guest entry point kind.
type Event string

const (
	EventFetch     Event = "fetch"
	EventScheduled Event = "scheduled"
	EventQueue     Event = "queue"
)

// Guest export names per event kind.
var entryExports = map[Event]string{
	EventFetch:     "handle_fetch",
	EventScheduled: "handle_scheduled",
	EventQueue:     "handle_queue",
}

// Runtime owns one guest instance and everything around it: engine,
// handle table, bridge, platform services, and the dispatcher loop.
type Runtime struct {
	cfg      Config
	log      *zap.Logger
	engine   *engine.Engine
	heap     *heap.Heap
	bridge   *bridge.Bridge
	services *platform.Services
	asyncify *engine.Asyncify
	alloc    hostbridge.Allocator
	env      map[string]string

	entries map[Event]engine.Callable

	// Parked asyncify save areas, reused across requests so guest linear
	// memory stays bounded. Loop goroutine only.
	regionPool []engine.StackRegion

	tasks   chan *task
	resumes chan resumeMsg
	done    chan struct{}

	closeOnce sync.Once
}

// New compiles and instantiates wasm, binds the hostbridge host module,
// and starts the dispatcher. env becomes the request environment object
// every entry point sees.
func New(ctx context.Context, wasm []byte, cfg Config, env map[string]string, log *zap.Logger) (*Runtime, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	eng, err := engine.New(ctx)
	if err != nil {
		return nil, err
	}

	r := newCore(cfg, env, log)
	r.engine = eng

	if _, err := r.bridge.BuildHostModule(ctx, eng.Runtime()); err != nil {
		_ = eng.Close(ctx)
		return nil, errors.Registration(bridge.ModuleName, "host module", err)
	}

	compiled, err := eng.Compile(ctx, wasm)
	if err != nil {
		_ = eng.Close(ctx)
		return nil, err
	}
	mod, err := eng.Instantiate(ctx, compiled, "guest")
	if err != nil {
		_ = eng.Close(ctx)
		return nil, err
	}

	if err := r.asyncify.Init(mod); err != nil {
		_ = eng.Close(ctx)
		return nil, errors.Load("bind asyncify exports", err)
	}

	mem, err := guestmem.NewWazeroMemory(mod)
	if err != nil {
		_ = eng.Close(ctx)
		return nil, err
	}
	alloc, err := guestmem.NewGuestAllocator(mod)
	if err != nil {
		_ = eng.Close(ctx)
		return nil, err
	}
	r.alloc = alloc
	r.bridge.Bind(mem, alloc)

	for event, export := range entryExports {
		if fn := mod.ExportedFunction(export); fn != nil {
			r.entries[event] = fn
		}
	}
	if len(r.entries) == 0 {
		_ = eng.Close(ctx)
		return nil, errors.NotFound(errors.PhaseLoad, "guest entry point", "handle_fetch")
	}

	go r.loop()
	return r, nil
}

// newCore builds a runtime without a guest instance. New finishes the
// wiring; tests install fake entries and an in-process allocator.
func newCore(cfg Config, env map[string]string, log *zap.Logger) *Runtime {
	h := heap.NewWithLimit(cfg.MaxHandles)
	services := platform.New(cfg.platform(), log)
	return &Runtime{
		cfg:      cfg,
		log:      log,
		heap:     h,
		bridge:   bridge.New(h, services, log),
		services: services,
		asyncify: engine.NewAsyncify(),
		env:      env,
		entries:  make(map[Event]engine.Callable),
		tasks:    make(chan *task, cfg.QueueDepth),
		resumes:  make(chan resumeMsg, cfg.QueueDepth),
		done:     make(chan struct{}),
	}
}

func (r *Runtime) Bridge() *bridge.Bridge { return r.bridge }
func (r *Runtime) Heap() *heap.Heap       { return r.heap }

// Stats reports the handle table state for inspection tooling.
func (r *Runtime) Stats() heap.Stats {
	return r.heap.Snapshot()
}

func (r *Runtime) Close(ctx context.Context) error {
	r.closeOnce.Do(func() {
		close(r.done)
	})
	if r.engine != nil {
		return r.engine.Close(ctx)
	}
	return nil
}
