// Package hostbridge implements an opaque-handle object bridge between a
// sandboxed WebAssembly guest and a dynamic host value heap.
//
// The guest owns linear memory and sees host values only as small integer
// handles; the host owns a table of arbitrary values and an event loop. The
// bridge lets guest code read and mutate host objects, invoke host functions
// synchronously, and suspend on asynchronous host operations without blocking
// other in-flight requests.
//
// # Architecture Overview
//
//	hostbridge/          Root package with Memory and Allocator interfaces
//	├── heap/            Handle table with reserved singletons and generational slots
//	├── hostval/         Host value model, class registry, JSON reflection
//	├── engine/          wazero integration and asyncify suspension protocol
//	├── guestmem/        Guest linear-memory access and guest-side allocation
//	├── bridge/          Host-imported primitive surface bound over wazero
//	├── runtime/         Request dispatcher, contexts, and resolution channel
//	├── platform/        Fetch, rate limiting, caches, crypto, and randomness
//	├── guest/           Guest-side SDK: import stubs and typed value wrappers
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
// Load an asyncified guest module and dispatch an event:
//
//	rt, err := runtime.New(ctx, runtime.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	if err := rt.LoadModule(ctx, wasmBytes); err != nil {
//	    log.Fatal(err)
//	}
//
//	out, err := rt.Dispatch(ctx, runtime.EventFetch, reqObject)
//
// # Concurrency Model
//
// One guest instance serves all requests. At most one logical call stack runs
// at any instant; requests interleave only at suspension points (the declared
// suspending imports). The handle table is shared across requests, with
// per-request scopes accounting for leaked handles.
//
// # Memory Model
//
// WASM linear memory can only grow, never shrink. Buffers handed to the host
// are copied out inside the importing call; buffers handed to the guest are
// allocated through the guest's exported allocator and owned by the guest.
package hostbridge
