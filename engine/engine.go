package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/edgelet/hostbridge/errors"
)

// Engine wraps one wazero runtime. Host modules and guest instances hang
// off it; Close tears everything down.
type Engine struct {
	runtime wazero.Runtime
}

func New(ctx context.Context) (*Engine, error) {
	r := wazero.NewRuntime(ctx)

	// Guests built for wasip1 expect the usual WASI surface alongside
	// the bridge imports.
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		_ = r.Close(ctx)
		return nil, errors.Load("instantiate wasi", err)
	}

	return &Engine{runtime: r}, nil
}

// Runtime exposes the underlying wazero runtime for host-module binding.
func (e *Engine) Runtime() wazero.Runtime {
	return e.runtime
}

// Compile validates and compiles a guest binary. The module must carry
// asyncify exports; the bridge cannot suspend an untransformed module.
func (e *Engine) Compile(ctx context.Context, wasm []byte) (wazero.CompiledModule, error) {
	if !IsAsyncified(wasm) {
		return nil, errors.InvalidInput(errors.PhaseLoad,
			"module is not asyncified (run wasm-opt --asyncify)")
	}
	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("compile module", err)
	}
	return compiled, nil
}

// Instantiate creates the guest instance without running start functions;
// the dispatcher controls every entry into the guest.
func (e *Engine) Instantiate(ctx context.Context, compiled wazero.CompiledModule, name string) (api.Module, error) {
	cfg := wazero.NewModuleConfig().
		WithName(name).
		WithStartFunctions()
	mod, err := e.runtime.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		return nil, errors.Instantiation(err)
	}
	return mod, nil
}

func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}
