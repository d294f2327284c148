package bridge

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/edgelet/hostbridge/heap"
)

// ModuleName is the import namespace the guest links against.
const ModuleName = "hostbridge"

var (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
	f64 = api.ValueTypeF64
)

type hostFunc struct {
	name    string
	fn      api.GoModuleFunc
	params  []api.ValueType
	results []api.ValueType
}

// BuildHostModule instantiates the "hostbridge" host module into r.
// Handles travel as i64, guest pointers and lengths as i32, numbers as
// f64.
func (b *Bridge) BuildHostModule(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	funcs := []hostFunc{
		{"free", func(_ context.Context, _ api.Module, stack []uint64) {
			b.Free(heap.Handle(stack[0]))
		}, []api.ValueType{i64}, nil},

		{"number_get", func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] = api.EncodeF64(b.NumberGet(heap.Handle(stack[0])))
		}, []api.ValueType{i64}, []api.ValueType{f64}},

		{"number_put", func(ctx context.Context, _ api.Module, stack []uint64) {
			stack[0] = uint64(b.NumberPut(ctx, api.DecodeF64(stack[0])))
		}, []api.ValueType{f64}, []api.ValueType{i64}},

		{"string_put", func(ctx context.Context, _ api.Module, stack []uint64) {
			stack[0] = uint64(b.StringPut(ctx, uint32(stack[0]), uint32(stack[1])))
		}, []api.ValueType{i32, i32}, []api.ValueType{i64}},

		{"string_get", func(ctx context.Context, _ api.Module, stack []uint64) {
			stack[0] = b.StringGet(ctx, heap.Handle(stack[0]))
		}, []api.ValueType{i64}, []api.ValueType{i64}},

		{"bytes_put", func(ctx context.Context, _ api.Module, stack []uint64) {
			stack[0] = uint64(b.BytesPut(ctx, uint32(stack[0]), uint32(stack[1])))
		}, []api.ValueType{i32, i32}, []api.ValueType{i64}},

		{"bytes_get", func(ctx context.Context, _ api.Module, stack []uint64) {
			stack[0] = b.BytesGet(ctx, heap.Handle(stack[0]))
		}, []api.ValueType{i64}, []api.ValueType{i64}},

		{"array_push", func(_ context.Context, _ api.Module, stack []uint64) {
			b.ArrayPush(heap.Handle(stack[0]), heap.Handle(stack[1]))
		}, []api.ValueType{i64, i64}, nil},

		{"array_push_number", func(_ context.Context, _ api.Module, stack []uint64) {
			b.ArrayPushNumber(heap.Handle(stack[0]), api.DecodeF64(stack[1]))
		}, []api.ValueType{i64, f64}, nil},

		{"array_get", func(ctx context.Context, _ api.Module, stack []uint64) {
			stack[0] = uint64(b.ArrayGet(ctx, heap.Handle(stack[0]), uint32(stack[1])))
		}, []api.ValueType{i64, i32}, []api.ValueType{i64}},

		{"array_get_number", func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] = api.EncodeF64(b.ArrayGetNumber(heap.Handle(stack[0]), uint32(stack[1])))
		}, []api.ValueType{i64, i32}, []api.ValueType{f64}},

		{"array_len", func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] = api.EncodeF64(b.ArrayLen(heap.Handle(stack[0])))
		}, []api.ValueType{i64}, []api.ValueType{f64}},

		{"object_get", func(ctx context.Context, _ api.Module, stack []uint64) {
			stack[0] = uint64(b.ObjectGet(ctx, heap.Handle(stack[0]), uint32(stack[1]), uint32(stack[2])))
		}, []api.ValueType{i64, i32, i32}, []api.ValueType{i64}},

		{"object_set", func(_ context.Context, _ api.Module, stack []uint64) {
			b.ObjectSet(heap.Handle(stack[0]), uint32(stack[1]), uint32(stack[2]), heap.Handle(stack[3]))
		}, []api.ValueType{i64, i32, i32, i64}, nil},

		{"object_set_number", func(_ context.Context, _ api.Module, stack []uint64) {
			b.ObjectSetNumber(heap.Handle(stack[0]), uint32(stack[1]), uint32(stack[2]), api.DecodeF64(stack[3]))
		}, []api.ValueType{i64, i32, i32, f64}, nil},

		{"object_has", func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] = uint64(b.ObjectHas(heap.Handle(stack[0]), uint32(stack[1]), uint32(stack[2])))
		}, []api.ValueType{i64, i32, i32}, []api.ValueType{i64}},

		{"stringify", func(ctx context.Context, _ api.Module, stack []uint64) {
			stack[0] = uint64(b.Stringify(ctx, heap.Handle(stack[0])))
		}, []api.ValueType{i64}, []api.ValueType{i64}},

		{"parse", func(ctx context.Context, _ api.Module, stack []uint64) {
			stack[0] = uint64(b.Parse(ctx, heap.Handle(stack[0])))
		}, []api.ValueType{i64}, []api.ValueType{i64}},

		{"class_get", func(ctx context.Context, _ api.Module, stack []uint64) {
			stack[0] = uint64(b.ClassGet(ctx, uint32(stack[0])))
		}, []api.ValueType{i32}, []api.ValueType{i64}},

		{"instantiate", func(ctx context.Context, _ api.Module, stack []uint64) {
			stack[0] = uint64(b.Instantiate(ctx, uint32(stack[0]), heap.Handle(stack[1])))
		}, []api.ValueType{i32, i64}, []api.ValueType{i64}},

		{"equal", func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] = uint64(b.Equal(heap.Handle(stack[0]), heap.Handle(stack[1])))
		}, []api.ValueType{i64, i64}, []api.ValueType{i64}},

		{"deep_equal", func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] = uint64(b.DeepEqual(heap.Handle(stack[0]), heap.Handle(stack[1])))
		}, []api.ValueType{i64, i64}, []api.ValueType{i64}},

		{"instance_of", func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] = uint64(b.InstanceOf(uint32(stack[0]), heap.Handle(stack[1])))
		}, []api.ValueType{i32, i64}, []api.ValueType{i64}},

		{"call", func(ctx context.Context, _ api.Module, stack []uint64) {
			stack[0] = uint64(b.Call(ctx, heap.Handle(stack[0]), heap.Handle(stack[1])))
		}, []api.ValueType{i64, i64}, []api.ValueType{i64}},

		{"call_async", func(ctx context.Context, _ api.Module, stack []uint64) {
			stack[0] = uint64(b.CallAsync(ctx, heap.Handle(stack[0]), heap.Handle(stack[1])))
		}, []api.ValueType{i64, i64}, []api.ValueType{i64}},

		{"fetch", func(ctx context.Context, _ api.Module, stack []uint64) {
			stack[0] = uint64(b.Fetch(ctx, heap.Handle(stack[0])))
		}, []api.ValueType{i64}, []api.ValueType{i64}},

		{"ratelimit_check", func(ctx context.Context, _ api.Module, stack []uint64) {
			stack[0] = uint64(b.RatelimitCheck(ctx, heap.Handle(stack[0]), heap.Handle(stack[1])))
		}, []api.ValueType{i64, i64}, []api.ValueType{i64}},

		{"resolve", func(_ context.Context, _ api.Module, stack []uint64) {
			b.Resolve(heap.Handle(stack[0]), heap.Handle(stack[1]))
		}, []api.ValueType{i64, i64}, nil},

		{"task_register", func(ctx context.Context, _ api.Module, stack []uint64) {
			stack[0] = uint64(b.TaskRegister(ctx))
		}, nil, []api.ValueType{i64}},

		{"task_resolve", func(_ context.Context, _ api.Module, stack []uint64) {
			b.TaskResolve(heap.Handle(stack[0]))
		}, []api.ValueType{i64}, nil},

		{"pass_through_on_exception", func(_ context.Context, _ api.Module, stack []uint64) {
			b.PassThroughOnException(heap.Handle(stack[0]))
		}, []api.ValueType{i64}, nil},

		{"throw", func(_ context.Context, _ api.Module, stack []uint64) {
			b.Throw(heap.Handle(stack[0]))
		}, []api.ValueType{i64}, nil},

		{"log", func(_ context.Context, _ api.Module, stack []uint64) {
			b.Log(uint32(stack[0]), uint32(stack[1]), uint32(stack[2]))
		}, []api.ValueType{i32, i32, i32}, nil},

		{"cache_get", func(ctx context.Context, _ api.Module, stack []uint64) {
			stack[0] = uint64(b.CacheGet(ctx, heap.Handle(stack[0])))
		}, []api.ValueType{i64}, []api.ValueType{i64}},

		{"ratelimiter_get", func(ctx context.Context, _ api.Module, stack []uint64) {
			stack[0] = uint64(b.RatelimiterGet(ctx, heap.Handle(stack[0])))
		}, []api.ValueType{i64}, []api.ValueType{i64}},

		{"random_bytes", func(_ context.Context, _ api.Module, stack []uint64) {
			b.RandomBytes(uint32(stack[0]), uint32(stack[1]))
		}, []api.ValueType{i32, i32}, nil},

		{"uuid", func(ctx context.Context, _ api.Module, stack []uint64) {
			stack[0] = uint64(b.UUID(ctx))
		}, nil, []api.ValueType{i64}},

		{"crypto_engine", func(ctx context.Context, _ api.Module, stack []uint64) {
			stack[0] = uint64(b.CryptoEngine(ctx))
		}, nil, []api.ValueType{i64}},
	}

	builder := r.NewHostModuleBuilder(ModuleName)
	for _, f := range funcs {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(f.fn, f.params, f.results).
			Export(f.name)
	}
	return builder.Instantiate(ctx)
}
