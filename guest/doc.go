// Package guest is the SDK for modules running inside the bridge. It
// declares the hostbridge imports, exports the allocator the host
// marshals through, and wraps raw handles in a typed Value API.
//
// Build guest binaries with GOOS=wasip1 GOARCH=wasm (or TinyGo's wasi
// target) and post-process them with wasm-opt --asyncify; the host
// refuses modules without asyncify exports.
//
// A minimal handler:
//
//	//go:wasmexport handle_fetch
//	func handleFetch(ctx guest.Value) {
//		req := ctx.Get("request")
//		out := guest.NewObject()
//		out.Set("echoed", guest.True)
//		out.SetString("body", req.Get("body").Text())
//		guest.Resolve(ctx, out)
//	}
package guest
