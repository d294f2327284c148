package bridge

import (
	"context"

	"go.uber.org/zap"

	"github.com/edgelet/hostbridge/errors"
	"github.com/edgelet/hostbridge/guestmem"
	"github.com/edgelet/hostbridge/heap"
	"github.com/edgelet/hostbridge/hostval"
)

// Resolve settles a request context with a result value. The first
// resolution wins; anything later is dropped with a warn log.
func (b *Bridge) Resolve(ctxH, resultH heap.Handle) {
	req, ok := b.request(ctxH)
	if !ok {
		return
	}
	v, ok := b.value(resultH, "resolution value")
	if !ok {
		return
	}
	req.Resolve(v)
}

// TaskRegister registers a background task on the current request and
// returns its resolver handle. The request scope stays alive until the
// resolver fires.
func (b *Bridge) TaskRegister(ctx context.Context) heap.Handle {
	req := RequestFrom(ctx)
	if req == nil {
		b.log.Warn("task_register outside a request")
		return heap.Null
	}
	return b.put(ctx, req.RegisterTask())
}

// TaskResolve fires a task resolver and frees its handle.
func (b *Bridge) TaskResolve(h heap.Handle) {
	t, ok := b.resolver(h)
	if !ok {
		return
	}
	t.Done()
	b.heap.Free(h)
}

func (b *Bridge) PassThroughOnException(ctxH heap.Handle) {
	req, ok := b.request(ctxH)
	if !ok {
		return
	}
	req.SetPassThrough()
}

// Throw aborts the in-flight guest call with a guest-authored message.
// The message handle may be a string or an error value.
func (b *Bridge) Throw(msgH heap.Handle) {
	msg := "guest exception"
	if v, ok := b.heap.Get(msgH); ok {
		switch m := v.(type) {
		case string:
			msg = m
		case *hostval.ErrorValue:
			msg = m.Message
		}
	}
	panic(errors.Thrown(msg))
}

// Log emits a guest log line through the host logger. Levels: 0 debug,
// 1 info, 2 warn, 3 error; anything else logs as info.
func (b *Bridge) Log(level uint32, ptr, length uint32) {
	msg, err := guestmem.ReadString(b.mem, ptr, length)
	if err != nil {
		b.log.Warn("unreadable guest log line", zap.Error(err))
		return
	}
	guest := b.log.Named("guest")
	switch level {
	case 0:
		guest.Debug(msg)
	case 2:
		guest.Warn(msg)
	case 3:
		guest.Error(msg)
	default:
		guest.Info(msg)
	}
}

// CacheGet returns the named cache namespace as an object handle.
func (b *Bridge) CacheGet(ctx context.Context, nameH heap.Handle) heap.Handle {
	name, ok := b.str(nameH)
	if !ok {
		return heap.Null
	}
	return b.put(ctx, b.services.Caches().Get(name).Object())
}

// RatelimiterGet returns the named rate limiter as a handle usable with
// ratelimit_check.
func (b *Bridge) RatelimiterGet(ctx context.Context, nameH heap.Handle) heap.Handle {
	name, ok := b.str(nameH)
	if !ok {
		return heap.Null
	}
	return b.put(ctx, b.services.Limiters().Get(name))
}

// RandomBytes fills length bytes of guest memory at ptr from the OS
// entropy source.
func (b *Bridge) RandomBytes(ptr, length uint32) {
	buf, err := b.services.RandomBytes(int(length))
	if err != nil {
		b.log.Warn("random_bytes failed", zap.Error(err))
		return
	}
	if err := b.mem.Write(ptr, buf); err != nil {
		b.log.Warn("random_bytes write failed", zap.Error(err))
	}
}

func (b *Bridge) UUID(ctx context.Context) heap.Handle {
	return b.put(ctx, b.services.NewUUID())
}

func (b *Bridge) CryptoEngine(ctx context.Context) heap.Handle {
	return b.put(ctx, b.services.Crypto().Object())
}
