package platform

import (
	"bytes"
	"context"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/edgelet/hostbridge/hostval"
)

func testServices(t *testing.T) *Services {
	t.Helper()
	return New(Config{}, zap.NewNop())
}

func TestFetcher_Do(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Probe") != "yes" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("created"))
	}))
	defer srv.Close()

	headers := hostval.NewObject()
	headers.Set("X-Probe", "yes")
	req := hostval.NewObject()
	req.Set("url", srv.URL)
	req.Set("method", "post")
	req.Set("headers", headers)
	req.Set("body", "payload")

	resp, err := testServices(t).Fetcher().Do(context.Background(), req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if status, _ := resp.Get("status"); status != float64(http.StatusCreated) {
		t.Errorf("status = %v", status)
	}
	if body, _ := resp.Get("body"); body != "created" {
		t.Errorf("body = %v", body)
	}
	respHeaders, _ := resp.Get("headers")
	if ct, _ := respHeaders.(*hostval.Object).Get("Content-Type"); ct != "text/plain" {
		t.Errorf("Content-Type = %v", ct)
	}
}

func TestFetcher_Do_MissingURL(t *testing.T) {
	if _, err := testServices(t).Fetcher().Do(context.Background(), hostval.NewObject()); err == nil {
		t.Error("expected error for request without url")
	}
}

func TestFetcher_Do_TransportError(t *testing.T) {
	req := hostval.NewObject()
	req.Set("url", "http://127.0.0.1:1/unreachable")
	if _, err := testServices(t).Fetcher().Do(context.Background(), req); err == nil {
		t.Error("expected transport error")
	}
}

func TestLimiter_Check(t *testing.T) {
	set := NewLimiterSet(1, 2, zap.NewNop())
	l := set.Get("api")

	if !l.Check("alice") {
		t.Error("first token should be granted")
	}
	if !l.Check("alice") {
		t.Error("burst should allow a second token")
	}
	if l.Check("alice") {
		t.Error("burst exhausted, should deny")
	}
	// Separate key has its own bucket.
	if !l.Check("bob") {
		t.Error("fresh key should be granted")
	}
	if l.Keys() != 2 {
		t.Errorf("expected 2 keys, got %d", l.Keys())
	}
}

func TestLimiter_FailClosed(t *testing.T) {
	var l *Limiter
	if l.Check("anything") {
		t.Error("nil limiter must deny")
	}
}

func TestLimiterSet_SameName(t *testing.T) {
	set := NewLimiterSet(1, 1, zap.NewNop())
	if set.Get("x") != set.Get("x") {
		t.Error("same name should return the same limiter")
	}
}

func TestCache_TTL(t *testing.T) {
	set := NewCacheSet(50 * time.Millisecond)
	c := set.Get("sessions")

	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put("k", "v")
	if v, ok := c.Get("k"); !ok || v != "v" {
		t.Fatalf("expected hit, got %v %v", v, ok)
	}

	now = now.Add(100 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expired entry should miss")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be evicted, len = %d", c.Len())
	}
}

func TestCache_Object(t *testing.T) {
	c := NewCacheSet(time.Minute).Get("ns")
	obj := c.Object()

	putRaw, _ := obj.Get("put")
	getRaw, _ := obj.Get("get")
	delRaw, _ := obj.Get("delete")

	put := putRaw.(*hostval.Function)
	get := getRaw.(*hostval.Function)
	del := delRaw.(*hostval.Function)

	if _, err := put.Invoke([]any{"k", float64(42)}); err != nil {
		t.Fatalf("put: %v", err)
	}
	v, err := get.Invoke([]any{"k"})
	if err != nil || v != float64(42) {
		t.Fatalf("get = %v, %v", v, err)
	}
	if _, err := del.Invoke([]any{"k"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	v, err = get.Invoke([]any{"k"})
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if _, ok := v.(hostval.Undefined); !ok {
		t.Errorf("deleted key should read as undefined, got %v", v)
	}

	if _, err := get.Invoke(nil); err == nil {
		t.Error("get without key should error")
	}
	if _, err := put.Invoke([]any{float64(1), "v"}); err == nil {
		t.Error("non-string key should error")
	}
}

func TestCacheSet_SameName(t *testing.T) {
	set := NewCacheSet(time.Minute)
	a := set.Get("ns")
	a.Put("k", "v")
	if _, ok := set.Get("ns").Get("k"); !ok {
		t.Error("same namespace should share entries")
	}
}

func TestCryptoEngine_Digest(t *testing.T) {
	e := NewCryptoEngine()

	sum, err := e.Digest("SHA-256", []byte("abc"))
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if hex.EncodeToString(sum) != want {
		t.Errorf("SHA-256(abc) = %x", sum)
	}

	for _, alg := range []string{"SHA3-256", "BLAKE2B-256"} {
		sum, err := e.Digest(alg, []byte("abc"))
		if err != nil {
			t.Fatalf("Digest(%s): %v", alg, err)
		}
		if len(sum) != 32 {
			t.Errorf("%s digest length = %d", alg, len(sum))
		}
	}

	if _, err := e.Digest("MD5", []byte("abc")); err == nil {
		t.Error("unknown algorithm should error")
	}
}

func TestCryptoEngine_HMAC(t *testing.T) {
	e := NewCryptoEngine()
	a, err := e.HMAC("SHA-256", []byte("key"), []byte("msg"))
	if err != nil {
		t.Fatalf("HMAC: %v", err)
	}
	b, _ := e.HMAC("SHA-256", []byte("key"), []byte("msg"))
	if !bytes.Equal(a, b) {
		t.Error("HMAC not deterministic")
	}
	c, _ := e.HMAC("SHA-256", []byte("other"), []byte("msg"))
	if bytes.Equal(a, c) {
		t.Error("different keys should differ")
	}
}

func TestCryptoEngine_Object(t *testing.T) {
	obj := NewCryptoEngine().Object()

	digestRaw, _ := obj.Get("digest")
	sum, err := digestRaw.(*hostval.Function).Invoke([]any{"SHA-256", hostval.Bytes("abc")})
	if err != nil {
		t.Fatalf("digest member: %v", err)
	}
	if len(sum.(hostval.Bytes)) != 32 {
		t.Errorf("digest length = %d", len(sum.(hostval.Bytes)))
	}

	uuidRaw, _ := obj.Get("randomUUID")
	id, err := uuidRaw.(*hostval.Function).Invoke(nil)
	if err != nil {
		t.Fatalf("randomUUID member: %v", err)
	}
	if len(id.(string)) != 36 {
		t.Errorf("uuid = %q", id)
	}
}

func TestServices_RandomBytes(t *testing.T) {
	s := testServices(t)
	a, err := s.RandomBytes(16)
	if err != nil || len(a) != 16 {
		t.Fatalf("RandomBytes: %v %v", a, err)
	}
	b, _ := s.RandomBytes(16)
	if bytes.Equal(a, b) {
		t.Error("two reads should differ")
	}
	if _, err := s.RandomBytes(-1); err == nil {
		t.Error("negative length should error")
	}
}

func TestServices_NewUUID(t *testing.T) {
	s := testServices(t)
	if s.NewUUID() == s.NewUUID() {
		t.Error("uuids should be unique")
	}
}
