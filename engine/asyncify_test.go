package engine

import (
	"context"
	"errors"
	"testing"
)

func TestIsAsyncified(t *testing.T) {
	nonAsync := []byte{
		0x00, 0x61, 0x73, 0x6d, // magic
		0x01, 0x00, 0x00, 0x00, // version
	}

	if IsAsyncified(nonAsync) {
		t.Error("expected non-asyncified module to return false")
	}

	asyncified := append(append([]byte{}, nonAsync...), []byte("asyncify_get_state")...)
	if !IsAsyncified(asyncified) {
		t.Error("expected asyncified module to return true")
	}
}

func TestAsyncify_StateTransitions(t *testing.T) {
	// Without Init, transitions fall back to atomic state only.
	a := NewAsyncify()
	ctx := context.Background()
	region := StackRegion{Addr: 16, Size: 1024}

	if !a.IsNormal() {
		t.Fatal("should be normal initially")
	}

	if err := a.StartUnwind(ctx, region); err != nil {
		t.Fatalf("StartUnwind: %v", err)
	}
	if !a.IsUnwinding() {
		t.Errorf("expected unwinding, state %d", a.State())
	}

	if err := a.StopUnwind(ctx); err != nil {
		t.Fatalf("StopUnwind: %v", err)
	}
	if !a.IsNormal() {
		t.Errorf("expected normal, state %d", a.State())
	}

	if err := a.StartRewind(ctx, region); err != nil {
		t.Fatalf("StartRewind: %v", err)
	}
	if !a.IsRewinding() {
		t.Errorf("expected rewinding, state %d", a.State())
	}

	if err := a.StopRewind(ctx); err != nil {
		t.Fatalf("StopRewind: %v", err)
	}
	if !a.IsNormal() {
		t.Errorf("expected normal, state %d", a.State())
	}
}

func TestAsyncify_RegionOpsWithoutMemory(t *testing.T) {
	a := NewAsyncify()
	region := StackRegion{Addr: 64, Size: 512}

	// No memory bound: region ops are no-ops, not panics.
	if err := a.InitRegion(region); err != nil {
		t.Errorf("InitRegion: %v", err)
	}
	if err := a.ResetRegion(region); err != nil {
		t.Errorf("ResetRegion: %v", err)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorKind
	}{
		{"nil error", nil, KindUnknown},
		{"context canceled", context.Canceled, KindCanceled},
		{"deadline exceeded", context.DeadlineExceeded, KindTimeout},
		{"wrapped canceled", errors.Join(errors.New("wrap"), context.Canceled), KindCanceled},
		{"generic error", errors.New("some error"), KindUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyError(tc.err)
			if got != tc.expected {
				t.Errorf("ClassifyError(%v) = %v, want %v", tc.err, got, tc.expected)
			}
		})
	}
}
