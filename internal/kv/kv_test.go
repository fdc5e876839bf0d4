// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package kv

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/tomtom215/curatus/internal/recerr"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	store, err := New(Options{Backend: BackendBadger, BadgerPath: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store
}

func TestGetSetDel(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if _, err := store.Get(ctx, "missing"); !recerr.IsKind(err, recerr.KindNotFound) {
		t.Fatalf("Get missing key: err = %v, want KindNotFound", err)
	}

	// Binary-safe payload: packed float32 bytes contain NUL and high bits.
	payload := []byte{0x00, 0xff, 0x3f, 0x80, 0x00, 0x00}
	if err := store.Set(ctx, "vec:user:1", payload); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := store.Get(ctx, "vec:user:1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Get = %x, want %x", got, payload)
	}

	if err := store.Del(ctx, "vec:user:1", "missing"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, err := store.Get(ctx, "vec:user:1"); !recerr.IsKind(err, recerr.KindNotFound) {
		t.Errorf("Get after Del: err = %v, want KindNotFound", err)
	}
}

func TestSetNX(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	acquired, err := store.SetNX(ctx, "lock:a", []byte("one"), time.Minute)
	if err != nil {
		t.Fatalf("SetNX first: %v", err)
	}
	if !acquired {
		t.Fatal("first SetNX should acquire")
	}

	acquired, err = store.SetNX(ctx, "lock:a", []byte("two"), time.Minute)
	if err != nil {
		t.Fatalf("SetNX second: %v", err)
	}
	if acquired {
		t.Fatal("second SetNX should not acquire")
	}

	got, err := store.Get(ctx, "lock:a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "one" {
		t.Errorf("value = %q, want original holder's token", got)
	}
}

func TestIncr(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for want := int64(1); want <= 3; want++ {
		got, err := store.Incr(ctx, "counter")
		if err != nil {
			t.Fatalf("Incr: %v", err)
		}
		if got != want {
			t.Errorf("Incr = %d, want %d", got, want)
		}
	}
}

func TestListOperations(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.LPush(ctx, "trail", []byte("a")); err != nil {
		t.Fatalf("LPush: %v", err)
	}
	if err := store.LPush(ctx, "trail", []byte("b"), []byte("c")); err != nil {
		t.Fatalf("LPush: %v", err)
	}

	tests := []struct {
		name        string
		start, stop int64
		want        []string
	}{
		{name: "full list", start: 0, stop: -1, want: []string{"c", "b", "a"}},
		{name: "head", start: 0, stop: 0, want: []string{"c"}},
		{name: "tail via negative", start: -2, stop: -1, want: []string{"b", "a"}},
		{name: "stop past end clamps", start: 1, stop: 100, want: []string{"b", "a"}},
		{name: "inverted range empty", start: 2, stop: 1, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.LRange(ctx, "trail", tt.start, tt.stop)
			if err != nil {
				t.Fatalf("LRange: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("LRange returned %d elements, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if string(got[i]) != tt.want[i] {
					t.Errorf("element %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}

	t.Run("trim keeps newest", func(t *testing.T) {
		if err := store.LTrim(ctx, "trail", 0, 1); err != nil {
			t.Fatalf("LTrim: %v", err)
		}
		got, err := store.LRange(ctx, "trail", 0, -1)
		if err != nil {
			t.Fatalf("LRange: %v", err)
		}
		if len(got) != 2 || string(got[0]) != "c" || string(got[1]) != "b" {
			t.Errorf("after LTrim list = %q, want [c b]", got)
		}
	})

	t.Run("range on missing key is empty", func(t *testing.T) {
		got, err := store.LRange(ctx, "nope", 0, -1)
		if err != nil {
			t.Fatalf("LRange: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("LRange on missing key = %d elements, want 0", len(got))
		}
	})
}

func TestHashOperations(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.HSet(ctx, "weights:7", "genres", []byte(`{"drama":0.4}`)); err != nil {
		t.Fatalf("HSet: %v", err)
	}
	if err := store.HSet(ctx, "weights:7", "decades", []byte(`{"2010s":0.3}`)); err != nil {
		t.Fatalf("HSet: %v", err)
	}

	got, err := store.HGet(ctx, "weights:7", "genres")
	if err != nil {
		t.Fatalf("HGet: %v", err)
	}
	if string(got) != `{"drama":0.4}` {
		t.Errorf("HGet = %s", got)
	}

	if _, err := store.HGet(ctx, "weights:7", "missing"); !recerr.IsKind(err, recerr.KindNotFound) {
		t.Errorf("HGet missing field: err = %v, want KindNotFound", err)
	}

	all, err := store.HGetAll(ctx, "weights:7")
	if err != nil {
		t.Fatalf("HGetAll: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("HGetAll returned %d fields, want 2", len(all))
	}

	// Hash fields must not leak into the flat keyspace.
	if _, err := store.Get(ctx, "weights:7"); !recerr.IsKind(err, recerr.KindNotFound) {
		t.Errorf("Get on hash key: err = %v, want KindNotFound", err)
	}
}

func TestSetExExpires(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.SetEx(ctx, "ephemeral", []byte("x"), 50*time.Millisecond); err != nil {
		t.Fatalf("SetEx: %v", err)
	}
	if _, err := store.Get(ctx, "ephemeral"); err != nil {
		t.Fatalf("Get before expiry: %v", err)
	}

	time.Sleep(80 * time.Millisecond)
	if _, err := store.Get(ctx, "ephemeral"); !recerr.IsKind(err, recerr.KindNotFound) {
		t.Errorf("Get after expiry: err = %v, want KindNotFound", err)
	}
}

func TestNormalizeRange(t *testing.T) {
	tests := []struct {
		name            string
		start, stop, n  int64
		wantLo, wantHi  int64
		wantOK          bool
	}{
		{name: "full", start: 0, stop: -1, n: 5, wantLo: 0, wantHi: 4, wantOK: true},
		{name: "negative both", start: -3, stop: -2, n: 5, wantLo: 2, wantHi: 3, wantOK: true},
		{name: "start past end", start: 9, stop: 10, n: 5, wantOK: false},
		{name: "empty list", start: 0, stop: -1, n: 0, wantOK: false},
		{name: "start clamped", start: -10, stop: 1, n: 3, wantLo: 0, wantHi: 1, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi, ok := normalizeRange(tt.start, tt.stop, tt.n)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && (lo != tt.wantLo || hi != tt.wantHi) {
				t.Errorf("range = [%d, %d], want [%d, %d]", lo, hi, tt.wantLo, tt.wantHi)
			}
		})
	}
}
