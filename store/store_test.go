package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rushteam/videorec/core"
)

func exerciseStore(t *testing.T, s core.Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "videorec:test:missing"); !core.IsNotFound(err) {
		t.Fatalf("Get missing: err = %v, want not found", err)
	}
	if err := s.Set(ctx, "videorec:test:a", []byte("1")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, "videorec:test:a")
	if err != nil || string(got) != "1" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if err := s.BatchSet(ctx, map[string][]byte{"videorec:test:b": []byte("2"), "videorec:test:c": []byte("3")}); err != nil {
		t.Fatalf("BatchSet: %v", err)
	}
	vals, err := s.BatchGet(ctx, []string{"videorec:test:a", "videorec:test:b", "videorec:test:missing"})
	if err != nil {
		t.Fatalf("BatchGet: %v", err)
	}
	if len(vals) != 2 || string(vals["videorec:test:b"]) != "2" {
		t.Errorf("BatchGet = %v", vals)
	}
	for _, k := range []string{"videorec:test:a", "videorec:test:b", "videorec:test:c"} {
		if err := s.Delete(ctx, k); err != nil {
			t.Fatalf("Delete: %v", err)
		}
	}
	if _, err := s.Get(ctx, "videorec:test:a"); !core.IsNotFound(err) {
		t.Errorf("Get after delete: err = %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	exerciseStore(t, s)
}

func TestMemoryStore_TTL(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	_ = s.Set(ctx, "k", []byte("v"), 1)
	s.mu.Lock()
	s.data["k"].expire = time.Now().Add(-time.Second)
	s.mu.Unlock()

	if _, err := s.Get(ctx, "k"); !core.IsNotFound(err) {
		t.Errorf("expired key: err = %v", err)
	}
	if vals, _ := s.BatchGet(ctx, []string{"k"}); len(vals) != 0 {
		t.Errorf("expired key in BatchGet: %v", vals)
	}
}

func TestMemoryStore_CloseTwice(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}

// 需要真实的 Redis：VIDEOREC_REDIS_ADDR=localhost:6379 go test ./store
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("VIDEOREC_REDIS_ADDR")
	if addr == "" {
		t.Skip("VIDEOREC_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := NewRedisStore(ctx, RedisOptions{Addr: addr, Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestKVHistory(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	h := NewKVHistory(s)
	ctx := context.Background()

	if err := h.SaveHistories(ctx, map[int64][]int64{1: {10, 20, 10}, 2: {30}}); err != nil {
		t.Fatalf("SaveHistories: %v", err)
	}
	got, err := h.GetUserHistory(ctx, 1)
	if err != nil {
		t.Fatalf("GetUserHistory: %v", err)
	}
	want := []int64{10, 20, 10}
	if len(got) != len(want) {
		t.Fatalf("history = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("history = %v, want %v", got, want)
		}
	}

	got, err = h.GetUserHistory(ctx, 99)
	if err != nil || len(got) != 0 {
		t.Errorf("unknown user: %v, %v", got, err)
	}

	_ = s.Set(ctx, "history:3", []byte("not json"))
	if _, err := h.GetUserHistory(ctx, 3); err == nil {
		t.Error("expected decode error")
	}
}
