package cron

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type mockLockStore struct {
	data map[string]string
}

func newMockLockStore() *mockLockStore {
	return &mockLockStore{data: map[string]string{}}
}

func (m *mockLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, exists := m.data[key]; exists {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *mockLockStore) Get(_ context.Context, key string) (string, error) {
	value, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (m *mockLockStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func TestRedisLockExclusive(t *testing.T) {
	store := newMockLockStore()
	ctx := context.Background()

	first, err := NewRedisLock(store, "portal:lock:cron", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	second, err := NewRedisLock(store, "portal:lock:cron", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}

	ok, err := first.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("expected first acquire to win: ok=%v err=%v", ok, err)
	}
	ok, err = second.Acquire(ctx)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if ok {
		t.Fatal("expected second acquire to lose")
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err = second.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("expected acquire after release to win: ok=%v err=%v", ok, err)
	}
}

func TestRedisLockReleaseOnlyOwn(t *testing.T) {
	store := newMockLockStore()
	ctx := context.Background()

	holder, _ := NewRedisLock(store, "portal:lock:cron", time.Minute)
	bystander, _ := NewRedisLock(store, "portal:lock:cron", time.Minute)

	if ok, _ := holder.Acquire(ctx); !ok {
		t.Fatal("holder should acquire")
	}
	// A lock that never acquired must not free someone else's hold.
	if err := bystander.Release(ctx); err != nil {
		t.Fatalf("bystander release: %v", err)
	}
	if ok, _ := bystander.Acquire(ctx); ok {
		t.Fatal("lock should still be held")
	}
}

func TestRegistryOrderAndNilFiltering(t *testing.T) {
	registry := NewRegistry(nil, stubJob{name: "a"}, stubJob{name: "b"})
	registry.Register(nil)
	registry.Register(stubJob{name: "c"})

	jobs := registry.Jobs()
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(jobs))
	}
	for i, want := range []string{"a", "b", "c"} {
		if jobs[i].Name() != want {
			t.Fatalf("expected job %q at %d, got %q", want, i, jobs[i].Name())
		}
	}
}

type stubJob struct {
	name string
}

func (s stubJob) Name() string              { return s.name }
func (s stubJob) Run(context.Context) error { return nil }
