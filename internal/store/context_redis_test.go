package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/C4rlos-asx/IA-con-recuerdos/pkg/domain"
)

func newContextStore(t *testing.T, window int) (*RedisContextStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisContextStore(client, window, time.Hour), mr
}

func TestContextStoreRoundTrip(t *testing.T) {
	cs, _ := newContextStore(t, 10)
	ctx := context.Background()

	entries := []domain.ContextEntry{
		{Role: domain.RoleUser, Content: "Hola"},
		{Role: domain.RoleAssistant, Content: "¿En qué puedo ayudarte?"},
	}
	for _, e := range entries {
		if err := cs.Append(ctx, "u1", e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := cs.Recent(ctx, "u1")
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0] != entries[0] || got[1] != entries[1] {
		t.Fatalf("entries out of order: %+v", got)
	}
}

func TestContextStoreTrimsToWindow(t *testing.T) {
	cs, _ := newContextStore(t, 3)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		entry := domain.ContextEntry{Role: domain.RoleUser, Content: string(rune('a' + i))}
		if err := cs.Append(ctx, "u1", entry); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	got, err := cs.Recent(ctx, "u1")
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected window of 3, got %d", len(got))
	}
	if got[0].Content != "d" || got[2].Content != "f" {
		t.Fatalf("expected newest 3 entries, got %+v", got)
	}
}

func TestContextStoreExpires(t *testing.T) {
	cs, mr := newContextStore(t, 10)
	ctx := context.Background()

	if err := cs.Append(ctx, "u1", domain.ContextEntry{Role: domain.RoleUser, Content: "Hola"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if ttl := mr.TTL(contextKeyPrefix + "u1"); ttl <= 0 {
		t.Fatalf("expected TTL on context key, got %v", ttl)
	}

	mr.FastForward(2 * time.Hour)
	got, err := cs.Recent(ctx, "u1")
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected expired context, got %+v", got)
	}
}

func TestContextStoreMissingUserIsEmpty(t *testing.T) {
	cs, _ := newContextStore(t, 10)

	got, err := cs.Recent(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty context, got %+v", got)
	}
}
