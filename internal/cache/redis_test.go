package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/leafbox-next/internal/config"
)

func TestDisabledCacheIsNoop(t *testing.T) {
	if err := InitRedis(&config.RedisConfig{Enabled: false}); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if Enabled() || Client() != nil {
		t.Fatalf("cache should be disabled")
	}
	ctx := context.Background()
	var dest map[string]string
	found, err := GetJSON(ctx, "missing", &dest)
	if err != nil || found {
		t.Fatalf("get on disabled cache want miss, got found=%v err=%v", found, err)
	}
	if err := SetJSON(ctx, "k", map[string]string{"a": "b"}, time.Minute); err != nil {
		t.Fatalf("set on disabled cache failed: %v", err)
	}
	won, err := SetNX(ctx, "claim", time.Minute)
	if err != nil || !won {
		t.Fatalf("setnx on disabled cache must grant, got won=%v err=%v", won, err)
	}
}

func TestBuildKey(t *testing.T) {
	s := &store{prefix: "lb"}
	if got := s.key(" setting:shipping "); got != "lb:setting:shipping" {
		t.Fatalf("unexpected key: %s", got)
	}
	if got := s.key(""); got != "lb" {
		t.Fatalf("unexpected empty key: %s", got)
	}
	if err := InitRedis(nil); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if got := BuildKey("k"); !strings.HasSuffix(got, ":k") || strings.HasPrefix(got, ":") {
		t.Fatalf("disabled cache should use the default prefix, got %s", got)
	}
}

func TestGetOrLoadWithoutRedis(t *testing.T) {
	if err := InitRedis(&config.RedisConfig{Enabled: false}); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	calls := 0
	load := func() (map[string]string, error) {
		calls++
		return map[string]string{"flat_fee": "50"}, nil
	}
	for i := 0; i < 2; i++ {
		got, err := GetOrLoad(context.Background(), "setting:shipping", time.Minute, load)
		if err != nil || got["flat_fee"] != "50" {
			t.Fatalf("unexpected result %v err=%v", got, err)
		}
	}
	if calls != 2 {
		t.Fatalf("without redis every call loads, got %d loads", calls)
	}

	boom := errors.New("db down")
	if _, err := GetOrLoad(context.Background(), "k", time.Minute, func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("load error should pass through, got %v", err)
	}
}

func TestEnabledClientLifecycle(t *testing.T) {
	if err := InitRedis(&config.RedisConfig{Enabled: true, Port: 1, Prefix: "lbtest"}); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if !Enabled() || Client() == nil {
		t.Fatalf("expected enabled cache")
	}
	if got := BuildKey("k"); got != "lbtest:k" {
		t.Fatalf("unexpected key %s", got)
	}
	if err := Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if Enabled() {
		t.Fatalf("close should disable the cache")
	}
}
