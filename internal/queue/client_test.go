package queue

import (
	"encoding/json"
	"testing"

	"github.com/leafbox-next/internal/config"
)

func TestDisabledClientDropsTasks(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("expected disabled client")
	}
	if err := client.EnqueueNotificationDispatch(NotificationDispatchPayload{Event: "order_created", OrderID: 1}); err != nil {
		t.Fatalf("disabled enqueue should be a no-op: %v", err)
	}
	if err := client.EnqueueDiscountUsage(DiscountUsagePayload{DiscountCodeID: 1, OrderID: 1}); err != nil {
		t.Fatalf("disabled enqueue should be a no-op: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestNotificationTaskPayload(t *testing.T) {
	task, err := NewNotificationDispatchTask(NotificationDispatchPayload{Event: "payment_confirmed", OrderID: 9, DedupeKey: "k"})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if task.Type() != TaskNotificationDispatch {
		t.Fatalf("unexpected task type: %s", task.Type())
	}
	var decoded NotificationDispatchPayload
	if err := json.Unmarshal(task.Payload(), &decoded); err != nil {
		t.Fatalf("decode payload failed: %v", err)
	}
	if decoded.Event != "payment_confirmed" || decoded.OrderID != 9 || decoded.DedupeKey != "k" {
		t.Fatalf("unexpected payload: %+v", decoded)
	}
}

func TestBuildServerConfigDefaults(t *testing.T) {
	opt, cfg := BuildServerConfig(&config.QueueConfig{Host: "redis", Port: 6380})
	if opt.Addr != "redis:6380" {
		t.Fatalf("unexpected addr: %s", opt.Addr)
	}
	if cfg.Concurrency != 10 {
		t.Fatalf("unexpected concurrency: %d", cfg.Concurrency)
	}
	if cfg.Queues[CriticalQueue] == 0 || cfg.Queues[DefaultQueue] == 0 {
		t.Fatalf("expected both queues weighted: %+v", cfg.Queues)
	}
}

func TestBuildServerConfigOverrides(t *testing.T) {
	opt, cfg := BuildServerConfig(&config.QueueConfig{
		Host:        " ",
		Password:    "secret",
		DB:          3,
		Concurrency: 4,
		Queues:      map[string]int{CriticalQueue: 1},
	})
	if opt.Addr != "127.0.0.1:6379" || opt.Password != "secret" || opt.DB != 3 {
		t.Fatalf("unexpected redis opt: %+v", opt)
	}
	if cfg.Concurrency != 4 || len(cfg.Queues) != 1 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}

	opt, _ = BuildServerConfig(nil)
	if opt.Addr != "127.0.0.1:6379" {
		t.Fatalf("nil config should use local redis, got %s", opt.Addr)
	}
}

func TestEnabledClientUsesConfiguredRetry(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: true, Host: "127.0.0.1", Port: 1})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	defer client.Close()
	if !client.Enabled() {
		t.Fatalf("expected enabled client")
	}
	if client.maxRetry != defaultMaxRetry {
		t.Fatalf("want default retry %d got %d", defaultMaxRetry, client.maxRetry)
	}
}
