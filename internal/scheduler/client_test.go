package scheduler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
)

type schedulerConfig struct {
	redisURL string
	queue    string
}

func (c schedulerConfig) GetRedisURL() string       { return c.redisURL }
func (c schedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c schedulerConfig) GetAsynqQueueName() string { return c.queue }
func (c schedulerConfig) GetAsynqConcurrency() int  { return 1 }

func TestClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(schedulerConfig{}); err == nil {
		t.Fatal("expected error for missing redis url")
	}
}

func TestScheduleReservationExpiryEnqueues(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := NewClient(schedulerConfig{redisURL: "redis://" + srv.Addr(), queue: "engine"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer client.Close()

	leadID := uuid.New()
	runAt := time.Now().Add(10 * time.Minute)
	if err := client.ScheduleReservationExpiry(context.Background(), leadID, runAt); err != nil {
		t.Fatalf("ScheduleReservationExpiry failed: %v", err)
	}

	scheduled := false
	for _, key := range srv.Keys() {
		if strings.Contains(key, "engine") && strings.Contains(key, "scheduled") {
			scheduled = true
		}
	}
	if !scheduled {
		t.Fatalf("expected a scheduled task in queue 'engine', keys: %v", srv.Keys())
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var client *Client
	if err := client.ScheduleReservationExpiry(context.Background(), uuid.New(), time.Now()); err != nil {
		t.Fatalf("nil client must be a no-op, got: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("nil client close must be a no-op, got: %v", err)
	}
}

func TestReservationExpirePayloadRoundTrip(t *testing.T) {
	leadID := uuid.New()
	task, err := NewReservationExpireTask(ReservationExpirePayload{LeadID: leadID.String()})
	if err != nil {
		t.Fatalf("NewReservationExpireTask failed: %v", err)
	}
	if task.Type() != TaskReservationExpire {
		t.Fatalf("unexpected task type %q", task.Type())
	}

	payload, err := ParseReservationExpirePayload(task)
	if err != nil {
		t.Fatalf("ParseReservationExpirePayload failed: %v", err)
	}
	if payload.LeadID != leadID.String() {
		t.Fatalf("payload lead id mismatch: %q", payload.LeadID)
	}
}
