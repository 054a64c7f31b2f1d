//go:build integration || e2e

package testutil

import (
	"context"
	"testing"

	"github.com/go-redis/redis/v8"
)

const retainedHashKey = "sds:retained"

// SetRetained seeds the redistransport retained hash directly, bypassing
// the transport, so a test can assert late-subscriber delivery without
// first publishing through a live connection.
func SetRetained(t *testing.T, db int, topic, payload string) {
	t.Helper()
	client := RedisClient(t, db)
	if err := client.HSet(context.Background(), retainedHashKey, topic, payload).Err(); err != nil {
		t.Fatalf("seeding retained %s: %v", topic, err)
	}
}

// RetainedValue reads the redistransport retained hash for topic.
func RetainedValue(t *testing.T, db int, topic string) (string, bool) {
	t.Helper()
	client := RedisClient(t, db)
	v, err := client.HGet(context.Background(), retainedHashKey, topic).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		t.Fatalf("reading retained %s: %v", topic, err)
	}
	return v, true
}

// HeartbeatExists checks whether a redistransport LWT heartbeat key for
// topic is still present (i.e. the owning connection hasn't expired).
func HeartbeatExists(t *testing.T, db int, topic string) bool {
	t.Helper()
	client := RedisClient(t, db)
	n, err := client.Exists(context.Background(), "sds:heartbeat:"+topic).Result()
	if err != nil {
		t.Fatalf("checking heartbeat for %s: %v", topic, err)
	}
	return n > 0
}
