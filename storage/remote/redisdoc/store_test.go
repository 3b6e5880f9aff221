package redisdoc

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core/school"
)

func TestStamp(t *testing.T) {
	at := time.Date(2025, 1, 1, 16, 0, 0, 0, time.UTC)
	out, err := stamp([]byte(`{"name": "Secundaria", "lastUpdated": "old"}`), at)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "Secundaria", got["name"])
	assert.Equal(t, "2025-01-01T16:00:00Z", got["lastUpdated"])

	_, err = stamp([]byte(`nope`), at)
	assert.Error(t, err)
}

// TestServer runs against a live server when REDIS_URL is set.
func TestServer(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx := context.Background()
	s, err := New(ctx, school.RemoteConfig{Provider: school.ProviderRedis, RedisURL: url})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	require.NoError(t, s.rdb.Del(ctx, Key).Err())

	_, ok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	subCtx, cancel := context.WithCancel(ctx)
	changes := make(chan []byte, 4)
	done := make(chan error, 1)
	go func() { done <- s.Subscribe(subCtx, func(doc []byte) { changes <- doc }) }()
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, s.Save(ctx, []byte(`{"name": "Remota"}`)))
	doc, ok, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(doc), `"lastUpdated"`)

	select {
	case got := <-changes:
		assert.Equal(t, doc, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change published")
	}
	cancel()
	assert.NoError(t, <-done)
}
