package source

import (
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestHistoryChildren(t *testing.T) {
	entries := []redis.Z{
		{Score: 3000, Member: `{"id":"r3","temperature":25,"humidity":50,"timestamp":"2024-05-01T10:00:00Z"}`},
		{Score: 2000, Member: `{"temperature":24,"humidity":51}`},
		{Score: 1000, Member: `not json`},
	}

	children := historyChildren(entries)
	if len(children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(children))
	}

	withID, ok := children["r3"].(map[string]any)
	if !ok {
		t.Fatalf("expected member id to be used as key, got %v", children)
	}
	if withID["timestamp"] != "2024-05-01T10:00:00Z" {
		t.Errorf("explicit timestamp was overwritten: %v", withID["timestamp"])
	}

	filled, ok := children[entryKey(2000, 1)].(map[string]any)
	if !ok {
		t.Fatalf("expected generated key for member without id, got %v", children)
	}
	if filled["timestamp"] != 2000.0 {
		t.Errorf("expected timestamp from score, got %v", filled["timestamp"])
	}

	if raw, ok := children[entryKey(1000, 2)].(string); !ok || raw != "not json" {
		t.Errorf("expected malformed member to be kept raw, got %v", children[entryKey(1000, 2)])
	}
}

func TestKeyspaceChannel(t *testing.T) {
	if got := keyspaceChannel("colmenas/actual"); got != "__keyspace@*__:colmenas/actual" {
		t.Errorf("unexpected channel %q", got)
	}
}
