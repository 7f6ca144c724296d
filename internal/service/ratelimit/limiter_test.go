package ratelimit

import (
	"testing"
	"time"
)

func TestAllowConsumesBurst(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		if !l.Allow("k", 3, 1) {
			t.Fatalf("call %d should be allowed within burst", i+1)
		}
	}
	if l.Allow("k", 3, 1) {
		t.Fatal("burst exhausted, call should be denied")
	}
}

func TestAllowRefills(t *testing.T) {
	l := New()
	now := time.Now()
	l.now = func() time.Time { return now }

	if !l.Allow("k", 1, 2) {
		t.Fatal("first call should be allowed")
	}
	if l.Allow("k", 1, 2) {
		t.Fatal("bucket should be empty")
	}

	// 2 tokens/sec: half a second refills one token
	now = now.Add(500 * time.Millisecond)
	if !l.Allow("k", 1, 2) {
		t.Fatal("bucket should have refilled")
	}
}

func TestAllowKeysAreIndependent(t *testing.T) {
	l := New()
	if !l.Allow("a", 1, 1) {
		t.Fatal("first key should be allowed")
	}
	if !l.Allow("b", 1, 1) {
		t.Fatal("second key must not share the first key's bucket")
	}
}
