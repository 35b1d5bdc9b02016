package cache

import (
	"testing"
	"time"
)

func TestSetAndGet(t *testing.T) {
	c := New()
	c.Set("key1", "value1", 1*time.Second)
	val, ok := c.Get("key1")
	if !ok || val != "value1" {
		t.Fatalf("expected value1, got %v, exists=%v", val, ok)
	}
}

func TestExpiration(t *testing.T) {
	c := New()
	c.Set("key1", "value1", 100*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	_, ok := c.Get("key1")
	if ok {
		t.Fatalf("expected expired key to return false")
	}
}

func TestExpiredEntryEvictedOnRead(t *testing.T) {
	c := New()
	c.Set("key1", "value1", 50*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	c.Get("key1")
	if c.Len() != 0 {
		t.Fatalf("expected expired entry to be evicted, len=%d", c.Len())
	}
}

func TestDelete(t *testing.T) {
	c := New()
	c.Set("key1", "value1", 1*time.Second)
	c.Delete("key1")
	_, ok := c.Get("key1")
	if ok {
		t.Fatalf("expected deleted key to return false")
	}
}

func TestInvalidate(t *testing.T) {
	c := New()
	c.Set("subject:student:S-001", "a", 1*time.Second)
	c.Set("subject:student:S-002", "b", 1*time.Second)
	c.Set("subject:instructor:E-24-001", "c", 1*time.Second)
	c.Invalidate("subject:student:")
	_, ok1 := c.Get("subject:student:S-001")
	_, ok2 := c.Get("subject:student:S-002")
	_, ok3 := c.Get("subject:instructor:E-24-001")
	if ok1 || ok2 {
		t.Fatalf("expected student keys to be invalidated")
	}
	if !ok3 {
		t.Fatalf("expected instructor key to still exist")
	}
}
