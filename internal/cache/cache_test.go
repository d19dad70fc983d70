package cache_test

import (
	"testing"
	"time"

	"github.com/spendtrack/spendtrack/internal/cache"
)

func TestSetGetDelete(t *testing.T) {
	c := cache.New(time.Minute)

	c.Set("k", "v")

	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Fatalf("got %v (%v), want v", got, ok)
	}

	c.Delete("k")

	if _, ok := c.Get("k"); ok {
		t.Fatal("key survived delete")
	}
}

func TestExpiry(t *testing.T) {
	c := cache.New(10 * time.Millisecond)

	c.Set("k", "v")
	time.Sleep(25 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatal("entry should have expired")
	}
}

func TestClear(t *testing.T) {
	c := cache.New(time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	if _, ok := c.Get("a"); ok {
		t.Fatal("cache not cleared")
	}
}
