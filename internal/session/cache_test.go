package session

import (
	"errors"
	"testing"
	"time"

	"github.com/ytget/ytgram/internal/model"
)

func TestPutThenTake(t *testing.T) {
	c := New(0)

	entry := &model.SelectionEntry{
		Item:    &model.ItemInfo{Title: "test video", URL: "https://youtube.com/watch?v=abc"},
		ReplyTo: 42,
	}
	key := c.Put(entry)
	if key == "" {
		t.Fatal("Expected non-empty key")
	}

	got, err := c.Take(key)
	if err != nil {
		t.Fatalf("Expected entry to be found within TTL, got %v", err)
	}
	if got != entry {
		t.Error("Expected the exact stored entry back")
	}
}

func TestTakeConsumesEntry(t *testing.T) {
	c := New(0)
	key := c.Put(&model.SelectionEntry{Item: &model.ItemInfo{Title: "once"}})

	if _, err := c.Take(key); err != nil {
		t.Fatalf("Expected first take to succeed, got %v", err)
	}
	if _, err := c.Take(key); !errors.Is(err, model.ErrSessionExpired) {
		t.Errorf("Expected ErrSessionExpired on second take, got %v", err)
	}
}

func TestTakeUnknownKey(t *testing.T) {
	c := New(0)
	if _, err := c.Take("never-inserted"); !errors.Is(err, model.ErrSessionExpired) {
		t.Errorf("Expected ErrSessionExpired on unknown key, got %v", err)
	}
}

func TestEntryExpires(t *testing.T) {
	c := New(20 * time.Millisecond)
	key := c.Put(&model.SelectionEntry{Item: &model.ItemInfo{Title: "short lived"}})

	time.Sleep(50 * time.Millisecond)

	if _, err := c.Take(key); !errors.Is(err, model.ErrSessionExpired) {
		t.Errorf("Expected ErrSessionExpired after TTL, got %v", err)
	}
}

func TestKeysAreUnique(t *testing.T) {
	c := New(0)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key := c.Put(&model.SelectionEntry{})
		if seen[key] {
			t.Fatalf("Key generated twice: %s", key)
		}
		seen[key] = true
	}
}
