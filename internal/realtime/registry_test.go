package realtime

import (
	"fmt"
	"sync"
	"testing"
)

func testClient() *Client {
	return &Client{
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
}

func TestRegistryJoinIsIdempotent(t *testing.T) {
	registry := NewRegistry()
	c := testClient()

	registry.Join(c, "article-1")
	registry.Join(c, "article-1")

	if got := len(registry.Members("article-1")); got != 1 {
		t.Fatalf("members = %d, want 1", got)
	}
	if got := registry.SubscriptionCount(); got != 1 {
		t.Fatalf("subscriptions = %d, want 1", got)
	}
}

func TestRegistryIgnoresEmptyArguments(t *testing.T) {
	registry := NewRegistry()
	registry.Join(nil, "article-1")
	registry.Join(testClient(), "")

	if got := registry.RoomCount(); got != 0 {
		t.Fatalf("rooms = %d, want 0", got)
	}
}

func TestRegistryLeaveRemovesEmptyRoom(t *testing.T) {
	registry := NewRegistry()
	a, b := testClient(), testClient()

	registry.Join(a, "article-1")
	registry.Join(b, "article-1")
	registry.Leave(a, "article-1")

	if got := len(registry.Members("article-1")); got != 1 {
		t.Fatalf("members = %d, want 1", got)
	}

	registry.Leave(b, "article-1")
	if got := registry.RoomCount(); got != 0 {
		t.Fatalf("rooms = %d, want 0 after last leave", got)
	}

	// Leaving again is a no-op.
	registry.Leave(b, "article-1")
}

func TestRegistryDropClearsEveryMembership(t *testing.T) {
	registry := NewRegistry()
	c, other := testClient(), testClient()

	registry.Join(c, "article-1")
	registry.Join(c, "article-2")
	registry.Join(other, "article-1")

	registry.Drop(c)

	if got := len(registry.Members("article-1")); got != 1 {
		t.Errorf("article-1 members = %d, want 1", got)
	}
	if got := len(registry.Members("article-2")); got != 0 {
		t.Errorf("article-2 members = %d, want 0", got)
	}
	if got := registry.RoomCount(); got != 1 {
		t.Errorf("rooms = %d, want 1", got)
	}
	if got := registry.SubscriptionCount(); got != 1 {
		t.Errorf("subscriptions = %d, want 1", got)
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	registry := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := testClient()
			room := fmt.Sprintf("article-%d", i%4)
			for j := 0; j < 100; j++ {
				registry.Join(c, room)
				registry.Members(room)
				registry.Leave(c, room)
			}
			registry.Join(c, room)
			registry.Drop(c)
		}(i)
	}
	wg.Wait()

	if got := registry.RoomCount(); got != 0 {
		t.Fatalf("rooms = %d, want 0 after all drops", got)
	}
	if got := registry.SubscriptionCount(); got != 0 {
		t.Fatalf("subscriptions = %d, want 0 after all drops", got)
	}
}
