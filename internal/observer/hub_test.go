package observer

import "testing"

func TestNewHubStartsEmpty(t *testing.T) {
	h := NewHub()
	if h.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", h.ClientCount())
	}
}

func TestPublishWithNoClientsDoesNotPanic(t *testing.T) {
	h := NewHub()
	h.Publish(ChannelAccount, map[string]int{"balance": 100})
	if _, ok := h.latest[ChannelAccount]; !ok {
		t.Fatal("expected latest snapshot to be recorded even with no clients")
	}
}
