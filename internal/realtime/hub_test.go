package realtime

import (
	"testing"
)

func testClient(h *Hub, buf int) *Client {
	return &Client{hub: h, send: make(chan []byte, buf)}
}

func TestBroadcastReachesAllClients(t *testing.T) {
	h := NewHub("s1")
	a, b := testClient(h, 4), testClient(h, 4)
	a.Register()
	b.Register()

	h.Publish(map[string]int{"remaining": 9})
	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			if string(msg) != `{"remaining":9}` {
				t.Fatalf("unexpected message %s", msg)
			}
		default:
			t.Fatal("client did not receive broadcast")
		}
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	h := NewHub("s1")
	slow := testClient(h, 1)
	slow.Register()

	h.Broadcast([]byte("1"))
	h.Broadcast([]byte("2"))
	if h.Len() != 0 {
		t.Fatalf("slow client should be dropped, %d left", h.Len())
	}
	<-slow.send
	if _, ok := <-slow.send; ok {
		t.Fatal("send channel should be closed")
	}
}

func TestSendToSingleClient(t *testing.T) {
	h := NewHub("s1")
	a, b := testClient(h, 2), testClient(h, 2)
	a.Register()
	b.Register()

	if !a.Send(map[string]string{"type": "snapshot"}) {
		t.Fatal("send should succeed")
	}
	if len(a.send) != 1 || len(b.send) != 0 {
		t.Fatalf("expected message only for a, got %d/%d", len(a.send), len(b.send))
	}

	h.Unregister(a)
	h.Unregister(a)
	if a.Send("x") {
		t.Fatal("send to an unregistered client must fail")
	}
}

func TestCloseDisconnectsAndRefuses(t *testing.T) {
	h := NewHub("s1")
	a := testClient(h, 1)
	a.Register()
	h.Close()
	if _, ok := <-a.send; ok {
		t.Fatal("close should close client channels")
	}

	late := testClient(h, 1)
	late.Register()
	if _, ok := <-late.send; ok {
		t.Fatal("closed hub must refuse new clients")
	}
	if h.Len() != 0 {
		t.Fatal("closed hub keeps no clients")
	}
}
