package hub

import (
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within 1s")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := New("test")
	go h.Run()
	t.Cleanup(h.Stop)
	waitFor(t, h.IsRunning)
	return h
}

func TestBroadcastReachesClients(t *testing.T) {
	h := startHub(t)

	a := &Client{hub: h, send: make(chan Message, 4)}
	b := &Client{hub: h, send: make(chan Message, 4)}
	h.register <- a
	h.register <- b
	waitFor(t, func() bool { return h.ClientCount() == 2 })

	if err := h.BroadcastJSON(map[string]int{"ticks": 3}); err != nil {
		t.Fatal(err)
	}

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			if string(msg.Data) != `{"ticks":3}` {
				t.Errorf("Data = %s", msg.Data)
			}
		case <-time.After(time.Second):
			t.Fatal("client did not receive broadcast")
		}
	}
}

func TestSlowClientDropped(t *testing.T) {
	h := startHub(t)

	slow := &Client{hub: h, send: make(chan Message, 1)}
	h.register <- slow
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	h.Broadcast(NewJSONMessage([]byte(`1`)))
	h.Broadcast(NewJSONMessage([]byte(`2`)))

	waitFor(t, func() bool { return h.ClientCount() == 0 })
	if h.Dropped() == 0 {
		t.Error("drop should be counted")
	}

	<-slow.send
	if _, ok := <-slow.send; ok {
		t.Error("dropped client's channel should be closed")
	}
}

func TestUnregister(t *testing.T) {
	h := startHub(t)

	c := &Client{hub: h, send: make(chan Message, 1)}
	h.register <- c
	h.unregister <- c
	waitFor(t, func() bool { return h.ClientCount() == 0 })

	// A second unregister must not close the channel twice.
	h.unregister <- c
}

func TestStop(t *testing.T) {
	h := New("stop")
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()
	waitFor(t, h.IsRunning)

	c := &Client{hub: h, send: make(chan Message, 1)}
	h.register <- c

	h.Stop()
	h.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
	if _, ok := <-c.send; ok {
		t.Error("Stop should close client channels")
	}
	if h.IsRunning() {
		t.Error("IsRunning should be false after Stop")
	}
}

func TestBroadcastJSON_EncodeError(t *testing.T) {
	h := New("enc")
	if err := h.BroadcastJSON(make(chan int)); err == nil {
		t.Error("expected encode error")
	}
}

func TestBroadcastNeverBlocks(t *testing.T) {
	h := New("idle") // not running, queue fills up
	for i := 0; i < 300; i++ {
		h.Broadcast(NewJSONMessage([]byte(`{}`)))
	}
	if h.Dropped() != 300-256 {
		t.Errorf("Dropped = %d, want %d", h.Dropped(), 300-256)
	}
}
