package relay

import "testing"

func TestSubscribePublish(t *testing.T) {
	b := NewBroker()
	id1, ch1 := b.Subscribe()
	_, ch2 := b.Subscribe()

	if got := b.ClientCount(); got != 2 {
		t.Fatalf("ClientCount() = %d, want 2", got)
	}

	b.Publish("win-1", 5)

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case evt := <-ch:
			if evt.WindowID != "win-1" || evt.MessageCount != 5 {
				t.Fatalf("subscriber %d got %+v", i, evt)
			}
		default:
			t.Fatalf("subscriber %d received nothing", i)
		}
	}

	b.Unsubscribe(id1)
	if got := b.ClientCount(); got != 1 {
		t.Fatalf("ClientCount() after Unsubscribe() = %d, want 1", got)
	}
	if _, open := <-ch1; open {
		t.Fatalf("unsubscribed channel still open")
	}
}

func TestPublishDropsWhenSubscriberFull(t *testing.T) {
	b := NewBroker()
	_, ch := b.Subscribe()

	// One more than the buffer; the overflow event must be dropped, not block.
	for i := 0; i <= subscriberBufSize; i++ {
		b.Publish("win-1", i)
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
			continue
		default:
		}
		break
	}
	if received != subscriberBufSize {
		t.Fatalf("received %d events, want %d", received, subscriberBufSize)
	}
}

func TestUnsubscribeUnknownID(t *testing.T) {
	b := NewBroker()
	b.Unsubscribe(99)
	if got := b.ClientCount(); got != 0 {
		t.Fatalf("ClientCount() = %d, want 0", got)
	}
}
