package cacheproxy

import "testing"

func TestRefreshTriggerAll(t *testing.T) {
	ch := NewRefreshChannel()
	sub := ch.subscribe()
	defer ch.unsubscribe(sub)

	NewRefreshTrigger(ch).Trigger()

	select {
	case msg := <-sub.messages:
		if msg.Kind != RefreshAll {
			t.Errorf("Kind = %v, want RefreshAll", msg.Kind)
		}
	default:
		t.Fatal("expected a message on the subscription")
	}
}

func TestRefreshTriggerByPattern(t *testing.T) {
	ch := NewRefreshChannel()
	sub := ch.subscribe()
	defer ch.unsubscribe(sub)

	NewRefreshTrigger(ch).TriggerByPattern("GET:/api/*")

	msg := <-sub.messages
	if msg.Kind != RefreshPattern || msg.Pattern != "GET:/api/*" {
		t.Errorf("got %+v, want Pattern(\"GET:/api/*\")", msg)
	}
}

func TestRefreshTriggerIsCloneable(t *testing.T) {
	// spec.md §6: RefreshTrigger must be cloneable — copies publish to the
	// same underlying channel.
	ch := NewRefreshChannel()
	sub := ch.subscribe()
	defer ch.unsubscribe(sub)

	t1 := NewRefreshTrigger(ch)
	t2 := t1 // plain struct copy stands in for "clone"
	t2.Trigger()

	select {
	case msg := <-sub.messages:
		if msg.Kind != RefreshAll {
			t.Errorf("Kind = %v, want RefreshAll", msg.Kind)
		}
	default:
		t.Fatal("expected the cloned trigger's publish to reach the original subscription")
	}
}

func TestRefreshChannelNewSubscriberMissesPastMessages(t *testing.T) {
	ch := NewRefreshChannel()
	trigger := NewRefreshTrigger(ch)
	trigger.Trigger()

	sub := ch.subscribe()
	defer ch.unsubscribe(sub)

	select {
	case msg := <-sub.messages:
		t.Fatalf("new subscriber should not observe prior messages, got %+v", msg)
	default:
	}
}

func TestRefreshChannelNoSubscribersDropsSilently(t *testing.T) {
	ch := NewRefreshChannel()
	// Must not panic or block with zero subscribers.
	NewRefreshTrigger(ch).Trigger()
}

func TestRefreshChannelBacklogDropsRaiseLag(t *testing.T) {
	ch := NewRefreshChannel()
	sub := ch.subscribe()
	defer ch.unsubscribe(sub)

	trigger := NewRefreshTrigger(ch)
	for i := 0; i < subscriberBacklog+4; i++ {
		trigger.Trigger()
	}

	select {
	case <-sub.lagged:
	default:
		t.Fatal("expected a lag notification once the backlog overflowed")
	}
}

func TestRefreshChannelSendOrderPreserved(t *testing.T) {
	// Property 7: messages are observed in send order.
	ch := NewRefreshChannel()
	sub := ch.subscribe()
	defer ch.unsubscribe(sub)

	trigger := NewRefreshTrigger(ch)
	trigger.Trigger()
	trigger.TriggerByPattern("GET:/a/*")
	trigger.TriggerByPattern("GET:/b/*")

	first := <-sub.messages
	second := <-sub.messages
	third := <-sub.messages

	if first.Kind != RefreshAll {
		t.Errorf("first message Kind = %v, want RefreshAll", first.Kind)
	}
	if second.Pattern != "GET:/a/*" {
		t.Errorf("second message Pattern = %q, want GET:/a/*", second.Pattern)
	}
	if third.Pattern != "GET:/b/*" {
		t.Errorf("third message Pattern = %q, want GET:/b/*", third.Pattern)
	}
}
