package syncbus_test

import (
	"testing"

	"grateful.app/notifier/internal/domain"
	"grateful.app/notifier/internal/syncbus"
)

func TestPublish_PartialPatchKeepsOtherFields(t *testing.T) {
	bus := syncbus.New()
	view := domain.UserRef{ID: "42", Name: "Old", Image: "https://cdn/old.png"}

	bus.Subscribe(syncbus.ForUser("42"), func(u domain.ProfileUpdate) {
		u.Patch.Apply(&view)
	})

	n := bus.Publish("42", domain.ProfilePatch{Name: domain.StringPtr("Alice")})
	if n != 1 {
		t.Fatalf("expected 1 delivery, got %d", n)
	}
	if view.Name != "Alice" {
		t.Fatalf("name not updated: %q", view.Name)
	}
	if view.Image != "https://cdn/old.png" {
		t.Fatalf("image clobbered: %q", view.Image)
	}
}

func TestPublish_AllMatchingSubscribersReceive(t *testing.T) {
	bus := syncbus.New()
	var a, b, other int
	bus.Subscribe(syncbus.ForUser("7"), func(domain.ProfileUpdate) { a++ })
	bus.Subscribe(syncbus.ForUser("7"), func(domain.ProfileUpdate) { b++ })
	bus.Subscribe(syncbus.ForUser("8"), func(domain.ProfileUpdate) { other++ })

	bus.Publish("7", domain.ProfilePatch{Image: domain.StringPtr("x.png")})

	if a != 1 || b != 1 {
		t.Fatalf("expected both subscribers of user 7 to receive, got %d and %d", a, b)
	}
	if other != 0 {
		t.Fatal("subscriber of another user must not receive")
	}
}

func TestSubscribe_NoReplay(t *testing.T) {
	bus := syncbus.New()
	bus.Publish("1", domain.ProfilePatch{Name: domain.StringPtr("early")})

	got := 0
	bus.Subscribe(syncbus.AnyUser, func(domain.ProfileUpdate) { got++ })
	if got != 0 {
		t.Fatal("late subscriber must not receive earlier publishes")
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := syncbus.New()
	got := 0
	unsubscribe := bus.Subscribe(nil, func(domain.ProfileUpdate) { got++ })
	unsubscribe()
	unsubscribe()

	bus.Publish("1", domain.ProfilePatch{Name: domain.StringPtr("n")})
	if got != 0 {
		t.Fatal("unsubscribed handler was called")
	}
	if bus.Len() != 0 {
		t.Fatalf("expected no subscribers, got %d", bus.Len())
	}
}

func TestPublish_EmptyPatchIsDropped(t *testing.T) {
	bus := syncbus.New()
	got := 0
	bus.Subscribe(nil, func(domain.ProfileUpdate) { got++ })
	if n := bus.Publish("1", domain.ProfilePatch{}); n != 0 || got != 0 {
		t.Fatal("empty patch should not be delivered")
	}
}

func TestPublish_HandlerMayUnsubscribeItself(t *testing.T) {
	bus := syncbus.New()
	var unsubscribe func()
	calls := 0
	unsubscribe = bus.Subscribe(nil, func(domain.ProfileUpdate) {
		calls++
		unsubscribe()
	})

	bus.Publish("1", domain.ProfilePatch{Name: domain.StringPtr("a")})
	bus.Publish("1", domain.ProfilePatch{Name: domain.StringPtr("b")})
	if calls != 1 {
		t.Fatalf("expected exactly one call, got %d", calls)
	}
}
