package events

import "testing"

func TestPublishDispatchesInSubscriptionOrder(t *testing.T) {
	bus := NewBus()
	var order []int

	bus.Subscribe(StatusUpdated, func(any) { order = append(order, 1) })
	bus.Subscribe(StatusUpdated, func(any) { order = append(order, 2) })
	bus.Subscribe(StatusUpdated, func(any) { order = append(order, 3) })

	bus.Publish(StatusUpdated, "x")

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("expected handlers to run in order 1,2,3, got %v", order)
	}
}

func TestPublishIsSynchronous(t *testing.T) {
	bus := NewBus()
	got := ""
	bus.Subscribe(BalanceUpdated, func(payload any) {
		got = payload.(string)
	})

	bus.Publish(BalanceUpdated, "100")
	if got != "100" {
		t.Errorf("handler must run before Publish returns, got %q", got)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()
	calls := 0
	off := bus.Subscribe(ErrorRaised, func(any) { calls++ })

	bus.Publish(ErrorRaised, nil)
	off()
	bus.Publish(ErrorRaised, nil)

	if calls != 1 {
		t.Errorf("expected 1 call after unsubscribe, got %d", calls)
	}
}

func TestTopicsAreIndependent(t *testing.T) {
	bus := NewBus()
	calls := 0
	bus.Subscribe(StakeChanged, func(any) { calls++ })

	bus.Publish(DifficultyChanged, nil)
	if calls != 0 {
		t.Errorf("unrelated topic must not fire handler, got %d calls", calls)
	}
}
