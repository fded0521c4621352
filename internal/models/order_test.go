package models

import "testing"

func TestOrderStatus_IsValid(t *testing.T) {
	for _, s := range []OrderStatus{
		OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusCompleted, OrderStatusCancelled,
	} {
		if !s.IsValid() {
			t.Errorf("%s should be valid", s)
		}
	}

	for _, s := range []OrderStatus{"", "paid", "PENDING", "received"} {
		if s.IsValid() {
			t.Errorf("%q should not be valid", s)
		}
	}
}

func TestOrderStatus_Lifecycle(t *testing.T) {
	allowed := []struct{ from, to OrderStatus }{
		{OrderStatusPending, OrderStatusProcessing},
		{OrderStatusPending, OrderStatusCancelled},
		{OrderStatusProcessing, OrderStatusShipped},
		{OrderStatusProcessing, OrderStatusCancelled},
		{OrderStatusShipped, OrderStatusCompleted},
	}
	for _, tr := range allowed {
		if !tr.from.CanTransitionTo(tr.to) {
			t.Errorf("%s → %s should be allowed", tr.from, tr.to)
		}
	}

	forbidden := []struct{ from, to OrderStatus }{
		{OrderStatusPending, OrderStatusShipped},
		{OrderStatusPending, OrderStatusCompleted},
		{OrderStatusShipped, OrderStatusCancelled},
		{OrderStatusShipped, OrderStatusPending},
		{OrderStatusCompleted, OrderStatusPending},
		{OrderStatusCompleted, OrderStatusCancelled},
		{OrderStatusCancelled, OrderStatusPending},
		{OrderStatusCancelled, OrderStatusProcessing},
		{OrderStatusPending, OrderStatusPending},
	}
	for _, tr := range forbidden {
		if tr.from.CanTransitionTo(tr.to) {
			t.Errorf("%s → %s should be rejected", tr.from, tr.to)
		}
	}
}

func TestOrderStatus_TerminalStatesHaveNoExit(t *testing.T) {
	for _, terminal := range []OrderStatus{OrderStatusCompleted, OrderStatusCancelled} {
		for next := range orderTransitions {
			if terminal.CanTransitionTo(next) {
				t.Errorf("terminal state %s should not allow %s", terminal, next)
			}
		}
	}
}
