package orders

import (
	"errors"
	"testing"

	"tradecore/internal/models"
)

func TestTransitionStatus(t *testing.T) {
	tests := []struct {
		name    string
		from    models.OrderStatus
		event   EventType
		want    models.OrderStatus
		wantErr bool
	}{
		{"initialized to submitted", models.StatusInitialized, EventSubmitted, models.StatusSubmitted, false},
		{"initialized to denied", models.StatusInitialized, EventDenied, models.StatusDenied, false},
		{"initialized to emulated", models.StatusInitialized, EventEmulated, models.StatusEmulated, false},
		{"submitted to accepted", models.StatusSubmitted, EventAccepted, models.StatusAccepted, false},
		{"submitted to rejected", models.StatusSubmitted, EventRejected, models.StatusRejected, false},
		{"accepted to pending cancel", models.StatusAccepted, EventPendingCancel, models.StatusPendingCancel, false},
		{"accepted to partially filled", models.StatusAccepted, EventPartiallyFilled, models.StatusPartiallyFilled, false},
		{"accepted to filled", models.StatusAccepted, EventFilled, models.StatusFilled, false},
		{"accepted update keeps status", models.StatusAccepted, EventUpdated, models.StatusAccepted, false},
		{"pending update confirmed", models.StatusPendingUpdate, EventUpdated, models.StatusAccepted, false},
		{"pending cancel confirmed", models.StatusPendingCancel, EventCanceled, models.StatusCanceled, false},
		{"fill races cancel", models.StatusCanceled, EventFilled, models.StatusFilled, false},
		{"partial fill races cancel", models.StatusCanceled, EventPartiallyFilled, models.StatusPartiallyFilled, false},
		{"triggered to filled", models.StatusTriggered, EventFilled, models.StatusFilled, false},
		{"partially filled to filled", models.StatusPartiallyFilled, EventFilled, models.StatusFilled, false},
		{"emulated to released", models.StatusEmulated, EventReleased, models.StatusReleased, false},
		{"released to submitted", models.StatusReleased, EventSubmitted, models.StatusSubmitted, false},
		{"filled is terminal", models.StatusFilled, EventCanceled, models.StatusFilled, true},
		{"denied is terminal", models.StatusDenied, EventSubmitted, models.StatusDenied, true},
		{"rejected is terminal", models.StatusRejected, EventAccepted, models.StatusRejected, true},
		{"canceled rejects submit", models.StatusCanceled, EventSubmitted, models.StatusCanceled, true},
		{"initialized rejects update", models.StatusInitialized, EventUpdated, models.StatusInitialized, true},
		{"accepted rejects released", models.StatusAccepted, EventReleased, models.StatusAccepted, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TransitionStatus(tt.from, tt.event)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("TransitionStatus(%s, %s) expected error", tt.from, tt.event)
				}
				var invalid *InvalidTransitionError
				if !errors.As(err, &invalid) {
					t.Fatalf("expected InvalidTransitionError, got %v", err)
				}
				if got != tt.from {
					t.Errorf("failed transition must not move status: got %s, want %s", got, tt.from)
				}
				return
			}
			if err != nil {
				t.Fatalf("TransitionStatus(%s, %s) unexpected error: %v", tt.from, tt.event, err)
			}
			if got != tt.want {
				t.Errorf("TransitionStatus(%s, %s) = %s, want %s", tt.from, tt.event, got, tt.want)
			}
		})
	}
}

func TestCanTransition(t *testing.T) {
	if !CanTransition(models.StatusAccepted, EventFilled) {
		t.Error("ACCEPTED must accept FILLED")
	}
	if CanTransition(models.StatusFilled, EventUpdated) {
		t.Error("FILLED must reject UPDATED")
	}
}

func TestTerminalStatusesRejectAllEvents(t *testing.T) {
	terminal := []models.OrderStatus{
		models.StatusDenied,
		models.StatusRejected,
		models.StatusExpired,
		models.StatusFilled,
	}
	events := []EventType{
		EventSubmitted, EventAccepted, EventRejected, EventCanceled,
		EventExpired, EventTriggered, EventPendingUpdate, EventPendingCancel,
		EventUpdated, EventPartiallyFilled, EventFilled,
	}
	for _, status := range terminal {
		for _, event := range events {
			if CanTransition(status, event) {
				t.Errorf("terminal status %s must reject event %s", status, event)
			}
		}
	}
}
