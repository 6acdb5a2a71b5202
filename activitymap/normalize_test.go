package activitymap_test

import (
	"testing"
	"time"

	session "github.com/goliatone/go-session"
	"github.com/goliatone/go-session/activitymap"
)

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	event := session.ActivityEvent{
		EventType: session.ActivityEventLoginSuccess,
		UserID:    "user-100",
		FromState: session.StateAuthenticating,
		ToState:   session.StateAuthenticated,
		Metadata: map[string]any{
			"identifier": "a@b.com",
		},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	if out.ActorID != "user-100" {
		t.Fatalf("expected actor_id user-100, got %q", out.ActorID)
	}
	if out.Verb != string(session.ActivityEventLoginSuccess) {
		t.Fatalf("expected verb %q, got %q", session.ActivityEventLoginSuccess, out.Verb)
	}
	if out.ObjectType != "user" {
		t.Fatalf("expected object_type user, got %q", out.ObjectType)
	}
	if out.ObjectID != "user-100" {
		t.Fatalf("expected object_id user-100, got %q", out.ObjectID)
	}
	if out.Channel != "session" {
		t.Fatalf("expected channel session, got %q", out.Channel)
	}
	if !out.OccurredAt.Equal(ts) {
		t.Fatalf("expected occurred_at %v, got %v", ts, out.OccurredAt)
	}

	if out.Metadata["identifier"] != "a@b.com" {
		t.Fatalf("expected metadata identifier a@b.com, got %#v", out.Metadata["identifier"])
	}
	if out.Metadata[activitymap.MetadataKeyFromState] != string(session.StateAuthenticating) {
		t.Fatalf("expected metadata from_state authenticating, got %#v", out.Metadata[activitymap.MetadataKeyFromState])
	}
	if out.Metadata[activitymap.MetadataKeyToState] != string(session.StateAuthenticated) {
		t.Fatalf("expected metadata to_state authenticated, got %#v", out.Metadata[activitymap.MetadataKeyToState])
	}

	if len(event.Metadata) != 1 {
		t.Fatalf("expected source metadata to remain unchanged, got %+v", event.Metadata)
	}
}

func TestNormalizeOptionOverrides(t *testing.T) {
	t.Parallel()

	event := session.ActivityEvent{
		EventType: session.ActivityEventPasswordReset,
		UserID:    "user-200",
		Metadata: map[string]any{
			"password_reset_id": "reset-1",
		},
	}

	out := activitymap.Normalize(
		event,
		activitymap.WithDefaultChannel("security"),
		activitymap.WithDefaultObjectType("account"),
		activitymap.WithObjectIDResolver(func(e session.ActivityEvent) string {
			if v, ok := e.Metadata["password_reset_id"].(string); ok {
				return v
			}
			return ""
		}),
	)

	if out.Channel != "security" {
		t.Fatalf("expected channel security, got %q", out.Channel)
	}
	if out.ObjectType != "account" {
		t.Fatalf("expected object_type account, got %q", out.ObjectType)
	}
	if out.ObjectID != "reset-1" {
		t.Fatalf("expected object_id reset-1, got %q", out.ObjectID)
	}
	if out.OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be set when input is zero")
	}
}

func TestNormalizeActorFallbackChain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		event  session.ActivityEvent
		opts   []activitymap.Option
		expect string
	}{
		{
			name:   "uses user id when present",
			event:  session.ActivityEvent{UserID: "user-1"},
			expect: "user-1",
		},
		{
			name:   "uses default fallback for anonymous events",
			event:  session.ActivityEvent{EventType: session.ActivityEventLoginFailure},
			expect: "anonymous",
		},
		{
			name:   "uses configured fallback for anonymous events",
			event:  session.ActivityEvent{},
			opts:   []activitymap.Option{activitymap.WithActorFallback("kiosk")},
			expect: "kiosk",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out := activitymap.Normalize(tc.event, tc.opts...)
			if out.ActorID != tc.expect {
				t.Fatalf("expected actor_id %q, got %q", tc.expect, out.ActorID)
			}
		})
	}
}
