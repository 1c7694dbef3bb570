package chatplatform

import (
	"context"
	"testing"

	"claudir/sources/platform"
)

func TestFakeSendRecordsCall(t *testing.T) {
	fake := NewFake()
	ctx := context.Background()

	id, err := fake.Send(ctx, platform.ChatID(-1), "hello", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == 0 {
		t.Fatal("expected a nonzero message id")
	}
	if len(fake.Calls) != 1 || fake.Calls[0].Op != "send" {
		t.Fatalf("expected one recorded send call, got %+v", fake.Calls)
	}
}

func TestFakeSendFailsOnceThenSucceeds(t *testing.T) {
	fake := NewFake()
	ctx := context.Background()
	fake.FailNextSend = context.DeadlineExceeded

	if _, err := fake.Send(ctx, platform.ChatID(-1), "hello", nil); err == nil {
		t.Fatal("expected the injected failure on the first send")
	}
	if _, err := fake.Send(ctx, platform.ChatID(-1), "hello", nil); err != nil {
		t.Fatalf("expected the second send to succeed, got %v", err)
	}
}

func TestFakePublishDeliversOnEventsChannel(t *testing.T) {
	fake := NewFake()
	fake.Publish(Event{Kind: EventNewMessage, Chat: platform.ChatID(-1), Text: "hi"})

	select {
	case evt := <-fake.Events():
		if evt.Text != "hi" {
			t.Fatalf("expected published event text to round-trip, got %q", evt.Text)
		}
	default:
		t.Fatal("expected the published event to be immediately available")
	}
}

func TestFakeGetChatAdministratorsReturnsConfigured(t *testing.T) {
	fake := NewFake()
	fake.Admins[platform.ChatID(-1)] = []platform.UserID{42}

	admins, err := fake.GetChatAdministrators(context.Background(), platform.ChatID(-1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(admins) != 1 || admins[0] != 42 {
		t.Fatalf("expected [42], got %v", admins)
	}
}
