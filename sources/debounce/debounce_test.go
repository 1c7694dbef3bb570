package debounce

import (
	"testing"
	"time"

	"claudir/sources/platform"
	"claudir/sources/tracing"
)

func TestKickFiresAfterDuration(t *testing.T) {
	d := NewWithDuration(20*time.Millisecond, tracing.NewConsoleLogger())
	chat := platform.ChatID(-1)

	d.Kick(chat)

	select {
	case evt := <-d.Events():
		if evt.Chat != chat {
			t.Fatalf("expected fire for chat %d, got %d", chat, evt.Chat)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected a fire event, got none")
	}
}

func TestRepeatedKicksCoalesceIntoOneFire(t *testing.T) {
	d := NewWithDuration(30*time.Millisecond, tracing.NewConsoleLogger())
	chat := platform.ChatID(-1)

	for i := 0; i < 5; i++ {
		d.Kick(chat)
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-d.Events():
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected exactly one fire event")
	}

	select {
	case evt := <-d.Events():
		t.Fatalf("expected no second fire event, got %+v", evt)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCancelSuppressesFire(t *testing.T) {
	d := NewWithDuration(20*time.Millisecond, tracing.NewConsoleLogger())
	chat := platform.ChatID(-1)

	d.Kick(chat)
	d.Cancel(chat)

	select {
	case evt := <-d.Events():
		t.Fatalf("expected no fire after cancel, got %+v", evt)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestIndependentChatsFireIndependently(t *testing.T) {
	d := NewWithDuration(20*time.Millisecond, tracing.NewConsoleLogger())

	d.Kick(platform.ChatID(-1))
	d.Kick(platform.ChatID(-2))

	seen := map[platform.ChatID]bool{}
	for i := 0; i < 2; i++ {
		select {
		case evt := <-d.Events():
			seen[evt.Chat] = true
		case <-time.After(200 * time.Millisecond):
			t.Fatal("expected two fire events, one per chat")
		}
	}

	if !seen[platform.ChatID(-1)] || !seen[platform.ChatID(-2)] {
		t.Fatalf("expected fires for both chats, got %+v", seen)
	}
}
