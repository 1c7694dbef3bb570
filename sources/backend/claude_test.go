package backend

import (
	"strings"
	"testing"

	"claudir/sources/tracing"
)

func TestReadOutputParsesToolCallsFromResultMessage(t *testing.T) {
	body := `{"type":"system","session_id":"abc"}
{"type":"assistant","message":{}}
{"type":"result","total_cost_usd":0.01,"session_id":"abc","structured_output":{"tool_calls":[{"tool":"send_message","chat_id":-100,"text":"hello"}]}}
`
	calls, sessionID, err := readOutput(strings.NewReader(body), tracing.NewConsoleLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sessionID != "abc" {
		t.Fatalf("expected session id abc, got %q", sessionID)
	}
	if len(calls) != 1 || calls[0].Tool != "send_message" || calls[0].Text != "hello" {
		t.Fatalf("unexpected calls: %+v", calls)
	}
}

func TestReadOutputSkipsMalformedLines(t *testing.T) {
	body := "not json\n" + `{"type":"result","structured_output":{"tool_calls":[]}}` + "\n"
	calls, _, err := readOutput(strings.NewReader(body), tracing.NewConsoleLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 0 {
		t.Fatalf("expected no tool calls, got %+v", calls)
	}
}

func TestReadOutputDropsCallMissingRequiredChatID(t *testing.T) {
	body := `{"type":"result","structured_output":{"tool_calls":[{"tool":"ban_user","user_id":5}]}}` + "\n"
	calls, _, err := readOutput(strings.NewReader(body), tracing.NewConsoleLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 0 {
		t.Fatalf("expected ban_user without chat_id to be dropped, got %+v", calls)
	}
}

func TestReadOutputReturnsProtocolErrorWithoutResultMessage(t *testing.T) {
	body := `{"type":"system","session_id":"abc"}` + "\n"
	_, _, err := readOutput(strings.NewReader(body), tracing.NewConsoleLogger())
	if err == nil {
		t.Fatal("expected a protocol error when no result message arrives")
	}
}
