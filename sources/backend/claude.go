package backend

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"claudir/sources/configuration"
	"claudir/sources/errs"
	"claudir/sources/platform"
	"claudir/sources/tools"
	"claudir/sources/tracing"
)

// toolCallsSchema restricts the claude CLI's structured output to
// spec.md §4.10's eleven authoritative tools. Grounded on
// original_source/chatbot/claude_code.rs's TOOL_CALLS_SCHEMA, trimmed to
// claudir's tool set (drops send_photo/import_members/get_chat_admins/
// done, which original_source supports but spec.md's tool table does
// not list).
const toolCallsSchema = `{
  "type": "object",
  "properties": {
    "tool_calls": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "tool": { "type": "string" },
          "chat_id": { "type": "integer" },
          "text": { "type": "string" },
          "reply_to_message_id": { "type": "integer" },
          "user_id": { "type": "integer" },
          "message_id": { "type": "integer" },
          "emoji": { "type": "string" },
          "last_n": { "type": "integer" },
          "from_timestamp": { "type": "integer" },
          "to_timestamp": { "type": "integer" },
          "limit": { "type": "integer" },
          "query": { "type": "string" },
          "until": { "type": "integer" }
        },
        "required": ["tool"]
      }
    }
  },
  "required": ["tool_calls"]
}`

type inputMessage struct {
	Type    string       `json:"type"`
	Message inputContent `json:"message"`
}

type inputContent struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type outputMessage struct {
	Type           string          `json:"type"`
	SessionID      string          `json:"session_id"`
	TotalCostUSD   float64         `json:"total_cost_usd"`
	StructuredOut  *structuredOut  `json:"structured_output"`
}

type structuredOut struct {
	ToolCalls []rawToolCall `json:"tool_calls"`
}

type rawToolCall struct {
	Tool              string `json:"tool"`
	ChatID            *int64 `json:"chat_id"`
	Text              string `json:"text"`
	ReplyToMessageID  *int64 `json:"reply_to_message_id"`
	UserID            *int64 `json:"user_id"`
	MessageID         *int64 `json:"message_id"`
	Emoji             string `json:"emoji"`
	LastN             *int   `json:"last_n"`
	FromTimestamp     *int64 `json:"from_timestamp"`
	ToTimestamp       *int64 `json:"to_timestamp"`
	Limit             *int   `json:"limit"`
	Query             string `json:"query"`
	Until             *int64 `json:"until"`
}

func (r rawToolCall) toCall(index int) (tools.Call, bool) {
	call := tools.Call{ID: fmt.Sprintf("tool_%d", index), Tool: tools.Name(r.Tool), Text: r.Text, Emoji: r.Emoji, Query: r.Query, LastN: r.LastN, Limit: r.Limit, FromTimestamp: r.FromTimestamp, ToTimestamp: r.ToTimestamp, Until: r.Until}
	if r.ChatID != nil {
		call.Chat = platform.ChatID(*r.ChatID)
	}
	if r.UserID != nil {
		call.User = platform.UserID(*r.UserID)
	}
	if r.MessageID != nil {
		call.MessageID = platform.MessageID(*r.MessageID)
	}
	if r.ReplyToMessageID != nil {
		id := platform.MessageID(*r.ReplyToMessageID)
		call.ReplyTo = &id
	}

	switch call.Tool {
	case tools.SendMessage, tools.AddReaction, tools.DeleteMessage, tools.MuteUser, tools.KickUser, tools.BanUser:
		if r.ChatID == nil {
			return tools.Call{}, false
		}
	}
	return call, true
}

// ClaudeBackend spawns the claude CLI per invocation. Grounded on
// original_source/chatbot/claude_code.rs's spawn_process/send_message/
// wait_for_result trio.
type ClaudeBackend struct {
	binaryPath  string
	model       string
	allowedTools string
	sessionFile string
	log         *tracing.Logger
}

func NewClaudeBackend(cfg *configuration.Config, log *tracing.Logger) *ClaudeBackend {
	binary := cfg.Chatbot.BackendPath
	if binary == "" {
		binary = "claude"
	}

	return &ClaudeBackend{
		binaryPath:   binary,
		model:        cfg.Chatbot.Model,
		allowedTools: strings.Join(cfg.Chatbot.AllowedTools, ","),
		sessionFile:  filepath.Join(cfg.DataDir, "claude_session"),
		log:          log,
	}
}

func (b *ClaudeBackend) Invoke(ctx context.Context, systemPrompt, renderedContext, ephemeralSuffix string) (result []tools.Call, err error) {
	log := b.log.With(tracing.Scope, "backend.invoke")
	defer tracing.ProfilePoint(log, "backend invoke completed", "backend.invoke")()

	args := []string{
		"--print",
		"--input-format", "stream-json",
		"--output-format", "stream-json",
		"--verbose",
	}
	if b.model != "" {
		args = append(args, "--model", b.model)
	}
	args = append(args, "--tools", b.allowedTools, "--json-schema", toolCallsSchema)

	if session := b.loadSessionID(); session != "" {
		args = append(args, "--resume", session)
	}

	cmd := exec.CommandContext(ctx, b.binaryPath, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errs.PermanentExternal(fmt.Errorf("backend stdin pipe: %w", err))
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errs.PermanentExternal(fmt.Errorf("backend stdout pipe: %w", err))
	}

	if err := cmd.Start(); err != nil {
		return nil, errs.TransientExternal(fmt.Errorf("backend spawn: %w", err))
	}
	defer func() {
		_ = cmd.Wait()
	}()

	prompt := systemPrompt + "\n\n" + renderedContext + "\n\n" + ephemeralSuffix
	if writeErr := writeInput(stdin, prompt); writeErr != nil {
		_ = stdin.Close()
		return nil, errs.PermanentExternal(fmt.Errorf("backend write stdin: %w", writeErr))
	}
	_ = stdin.Close()

	calls, sessionID, parseErr := readOutput(stdout, log)
	if parseErr != nil {
		return nil, parseErr
	}

	if sessionID != "" {
		b.saveSessionID(sessionID)
	}

	return calls, nil
}

func writeInput(w io.Writer, content string) error {
	msg := inputMessage{Type: "user", Message: inputContent{Role: "user", Content: content}}
	encoded, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(encoded, '\n')); err != nil {
		return err
	}
	return nil
}

func readOutput(r io.Reader, log *tracing.Logger) ([]tools.Call, string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var sessionID string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var msg outputMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			log.D("backend output line not parseable, skipping", tracing.InnerError, err)
			continue
		}

		if msg.SessionID != "" {
			sessionID = msg.SessionID
		}

		if msg.Type != "result" {
			continue
		}

		if msg.StructuredOut == nil {
			log.W("backend result had no structured output")
			return nil, sessionID, nil
		}

		calls := make([]tools.Call, 0, len(msg.StructuredOut.ToolCalls))
		for i, raw := range msg.StructuredOut.ToolCalls {
			call, ok := raw.toCall(i)
			if !ok {
				log.W("dropping malformed tool call", "tool", raw.Tool)
				continue
			}
			calls = append(calls, call)
		}

		log.I("backend responded", tracing.AiCost, msg.TotalCostUSD, "tool_call_count", len(calls))
		return calls, sessionID, nil
	}

	if err := scanner.Err(); err != nil {
		return nil, sessionID, errs.Protocol(fmt.Errorf("backend stdout read: %w", err))
	}

	return nil, sessionID, errs.Protocol(fmt.Errorf("backend stdout closed without a result message"))
}

func (b *ClaudeBackend) loadSessionID() string {
	data, err := os.ReadFile(b.sessionFile)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (b *ClaudeBackend) saveSessionID(sessionID string) {
	if err := os.WriteFile(b.sessionFile, []byte(sessionID), 0o600); err != nil {
		b.log.W("failed to persist backend session id", tracing.InnerError, err)
	}
}
