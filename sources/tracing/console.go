package tracing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"
)

const (
	ExecutionTime      = "exe_time"
	InnerError         = "inner_error"
	UserId             = "user_id"
	UserName           = "user_name"
	ChatId             = "chat_id"
	ChatType           = "chat_type"
	MessageId          = "message_id"
	MessageDate        = "message_date"
	ProxyUrl           = "proxy_url"
	ProxyRes           = "proxy_res"

	AiKind     = "ai_kind"
	AiModel    = "ai_model"
	AiProvider = "ai_provider"
	AiAttempt  = "ai_attempt"
	AiBackoff  = "ai_backoff"
	AiTokens   = "ai_tokens"
	AiCost     = "ai_cost"

	Verdict           = "verdict"
	PrefilterOutcome  = "prefilter_outcome"
	StrikeCount       = "strike_count"
	StrikeThreshold   = "strike_threshold"
	BanIssued         = "ban_issued"
	DebounceGen       = "debounce_generation"
	ToolName          = "tool_name"
	ToolArgs          = "tool_args"
	ToolResult        = "tool_result"
	BackendExitCode   = "backend_exit_code"
	ContextTokens     = "context_tokens"
	CompactionTrigger = "compaction_trigger"
	DryRun            = "dry_run"
	CommandIssued     = "command_issued"
	Scope             = "scope"
)

type Logger struct {
	log    *slog.Logger
	ctx    context.Context
	mirror *atomic.Pointer[LogMirror]
	sink   *switchableWriter
}

// switchableWriter lets NewConsoleLogger hand out a *Logger before
// data_dir is known and have AddFileSink widen its destination in place
// later, since the underlying slog.Handler is built once and can't be
// swapped after construction.
type switchableWriter struct {
	w atomic.Value // io.Writer
}

func (s *switchableWriter) Write(p []byte) (int, error) {
	return s.w.Load().(io.Writer).Write(p)
}

func NewConsoleLogger() *Logger {
	sw := &switchableWriter{}
	sw.w.Store(io.Writer(os.Stdout))

	logger := slog.New(slog.NewJSONHandler(sw, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	logger.InfoContext(ctx, "Initializing  logger")
	return &Logger{log: logger, ctx: ctx, mirror: &atomic.Pointer[LogMirror]{}, sink: sw}
}

// AddFileSink widens this Logger's output to also append to path,
// satisfying spec.md §6's data_dir/logs/claudir.log. Every Logger already
// derived via With picks this up too, since they share the sink.
func (l *Logger) AddFileSink(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	l.sink.w.Store(io.Writer(io.MultiWriter(os.Stdout, file)))
	return nil
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{log: l.log.With(args...), ctx: l.ctx, mirror: l.mirror, sink: l.sink}
}

// SetMirror attaches a chat mirror (spec.md §6's log_chat_id) to this
// Logger and every Logger already derived from it via With, since they
// share the same atomic pointer. Safe to call once ChatPlatform exists,
// after scoped loggers have already been handed out during fx
// construction.
func (l *Logger) SetMirror(m *LogMirror) {
	l.mirror.Store(m)
}

func (l *Logger) D(msg string, args ...any) {
	l.log.DebugContext(l.ctx, msg, args...)
}

func (l *Logger) I(msg string, args ...any) {
	l.log.InfoContext(l.ctx, msg, args...)
	l.forward(false, msg, args)
}

func (l *Logger) W(msg string, args ...any) {
	l.log.WarnContext(l.ctx, msg, args...)
	l.forward(true, msg, args)
}

func (l *Logger) E(msg string, args ...any) {
	l.log.ErrorContext(l.ctx, msg, args...)
	l.forward(true, msg, args)
}

func (l *Logger) F(msg string, args ...any) {
	l.log.ErrorContext(l.ctx, msg, args...)
	l.forward(true, msg, args)
	panic(msg)
}

func (l *Logger) forward(urgent bool, msg string, args []any) {
	m := l.mirror.Load()
	if m == nil {
		return
	}
	m.enqueue(urgent, formatMirrorLine(msg, args))
}

func formatMirrorLine(msg string, args []any) string {
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf("%s %v", msg, args)
}