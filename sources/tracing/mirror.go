package tracing

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Sender is the narrow slice of ChatPlatform a LogMirror needs, kept
// local so this package never imports sources/chatplatform.
type Sender interface {
	Send(ctx context.Context, chat int64, text string) error
}

type mirrorMsg struct {
	urgent bool
	text   string
}

// LogMirror republishes WARN/ERROR records to a Telegram chat
// immediately and batches INFO records, flushing every flushInterval or
// once infoBatchLimit lines have queued. Grounded on
// original_source/telegram_log.rs's TelegramLogLayer.
type LogMirror struct {
	ch chan mirrorMsg
}

const (
	infoBatchLimit = 50
	flushInterval  = 5 * time.Second
	maxMirrorChars = 4000
)

// NewLogMirror starts the background flusher and returns the mirror. The
// returned value is attached to a Logger with SetMirror.
func NewLogMirror(sender Sender, chat int64) *LogMirror {
	m := &LogMirror{ch: make(chan mirrorMsg, 256)}
	go m.run(sender, chat)
	return m
}

func (m *LogMirror) run(sender Sender, chat int64) {
	var buffer []string
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	ctx := context.Background()
	for {
		select {
		case msg, ok := <-m.ch:
			if !ok {
				flushBuffer(ctx, sender, chat, &buffer)
				return
			}
			if msg.urgent {
				sendOne(ctx, sender, chat, msg.text)
				continue
			}
			buffer = append(buffer, msg.text)
			if len(buffer) >= infoBatchLimit {
				flushBuffer(ctx, sender, chat, &buffer)
			}
		case <-ticker.C:
			flushBuffer(ctx, sender, chat, &buffer)
		}
	}
}

func sendOne(ctx context.Context, sender Sender, chat int64, text string) {
	if err := sender.Send(ctx, chat, truncateMirror(text)); err != nil {
		fmt.Println("failed to send log to Telegram:", err)
	}
}

func flushBuffer(ctx context.Context, sender Sender, chat int64, buffer *[]string) {
	if len(*buffer) == 0 {
		return
	}
	sendOne(ctx, sender, chat, strings.Join(*buffer, "\n"))
	*buffer = (*buffer)[:0]
}

func truncateMirror(text string) string {
	if len(text) <= maxMirrorChars {
		return text
	}
	return text[:maxMirrorChars] + "..."
}

// enqueue is non-blocking: a full channel drops the record rather than
// stalling the caller's log line.
func (m *LogMirror) enqueue(urgent bool, text string) {
	select {
	case m.ch <- mirrorMsg{urgent: urgent, text: text}:
	default:
	}
}

// Close stops accepting new records. Buffered INFO lines are flushed
// before the background goroutine exits.
func (m *LogMirror) Close() {
	close(m.ch)
}
