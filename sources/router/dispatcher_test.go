package router

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"claudir/sources/chatplatform"
	"claudir/sources/classifier"
	"claudir/sources/configuration"
	"claudir/sources/convo"
	"claudir/sources/debounce"
	"claudir/sources/metrics"
	"claudir/sources/platform"
	"claudir/sources/prefilter"
	"claudir/sources/spam"
	"claudir/sources/strikes"
	"claudir/sources/tools"
	"claudir/sources/tracing"
)

type fakeAdminChecker struct {
	admins map[platform.ChatID]map[platform.UserID]bool
	info   map[platform.UserID]chatplatform.UserInfo
}

func newFakeAdminChecker() *fakeAdminChecker {
	return &fakeAdminChecker{
		admins: map[platform.ChatID]map[platform.UserID]bool{},
		info:   map[platform.UserID]chatplatform.UserInfo{},
	}
}

func (f *fakeAdminChecker) IsAdmin(ctx context.Context, chat platform.ChatID, user platform.UserID) (bool, error) {
	return f.admins[chat][user], nil
}

func (f *fakeAdminChecker) UserInfo(ctx context.Context, user platform.UserID) (chatplatform.UserInfo, error) {
	return f.info[user], nil
}

type fakeRateLimiter struct {
	allow bool
}

func (f *fakeRateLimiter) Allow(ctx context.Context, chat platform.ChatID) bool { return f.allow }

func newTestRouter(t *testing.T, dataDir string) (*Router, *chatplatform.Fake, *fakeAdminChecker) {
	t.Helper()

	log := tracing.NewConsoleLogger()
	cfg := &configuration.Config{
		AllowedGroups: []platform.ChatID{100},
		OwnerIDs:      []platform.UserID{999},
		DataDir:       dataDir,
	}

	fakePlatform := chatplatform.NewFake()
	fakePlatform.BotID = 1

	pf, err := prefilter.New()
	if err != nil {
		t.Fatalf("prefilter.New: %v", err)
	}
	cc := classifier.NewFake()
	metricsService := metrics.NewMetricsService(log)
	pipeline := spam.New(pf, cc, cfg.OwnerIDs, metricsService, log)

	ledger, err := strikes.New(dataDir, 3, log)
	if err != nil {
		t.Fatalf("strikes.New: %v", err)
	}

	summarizer := convo.NewSummarizer(&fakeCompleter{}, log)
	buffers := convo.NewBufferFactory(cfg, summarizer, metricsService, log)

	deb := debounce.NewWithDuration(0, log)
	admins := newFakeAdminChecker()
	throttle := &fakeRateLimiter{allow: true}

	r := New(cfg, fakePlatform, pipeline, ledger, buffers, deb, nil, nil, metricsService, nil, log)
	r.admins = admins
	r.throttle = throttle

	return r, fakePlatform, admins
}

type fakeCompleter struct{}

func (f *fakeCompleter) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	return "summary", nil
}

func TestDispatchSendMessageRejectsChatOutsideAllowedGroups(t *testing.T) {
	dir := t.TempDir()
	r, _, _ := newTestRouter(t, dir)

	result := r.Dispatch(context.Background(), 100, tools.Call{ID: "1", Tool: tools.SendMessage, Chat: 999999, Text: "hi"})
	if !result.IsError {
		t.Fatalf("expected error for chat outside allowed_groups, got %+v", result)
	}
}

func TestDispatchSendMessageAllowsOwnerDM(t *testing.T) {
	dir := t.TempDir()
	r, fake, _ := newTestRouter(t, dir)

	result := r.Dispatch(context.Background(), 999, tools.Call{ID: "1", Tool: tools.SendMessage, Chat: 999, Text: "hi"})
	if result.IsError {
		t.Fatalf("expected owner DM send to succeed, got %+v", result)
	}
	if len(fake.Calls) != 1 || fake.Calls[0].Op != "send" {
		t.Fatalf("expected one send call, got %+v", fake.Calls)
	}
}

func TestDispatchValidatesArgShape(t *testing.T) {
	dir := t.TempDir()
	r, _, _ := newTestRouter(t, dir)

	result := r.Dispatch(context.Background(), 100, tools.Call{ID: "1", Tool: tools.SendMessage, Chat: 100, Text: ""})
	if !result.IsError {
		t.Fatalf("expected validation error for empty text, got %+v", result)
	}
}

func TestDispatchBanUserRequiresAdmin(t *testing.T) {
	dir := t.TempDir()
	r, fake, _ := newTestRouter(t, dir)

	result := r.Dispatch(context.Background(), 100, tools.Call{ID: "1", Tool: tools.BanUser, Chat: 100, User: 42})
	if !result.IsError {
		t.Fatalf("expected NotAuthorized when bot is not admin, got %+v", result)
	}
	if len(fake.Calls) != 0 {
		t.Fatalf("expected no platform call before authorization, got %+v", fake.Calls)
	}
}

func TestDispatchBanUserSucceedsWhenBotIsAdmin(t *testing.T) {
	dir := t.TempDir()
	r, fake, admins := newTestRouter(t, dir)
	admins.admins[100] = map[platform.UserID]bool{1: true}

	result := r.Dispatch(context.Background(), 100, tools.Call{ID: "1", Tool: tools.BanUser, Chat: 100, User: 42})
	if result.IsError {
		t.Fatalf("expected ban to succeed, got %+v", result)
	}
	if len(fake.Calls) != 1 || fake.Calls[0].Op != "ban" {
		t.Fatalf("expected one ban call, got %+v", fake.Calls)
	}
}

func TestDispatchDryRunSkipsPlatformCall(t *testing.T) {
	dir := t.TempDir()
	r, fake, admins := newTestRouter(t, dir)
	admins.admins[100] = map[platform.UserID]bool{1: true}
	r.cfg.DryRun = true

	result := r.Dispatch(context.Background(), 100, tools.Call{ID: "1", Tool: tools.BanUser, Chat: 100, User: 42})
	if result.IsError {
		t.Fatalf("expected dry_run result to succeed without executing, got %+v", result)
	}
	if len(fake.Calls) != 0 {
		t.Fatalf("expected no platform call under dry_run, got %+v", fake.Calls)
	}
}

func TestDispatchGetMembersReadsTrackedRoster(t *testing.T) {
	dir := t.TempDir()
	r, _, _ := newTestRouter(t, dir)
	r.chatsMu.Lock()
	r.rosterForLocked(100)[7] = true
	r.rosterForLocked(100)[8] = true
	r.chatsMu.Unlock()

	result := r.Dispatch(context.Background(), 100, tools.Call{Tool: tools.GetMembers})
	if result.IsError {
		t.Fatalf("expected get_members to succeed, got %+v", result)
	}
}

func TestDispatchReadMessagesQueriesArchive(t *testing.T) {
	dir := t.TempDir()
	r, _, _ := newTestRouter(t, dir)

	buf, err := r.buffers.New(100)
	if err != nil {
		t.Fatalf("buffers.New: %v", err)
	}
	r.chatsMu.Lock()
	r.chats[100] = buf
	r.chatsMu.Unlock()
	buf.Append(context.Background(), convo.Message{ID: 1, Chat: 100, User: 5, Name: "alice", Text: "hello there"})

	result := r.Dispatch(context.Background(), 100, tools.Call{Tool: tools.ReadMessages})
	if result.IsError {
		t.Fatalf("expected read_messages to succeed, got %+v", result)
	}
	if result.Content == "" {
		t.Fatalf("expected read_messages content to include the archived message")
	}
}

func TestDispatchReportBugAppendsFeedbackLog(t *testing.T) {
	dir := t.TempDir()
	r, _, _ := newTestRouter(t, dir)

	result := r.Dispatch(context.Background(), 100, tools.Call{ID: "1", Tool: tools.ReportBug, Text: "the bot forgot my name"})
	if result.IsError {
		t.Fatalf("expected report_bug to succeed, got %+v", result)
	}

	content, err := os.ReadFile(filepath.Join(dir, "feedback.log"))
	if err != nil {
		t.Fatalf("expected feedback.log to be written: %v", err)
	}
	if len(content) == 0 {
		t.Fatalf("expected feedback.log to contain the reported text")
	}
}

func TestDispatchWebSearchRespectsThrottle(t *testing.T) {
	dir := t.TempDir()
	r, _, _ := newTestRouter(t, dir)
	r.throttle = &fakeRateLimiter{allow: false}

	result := r.Dispatch(context.Background(), 100, tools.Call{ID: "1", Tool: tools.WebSearch, Query: "go generics"})
	if !result.IsError {
		t.Fatalf("expected web_search to be rejected by the throttle, got %+v", result)
	}
}
