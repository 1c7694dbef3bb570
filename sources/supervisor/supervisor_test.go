package supervisor

import (
	"context"
	"testing"
	"time"

	"claudir/sources/backend"
	"claudir/sources/chatplatform"
	"claudir/sources/classifier"
	"claudir/sources/configuration"
	"claudir/sources/convo"
	"claudir/sources/debounce"
	"claudir/sources/metrics"
	"claudir/sources/platform"
	"claudir/sources/prefilter"
	"claudir/sources/router"
	"claudir/sources/spam"
	"claudir/sources/strikes"
	"claudir/sources/tools"
	"claudir/sources/tracing"
)

type fakeCompleter struct{}

func (f *fakeCompleter) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	return "summary", nil
}

func newTestSupervisor(t *testing.T) (*Supervisor, *router.Router, *chatplatform.Fake, *backend.Fake, *debounce.Debouncer) {
	t.Helper()

	log := tracing.NewConsoleLogger()
	dir := t.TempDir()
	cfg := &configuration.Config{
		AllowedGroups: []platform.ChatID{100},
		DataDir:       dir,
	}
	cfg.Chatbot.Enabled = true

	fakePlatform := chatplatform.NewFake()
	fakePlatform.BotID = 1

	pf, err := prefilter.New()
	if err != nil {
		t.Fatalf("prefilter.New: %v", err)
	}
	metricsService := metrics.NewMetricsService(log)
	pipeline := spam.New(pf, classifier.NewFake(), cfg.OwnerIDs, metricsService, log)

	ledger, err := strikes.New(dir, 3, log)
	if err != nil {
		t.Fatalf("strikes.New: %v", err)
	}

	summarizer := convo.NewSummarizer(&fakeCompleter{}, log)
	buffers := convo.NewBufferFactory(cfg, summarizer, metricsService, log)

	deb := debounce.NewWithDuration(10*time.Millisecond, log)
	r := router.New(cfg, fakePlatform, pipeline, ledger, buffers, deb, nil, nil, metricsService, nil, log)

	fakeBackend := backend.NewFake()
	s := New(cfg, r, fakeBackend, deb, metricsService, nil, log)

	return s, r, fakePlatform, fakeBackend, deb
}

func waitFor(t *testing.T, timeout time.Duration, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestSupervisorInvokesBackendAndDispatchesToolCalls(t *testing.T) {
	s, r, fakePlatform, fakeBackend, _ := newTestSupervisor(t)
	fakeBackend.NextCalls = []tools.Call{{ID: "1", Tool: tools.SendMessage, Chat: 100, Text: "hello there"}}

	s.Start()
	defer s.Stop()

	fakePlatform.Publish(chatplatform.Event{Kind: chatplatform.EventNewMessage, Chat: 100, User: 5, MessageID: 1, Text: "good morning", Time: time.Now()})
	r.Run(contextWithCancelAfterOne(t, fakePlatform))

	waitFor(t, time.Second, func() bool {
		for _, c := range fakePlatform.Calls {
			if c.Op == "send" {
				return true
			}
		}
		return false
	})
}

func TestSupervisorSkipsIdempotentFire(t *testing.T) {
	s, r, fakePlatform, fakeBackend, deb := newTestSupervisor(t)
	fakeBackend.NextCalls = nil

	s.Start()
	defer s.Stop()

	fakePlatform.Publish(chatplatform.Event{Kind: chatplatform.EventNewMessage, Chat: 100, User: 5, MessageID: 1, Text: "hi", Time: time.Now()})
	r.Run(contextWithCancelAfterOne(t, fakePlatform))

	waitFor(t, time.Second, func() bool { return len(fakeBackend.Invocations) >= 1 })
	invocationsAfterFirst := len(fakeBackend.Invocations)

	// Re-kick the same chat with no intervening buffer mutation: the
	// generation the Supervisor last rendered is unchanged, so this fire
	// must be dropped without a second backend call.
	deb.Kick(100)
	time.Sleep(100 * time.Millisecond)

	if len(fakeBackend.Invocations) != invocationsAfterFirst {
		t.Fatalf("expected no further backend invocations without buffer changes, got %d", len(fakeBackend.Invocations))
	}
}

// contextWithCancelAfterOne returns a context that is cancelled 50ms
// after creation, long enough for Router.Run to drain the events already
// queued on fakePlatform in these tests.
func contextWithCancelAfterOne(t *testing.T, fakePlatform *chatplatform.Fake) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	return ctx
}
