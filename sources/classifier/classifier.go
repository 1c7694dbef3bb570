// Package classifier implements spec.md §4.3's ClassifierClient: a
// one-shot LLM call that labels a message spam or ham, with a fixed
// prompt and a strict textual parse rule.
package classifier

import (
	"context"
	"strings"
)

// Verdict is the classifier's label for a message.
type Verdict int

const (
	Ham Verdict = iota
	Spam
)

func (v Verdict) String() string {
	if v == Spam {
		return "spam"
	}
	return "ham"
}

// Hints carries contextual signals the pipeline has already gathered —
// currently just TrustedChannel, which the Router sets when the
// message's own chat id is listed in trusted_channels (forward origin is
// not inspected). Hints never upgrade a verdict to Spam on their own;
// OpenAIClient and OpenRouterClient do not read them.
type Hints struct {
	TrustedChannel bool
}

// ClassifierClient is the capability interface so the core is testable
// without network access, per spec.md §9's "capabilities as interfaces"
// design note.
type ClassifierClient interface {
	Classify(ctx context.Context, text string, hints Hints) (Verdict, string, error)
}

// Completer is the raw chat-completion capability the Summarizer
// (spec.md §4.7) builds on — "external-capable wrapper around
// ClassifierClient" in spec terms, sharing the same backend and the
// same failure taxonomy, but returning free text instead of a verdict.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userText string) (string, error)
}

// prompt is the fixed classification instruction. Kept word-for-word
// close to original_source/classifier.rs's categories so the model's
// prior behavior transfers.
const prompt = `You are a spam classifier for a Telegram group. Analyze this message and respond with exactly one word: SPAM or NOT_SPAM.

Spam includes:
- Crypto/forex/investment scams
- Unsolicited promotions
- Phishing attempts
- Invite links to other groups/channels
- "Get rich quick" schemes
- Adult content promotion

NOT spam includes:
- Normal conversation
- Questions and answers
- Opinions and discussions
- Sharing relevant content

Message to classify:
"%s"

Respond with exactly one word: SPAM or NOT_SPAM`

// parseVerdict applies original_source/classifier.rs's parse rule:
// the response must mention SPAM without also mentioning NOT to be
// classified as spam. Any other shape (empty, garbled, "NOT_SPAM")
// resolves to Ham — the fail-open default.
func parseVerdict(response string) Verdict {
	upper := strings.ToUpper(strings.TrimSpace(response))
	if strings.Contains(upper, "SPAM") && !strings.Contains(upper, "NOT") {
		return Spam
	}
	return Ham
}
