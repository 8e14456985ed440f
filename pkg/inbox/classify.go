package inbox

import (
	"strings"

	"tock/pkg/protocol"
)

// keywordSet holds per-category match terms for one locale. Categories are
// evaluated in fixed priority order: question > request > blocker > update,
// with report as the default. The first matching category wins even when a
// lower-priority keyword also appears, so "Please review the status update"
// is a request, not an update.
type keywordSet struct {
	question []string
	request  []string
	blocker  []string
	update   []string
}

var keywordsByLocale = map[string]keywordSet{
	"en": {
		question: []string{"?", "can you", "could you", "what is", "what's", "how do", "how does", "why", "when will", "where"},
		request:  []string{"please", "review", "would you", "need you to", "requesting", "request:", "action required"},
		blocker:  []string{"blocked", "blocker", "stuck", "can't proceed", "cannot proceed", "waiting on"},
		update:   []string{"update", "fyi", "heads up", "status", "progress"},
	},
}

// Classify assigns a message type from the subject and body using the
// locale's keyword heuristics. Unknown locales fall back to English.
// The second return value reports whether the message expects a reply.
func Classify(subject, body, locale string) (protocol.MessageType, bool) {
	kw, ok := keywordsByLocale[locale]
	if !ok {
		kw = keywordsByLocale["en"]
	}
	text := strings.ToLower(subject + " " + body)

	switch {
	case containsAny(text, kw.question):
		return protocol.MessageQuestion, true
	case containsAny(text, kw.request):
		return protocol.MessageRequest, true
	case containsAny(text, kw.blocker):
		return protocol.MessageBlocker, true
	case containsAny(text, kw.update):
		return protocol.MessageUpdate, false
	default:
		return protocol.MessageReport, false
	}
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
