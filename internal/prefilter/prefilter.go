package prefilter

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minTextLen        = 10
	minTextLenNoEmoji = 5
)

// DefaultSkipPhrases is the stock list of greeting/acknowledgment/closing
// phrases that short-circuit the pipeline. It is a tuning table, not a
// contract; replace it per Filter when the noise profile changes.
var DefaultSkipPhrases = []string{
	"hi", "hello", "hey", "hey there",
	"good morning", "good afternoon", "good evening", "good night",
	"thanks", "thank you", "thanks a lot", "thank you so much", "many thanks",
	"ok", "okay", "kk", "sure", "yes", "no", "yep", "nope",
	"got it", "noted", "sounds good", "will do", "on it", "done",
	"great", "great job", "awesome", "perfect", "nice", "cool", "amazing",
	"no problem", "np", "you're welcome", "welcome", "anytime",
	"bye", "goodbye", "see you", "talk soon", "have a good one",
	"lol", "haha", "congrats", "congratulations", "well done",
}

// Filter decides whether a message is obviously non-actionable noise that
// should never reach the model. It trades recall for provider-call cost: a
// false skip loses a task, a false pass only wastes one call, so the rules
// are deliberately conservative.
type Filter struct {
	phrases map[string]struct{}
}

// New creates a Filter with the default phrase table.
func New() *Filter {
	return NewWithPhrases(DefaultSkipPhrases)
}

// NewWithPhrases creates a Filter with a custom phrase table.
func NewWithPhrases(phrases []string) *Filter {
	set := make(map[string]struct{}, len(phrases))
	for _, p := range phrases {
		set[strings.ToLower(strings.TrimSpace(p))] = struct{}{}
	}
	return &Filter{phrases: set}
}

// ShouldSkip reports whether text should bypass classification entirely.
// Pure function, no side effects.
func (f *Filter) ShouldSkip(text string) bool {
	trimmed := strings.TrimSpace(text)

	// (a) very short messages carry no extractable task
	if utf8.RuneCountInString(trimmed) < minTextLen {
		return true
	}

	// (b) mostly-emoji messages
	if utf8.RuneCountInString(strings.TrimSpace(stripEmoji(trimmed))) < minTextLenNoEmoji {
		return true
	}

	// (c) whole-text greeting/ack/closing match, ignoring emoji decoration
	normalized := strings.ToLower(strings.TrimSpace(stripEmoji(trimmed)))
	normalized = strings.TrimRight(normalized, "!.?, ")
	if _, ok := f.phrases[normalized]; ok {
		return true
	}

	// (d) nothing but whitespace, punctuation and emoji
	return !hasSubstance(trimmed)
}

func stripEmoji(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isEmoji(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func hasSubstance(s string) bool {
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) || isEmoji(r) {
			continue
		}
		return true
	}
	return false
}

// isEmoji covers the common emoji blocks plus the joiners and modifiers
// that ride along with them.
func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF: // pictographs, emoticons, symbols
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r >= 0x2B00 && r <= 0x2BFF: // arrows, stars
		return true
	case r == 0x200D || r == 0xFE0F: // ZWJ, variation selector
		return true
	}
	return false
}
