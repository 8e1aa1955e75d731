package prefilter

import "testing"

func TestShouldSkip(t *testing.T) {
	f := New()

	cases := []struct {
		name string
		text string
		skip bool
	}{
		{"short thanks", "thanks!", true},
		{"thumbs up emoji", "👍", true},
		{"bare ok", "ok", true},
		{"empty", "", true},
		{"whitespace only", "   \n\t ", true},
		{"punctuation only", "?!... --- !!!", true},
		{"emoji string", "🎉🎉🎉 👍👍 🙏", true},
		{"greeting phrase", "good morning!", true},
		{"greeting with trailer", "good morning everyone!", false},
		{"long thank you", "thank you so much!!!", true},
		{"emoji padded ack", "sounds good 👍👍👍👍👍👍", true},
		{"real task", "We got an offer on 123 Main St, closing Friday", false},
		{"listing update", "Please update the MLS listing for 456 Oak Ave", false},
		{"short but dense", "Fix docs", true}, // under 10 chars, by rule
		{"question with substance", "Who is handling the 18 Oak Ave closing docs?", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := f.ShouldSkip(tc.text); got != tc.skip {
				t.Fatalf("ShouldSkip(%q) = %v, want %v", tc.text, got, tc.skip)
			}
		})
	}
}

func TestCustomPhraseTable(t *testing.T) {
	f := NewWithPhrases([]string{"standup reminder"})

	if !f.ShouldSkip("Standup reminder") {
		t.Fatal("custom phrase not skipped")
	}
	// The default table no longer applies.
	if f.ShouldSkip("sounds good, will start today") {
		t.Fatal("non-matching text skipped")
	}
}
