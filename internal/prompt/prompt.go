package prompt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"intake-service/internal/models"
)

// Prompt is a fully assembled provider request. System and Developer are
// static per deployment; User varies per message.
type Prompt struct {
	System    string
	Developer string
	User      string
	Examples  []Example
}

// UserContent flattens the developer instructions, few-shot examples and the
// user message into the single content block sent alongside the system role.
func (p Prompt) UserContent() string {
	var b strings.Builder
	b.WriteString(p.Developer)
	for _, ex := range p.Examples {
		b.WriteString("\n\nExample input:\n")
		b.WriteString(ex.Input)
		b.WriteString("\nExample output:\n")
		b.WriteString(ex.Output)
	}
	b.WriteString("\n\n")
	b.WriteString(p.User)
	return b.String()
}

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	// 7+ digit runs with common phone separators, optional country code
	phonePattern = regexp.MustCompile(`(\+?\d{1,3}[\s.\-]?)?(\(?\d{3}\)?[\s.\-]?)?\d{3}[\s.\-]?\d{4}\b`)
)

// Redact masks email-like and phone-like substrings so PII never reaches the
// provider.
func Redact(text string) string {
	text = emailPattern.ReplaceAllString(text, "[email]")
	return phonePattern.ReplaceAllString(text, "[phone]")
}

// Builder assembles provider requests. No network, no mutable state.
type Builder struct {
	loc *time.Location
	now func() time.Time
}

// NewBuilder creates a Builder resolving dates in the operations timezone.
func NewBuilder() *Builder {
	loc, err := time.LoadLocation("America/Toronto")
	if err != nil {
		loc = time.UTC
	}
	return &Builder{loc: loc, now: time.Now}
}

// Build assembles the prompt for one normalized event. The message body is
// redacted before it is embedded anywhere. The reference timestamp comes
// from the event's platform timestamp so the model resolves relative dates
// ("tomorrow", "next Friday") against message time, not call time.
func (b *Builder) Build(ev *models.NormalizedEvent) Prompt {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Message timestamp: %s\n\nMessage: %s", b.referenceTime(ev.Timestamp), Redact(ev.Text))

	if len(ev.Links) > 0 {
		sb.WriteString("\n\nLinks:")
		for _, l := range ev.Links {
			sb.WriteString("\n- ")
			sb.WriteString(l)
		}
	}

	return Prompt{
		System:    SystemInstruction,
		Developer: DeveloperInstruction,
		User:      sb.String(),
		Examples:  FewShotExamples,
	}
}

// referenceTime converts a platform timestamp ("1758369600.000100", seconds
// since epoch) into an ISO timestamp in the operations timezone. Wall clock
// is the fallback when the event carries no usable timestamp.
func (b *Builder) referenceTime(ts string) string {
	if ts != "" {
		secStr := ts
		if i := strings.IndexByte(ts, '.'); i >= 0 {
			secStr = ts[:i]
		}
		if sec, err := strconv.ParseInt(secStr, 10, 64); err == nil && sec > 0 {
			return time.Unix(sec, 0).In(b.loc).Format(time.RFC3339)
		}
	}
	return b.now().In(b.loc).Format(time.RFC3339)
}
