package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"intake-service/internal/models"
)

const (
	defaultConfidence    = 0.8
	snippetLimit         = 200
	currentSchemaVersion = 1
)

// ParseError means no JSON object could be extracted from the raw output.
type ParseError struct {
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("no JSON object in model output (snippet %q): %v", e.Snippet, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError means the extracted record violates the output contract.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid classification: %s %s", e.Field, e.Reason)
}

var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(T\d{2}:\d{2}(:\d{2})?)?$`)

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New()
	// due_date accepts YYYY-MM-DD or YYYY-MM-DDThh:mm[:ss]
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		return isoDatePattern.MatchString(fl.Field().String())
	})
	return v
}

// wire mirrors the provider JSON with pointer fields so that absent values
// are distinguishable from zero values during defaulting.
type wire struct {
	SchemaVersion *int     `json:"schema_version"`
	MessageType   *string  `json:"message_type"`
	TaskKey       *string  `json:"task_key"`
	GroupKey      *string  `json:"group_key"`
	Listing       *struct {
		Type    *string `json:"type"`
		Address *string `json:"address"`
	} `json:"listing"`
	AssigneeHint *string  `json:"assignee_hint"`
	DueDate      *string  `json:"due_date"`
	TaskTitle    *string  `json:"task_title"`
	Confidence   *float64 `json:"confidence"`
	Explanations []string `json:"explanations"`
}

// Parse turns raw model output into a validated classification record.
//
// Extraction tries the whole string first and falls back to the substring
// between the first '{' and the last '}', which recovers records the model
// wrapped in prose or code fences. Missing fields get defaults
// (message_type INFO_REQUEST, confidence 0.8); absent optionals stay null,
// never fabricated. Cross-field invariants are enforced after defaulting.
func Parse(raw string) (*models.Classification, error) {
	w, err := extract(raw)
	if err != nil {
		return nil, err
	}

	rec := applyDefaults(w)
	if err := Validate(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func extract(raw string) (*wire, error) {
	clean := stripFences(raw)

	// Only a JSON object is a candidate record. Bare values ("null", "true",
	// a quoted string) unmarshal into the zero wire without error and would
	// default into a record fabricated from nothing.
	var w wire
	if strings.HasPrefix(clean, "{") {
		if err := json.Unmarshal([]byte(clean), &w); err == nil {
			return &w, nil
		}
	}

	start := strings.IndexByte(clean, '{')
	end := strings.LastIndexByte(clean, '}')
	if start < 0 || end <= start {
		return nil, &ParseError{Snippet: Truncate(raw), Err: fmt.Errorf("no object delimiters found")}
	}
	if err := json.Unmarshal([]byte(clean[start:end+1]), &w); err != nil {
		return nil, &ParseError{Snippet: Truncate(raw), Err: err}
	}
	return &w, nil
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func applyDefaults(w *wire) *models.Classification {
	rec := &models.Classification{
		SchemaVersion: currentSchemaVersion,
		MessageType:   models.MessageTypeInfoRequest,
		Confidence:    defaultConfidence,
	}

	if w.SchemaVersion != nil {
		rec.SchemaVersion = *w.SchemaVersion
	}
	if w.MessageType != nil && *w.MessageType != "" {
		rec.MessageType = models.MessageType(*w.MessageType)
	}
	if w.Confidence != nil {
		rec.Confidence = *w.Confidence
	}
	if w.TaskKey != nil && *w.TaskKey != "" {
		k := models.TaskKey(*w.TaskKey)
		rec.TaskKey = &k
	}
	if w.GroupKey != nil && *w.GroupKey != "" {
		k := models.GroupKey(*w.GroupKey)
		rec.GroupKey = &k
	}
	if w.Listing != nil {
		if w.Listing.Type != nil && *w.Listing.Type != "" {
			lt := models.ListingType(*w.Listing.Type)
			rec.Listing.Type = &lt
		}
		rec.Listing.Address = w.Listing.Address
	}
	rec.AssigneeHint = w.AssigneeHint
	rec.DueDate = w.DueDate
	rec.TaskTitle = w.TaskTitle
	if len(w.Explanations) > 0 {
		rec.Explanations = w.Explanations
	}
	return rec
}

// Validate enforces field constraints and the cross-field key invariant:
// GROUP/STRAY carry exactly one of group_key/task_key, INFO_REQUEST/IGNORE
// carry neither.
func Validate(rec *models.Classification) error {
	if rec.SchemaVersion != currentSchemaVersion {
		return &ValidationError{Field: "schema_version", Reason: fmt.Sprintf("must be %d", currentSchemaVersion)}
	}
	if !rec.MessageType.Valid() {
		return &ValidationError{Field: "message_type", Reason: fmt.Sprintf("unknown value %q", rec.MessageType)}
	}
	if rec.TaskKey != nil && !rec.TaskKey.Valid() {
		return &ValidationError{Field: "task_key", Reason: fmt.Sprintf("unknown value %q", *rec.TaskKey)}
	}
	if rec.GroupKey != nil && !rec.GroupKey.Valid() {
		return &ValidationError{Field: "group_key", Reason: fmt.Sprintf("unknown value %q", *rec.GroupKey)}
	}
	if rec.Listing.Type != nil && !rec.Listing.Type.Valid() {
		return &ValidationError{Field: "listing.type", Reason: fmt.Sprintf("unknown value %q", *rec.Listing.Type)}
	}

	if err := structValidator.Struct(rec); err != nil {
		var verrs validator.ValidationErrors
		if ok := errors.As(err, &verrs); ok && len(verrs) > 0 {
			return &ValidationError{Field: strings.ToLower(verrs[0].Field()), Reason: "failed " + verrs[0].Tag() + " constraint"}
		}
		return &ValidationError{Field: "record", Reason: err.Error()}
	}

	return checkKeyInvariant(rec)
}

func checkKeyInvariant(rec *models.Classification) error {
	switch rec.MessageType {
	case models.MessageTypeGroup:
		if rec.GroupKey == nil {
			return &ValidationError{Field: "group_key", Reason: "required for GROUP"}
		}
		if rec.TaskKey != nil {
			return &ValidationError{Field: "task_key", Reason: "must be null for GROUP"}
		}
	case models.MessageTypeStray:
		if rec.TaskKey == nil {
			return &ValidationError{Field: "task_key", Reason: "required for STRAY"}
		}
		if rec.GroupKey != nil {
			return &ValidationError{Field: "group_key", Reason: "must be null for STRAY"}
		}
	default:
		if rec.TaskKey != nil || rec.GroupKey != nil {
			return &ValidationError{Field: "task_key/group_key", Reason: "must be null for " + string(rec.MessageType)}
		}
	}
	return nil
}

// Truncate bounds a raw snippet for log lines.
func Truncate(s string) string {
	if len(s) <= snippetLimit {
		return s
	}
	return s[:snippetLimit] + "..."
}
