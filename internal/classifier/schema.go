package classifier

import (
	"github.com/google/generative-ai-go/genai"

	"intake-service/internal/models"
)

// responseSchema is the provider-level output contract mirroring the
// classification record: enumerated key sets, bounded confidence, ISO date
// pattern on due_date. Enforcing it at the provider layer cuts most of the
// malformed-output repair work downstream.
func responseSchema() *genai.Schema {
	messageTypes := make([]string, 0, len(models.MessageTypes))
	for _, m := range models.MessageTypes {
		messageTypes = append(messageTypes, string(m))
	}
	taskKeys := make([]string, 0, len(models.TaskKeys))
	for _, k := range models.TaskKeys {
		taskKeys = append(taskKeys, string(k))
	}
	groupKeys := make([]string, 0, len(models.GroupKeys))
	for _, k := range models.GroupKeys {
		groupKeys = append(groupKeys, string(k))
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"schema_version": {Type: genai.TypeInteger, Description: "Always 1"},
			"message_type":   {Type: genai.TypeString, Enum: messageTypes},
			"task_key":       {Type: genai.TypeString, Enum: taskKeys, Nullable: true},
			"group_key":      {Type: genai.TypeString, Enum: groupKeys, Nullable: true},
			"listing": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"type":    {Type: genai.TypeString, Enum: []string{string(models.ListingSale), string(models.ListingLease)}, Nullable: true},
					"address": {Type: genai.TypeString, Nullable: true},
				},
			},
			"assignee_hint": {Type: genai.TypeString, Nullable: true},
			"due_date": {
				Type:        genai.TypeString,
				Nullable:    true,
				Description: "YYYY-MM-DD or YYYY-MM-DDThh:mm[:ss]",
			},
			"task_title": {Type: genai.TypeString, Nullable: true, Description: "At most 80 characters"},
			"confidence": {Type: genai.TypeNumber, Description: "Certainty in [0,1]"},
			"explanations": {
				Type:     genai.TypeArray,
				Nullable: true,
				Items:    &genai.Schema{Type: genai.TypeString},
			},
		},
		Required: []string{"message_type", "confidence", "listing"},
	}
}
