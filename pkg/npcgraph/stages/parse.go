package stages

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/randalmurphal/npcgraph/pkg/npcgraph"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/errors"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/observability"
)

const (
	moodSchemaJSON = `{
  "type": "object",
  "required": ["emotions"],
  "properties": {
    "emotions": {"type": "object", "additionalProperties": {"type": "number"}},
    "justification": {"type": "string"}
  }
}`

	contextSchemaJSON = `{
  "type": "object",
  "properties": {
    "perceived_context": {"type": "string"},
    "environmental_cues": {"type": "string"},
    "needs_world": {"type": "boolean"},
    "world_query": {"type": ["string", "null"]}
  }
}`

	plannerSchemaJSON = `{
  "type": "object",
  "required": ["intent"],
  "properties": {
    "intent": {"type": "string", "minLength": 1},
    "plan": {"type": "string"},
    "current_goal": {"type": "string"},
    "needs_world": {"type": "boolean"},
    "world_query": {"type": ["string", "null"]}
  }
}`

	relationshipSchemaJSON = `{
  "type": "object",
  "properties": {
    "character_name": {"type": ["string", "null"]},
    "updates": {
      "type": "object",
      "properties": {
        "trust": {"type": ["number", "null"]},
        "fear": {"type": ["number", "null"]},
        "respect": {"type": ["number", "null"]},
        "attachment": {"type": ["number", "null"]},
        "hostility": {"type": ["number", "null"]},
        "dependence": {"type": ["number", "null"]},
        "betrayal_memory": {"type": ["string", "null"]}
      }
    },
    "interaction_event": {"type": ["string", "null"]},
    "interaction_impact": {"type": ["object", "null"], "additionalProperties": {"type": "number"}}
  }
}`
)

var (
	moodSchema         = mustCompileSchema("mood.json", moodSchemaJSON)
	contextSchema      = mustCompileSchema("context.json", contextSchemaJSON)
	plannerSchema      = mustCompileSchema("planner.json", plannerSchemaJSON)
	relationshipSchema = mustCompileSchema("relationship.json", relationshipSchemaJSON)
)

func mustCompileSchema(name, schema string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, strings.NewReader(schema)); err != nil {
		panic(fmt.Sprintf("stages: schema %s: %v", name, err))
	}
	return c.MustCompile(name)
}

// stripFences removes a markdown code fence and a leading "json" tag.
func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if end := strings.LastIndex(text, "```"); end >= 0 {
			text = text[:end]
		}
		text = strings.TrimSpace(text)
	}
	if len(text) >= 4 && strings.EqualFold(text[:4], "json") {
		text = strings.TrimSpace(text[4:])
	}
	return text
}

// parseJSON decodes model output into out after validating it against
// schema. Prose around a single JSON object is tolerated.
func parseJSON(stage npcgraph.StageID, raw string, schema *jsonschema.Schema, out any) error {
	text := stripFences(raw)
	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return &errors.StageParseError{Stage: string(stage), Input: raw, Reason: "no JSON object: " + err.Error()}
		}
		text = text[start : end+1]
		if err := json.Unmarshal([]byte(text), &doc); err != nil {
			return &errors.StageParseError{Stage: string(stage), Input: raw, Reason: "invalid JSON: " + err.Error()}
		}
	}
	if err := schema.Validate(doc); err != nil {
		return &errors.StageParseError{Stage: string(stage), Input: raw, Reason: err.Error()}
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return &errors.StageParseError{Stage: string(stage), Input: raw, Reason: err.Error()}
	}
	return nil
}

// fallback logs a recovered parse failure.
func fallback(ctx npcgraph.Context, err error) {
	observability.LogParseFallback(ctx.Logger(), string(ctx.StageID()), err)
}
