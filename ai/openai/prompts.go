package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/dossier/ai"
)

const extractionResponseSchema = `{
  "type": "object",
  "properties": {
    "entities": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "type": {"type": "string"},
          "description": {"type": "string"},
          "importance": {"type": "integer", "minimum": 1, "maximum": 10}
        },
        "required": ["name", "type", "importance"],
        "additionalProperties": false
      }
    },
    "relationships": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "source": {"type": "string"},
          "target": {"type": "string"},
          "type": {"type": "string"},
          "description": {"type": "string"},
          "weight": {"type": "number", "minimum": 0, "maximum": 1}
        },
        "required": ["source", "target", "type"],
        "additionalProperties": false
      }
    }
  },
  "required": ["entities", "relationships"],
  "additionalProperties": false
}`

const extractionPromptTemplate = `Extract a knowledge graph from the given passage and return it as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Entity names are written the way the passage writes them, e.g. "Sherlock Holmes", "Baker Street".
- Type field must match exactly one of the listed values: %s.
- Importance is an integer from 1 (passing mention) to 10 (central to the passage).
- Relationship source and target must be names of entities in the "entities" list.
- Relationship types are short snake_case verbs, e.g. "lives_at", "treats", "approved_by".
- Weight is your confidence that the passage states the relationship, from 0 to 1.
- Include only what the passage states or clearly implies. Do not hallucinate.
- If nothing can be identified, return {"entities": [], "relationships": []}.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "Dr. Watson took rooms with Sherlock Holmes at 221B Baker Street."
Output:
{
  "entities": [
    {"name":"Dr. Watson","type":"person","description":"doctor sharing rooms with Holmes","importance":9},
    {"name":"Sherlock Holmes","type":"person","description":"Watson's fellow lodger","importance":9},
    {"name":"221B Baker Street","type":"location","description":"lodgings","importance":7}
  ],
  "relationships": [
    {"source":"Dr. Watson","target":"Sherlock Holmes","type":"lodges_with","description":"share rooms","weight":0.9},
    {"source":"Sherlock Holmes","target":"221B Baker Street","type":"lives_at","description":"","weight":0.9}
  ]
}`

// buildExtractionPrompt creates the system prompt with entity types embedded.
func buildExtractionPrompt() string {
	return fmt.Sprintf(extractionPromptTemplate,
		extractionResponseSchema,
		strings.Join(ai.EntityTypes, ", "))
}
