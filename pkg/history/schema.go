package history

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// recordSchema is the shape a persisted project record must satisfy before
// it is trusted. Validation failures degrade to an empty project rather
// than propagate.
const recordSchema = `{
  "type": "object",
  "required": ["project_path", "sessions"],
  "properties": {
    "project_path": {"type": "string"},
    "last_updated": {"type": "string"},
    "sessions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["session_id", "session_name", "entries"],
        "properties": {
          "session_id": {"type": "string", "minLength": 1},
          "session_name": {"type": "string"},
          "created_at": {"type": "string"},
          "updated_at": {"type": "string"},
          "is_saved": {"type": "boolean"},
          "auto_named": {"type": "boolean"},
          "entries": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["id", "timestamp", "prompt_text"],
              "properties": {
                "id": {"type": "string"},
                "timestamp": {"type": "string"},
                "prompt_type": {"type": "string"},
                "prompt_text": {"type": "string"},
                "response_text": {"type": "string"},
                "model_used": {"type": "string"},
                "token_usage": {"type": "object"}
              }
            }
          }
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(recordSchema)

// validateRecord checks raw record bytes against the schema.
func validateRecord(data []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return fmt.Errorf("record does not match schema: %s", errs[0])
		}
		return fmt.Errorf("record does not match schema")
	}

	return nil
}
