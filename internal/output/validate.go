package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// resultSchema is the contract for a per-document result record.
const resultSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["title", "outline"],
  "properties": {
    "title": {"type": "string"},
    "outline": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["level", "text", "page"],
        "properties": {
          "level": {"enum": ["H1", "H2", "H3", "H4"]},
          "text": {"type": "string", "minLength": 1},
          "page": {"type": "integer", "minimum": 1}
        }
      }
    },
    "language": {"type": "string"},
    "font_analysis": {
      "type": "object",
      "required": ["detected_fonts", "font_mapping"],
      "properties": {
        "detected_fonts": {"type": "array", "maxItems": 10},
        "font_mapping": {"type": "object"}
      }
    },
    "statistics": {
      "type": "object",
      "required": ["total_pages", "total_headings", "headings_by_level"],
      "properties": {
        "total_pages": {"type": "integer", "minimum": 0},
        "total_headings": {"type": "integer", "minimum": 0},
        "headings_by_level": {"type": "object"}
      }
    }
  }
}`

// Validator checks result records against the output schema.
type Validator struct {
	schema *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("result.json", strings.NewReader(resultSchema)); err != nil {
		return nil, fmt.Errorf("load result schema: %w", err)
	}
	schema, err := compiler.Compile("result.json")
	if err != nil {
		return nil, fmt.Errorf("compile result schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Validate reports whether res serializes to a conforming record.
func (v *Validator) Validate(res *outline.Result) error {
	if res == nil {
		return fmt.Errorf("nil result")
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("result does not match schema: %w", err)
	}
	return nil
}
