package lists

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/qkfdcom/lcqk/internal/domain"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const listSchemaURL = "lcqk://schemas/list.json"

// listSchema describes a tier document. Extra properties on entries are
// tolerated so hand-edited files with notes still load.
const listSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["users"],
  "properties": {
    "users": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["user_id"],
        "properties": {
          "user_id": {"type": "string"},
          "tag": {"type": "string"}
        }
      }
    }
  }
}`

var compiledListSchema = mustCompileListSchema()

func mustCompileListSchema() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(listSchema))
	if err != nil {
		panic(fmt.Sprintf("parse list schema: %v", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(listSchemaURL, doc); err != nil {
		panic(fmt.Sprintf("add list schema: %v", err))
	}
	sch, err := c.Compile(listSchemaURL)
	if err != nil {
		panic(fmt.Sprintf("compile list schema: %v", err))
	}
	return sch
}

// DecodeDocument parses raw as a tier document, checking its shape first.
func DecodeDocument(raw []byte) (domain.ListDocument, error) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return domain.ListDocument{}, fmt.Errorf("parse list document: %w", err)
	}
	if err := compiledListSchema.Validate(inst); err != nil {
		return domain.ListDocument{}, fmt.Errorf("list document shape: %w", err)
	}

	var doc domain.ListDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.ListDocument{}, fmt.Errorf("decode list document: %w", err)
	}
	if doc.Users == nil {
		doc.Users = []domain.ListEntry{}
	}
	return doc, nil
}
