package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// GenerateWorkflowJSONSchema produces a JSON Schema Draft 2020-12 document
// describing the parsed workflow model as emitted by `--list --format json`.
func GenerateWorkflowJSONSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	s := r.Reflect(&Workflow{})
	s.ID = "https://github.com/ormasoftchile/workflow/schemas/workflow-v1.json"
	s.Title = "Markdown Workflow"
	s.Description = "Parsed step model of a markdown workflow document (Draft 2020-12)"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal workflow schema: %w", err)
	}
	return data, nil
}
