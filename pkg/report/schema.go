package report

import (
	"encoding/json"

	"github.com/invopop/jsonschema"

	"github.com/otherjamesbrown/chatpulse/pkg/engagement"
)

func newReflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
}

// ResultSchema returns the JSON Schema of engagement.Result.
func ResultSchema() *jsonschema.Schema {
	schema := newReflector().Reflect(&engagement.Result{})
	schema.Title = "AnalysisResult"
	schema.Description = "Engagement score of one chat transcript"
	return schema
}

// SchemaJSON returns ResultSchema as indented JSON.
func SchemaJSON() ([]byte, error) {
	return json.MarshalIndent(ResultSchema(), "", "  ")
}
