package ai

type geminiSchema struct {
	Type       string                   `json:"type"`
	Properties map[string]*geminiSchema `json:"properties,omitempty"`
	Items      *geminiSchema            `json:"items,omitempty"`
	Required   []string                 `json:"required,omitempty"`
}

// The two analysis contracts are distinct named values selected by the
// subtitle flag: sceneSchema has no subtitle property at all, while
// sceneSchemaWithSubtitles declares the cue array and marks it required.
var (
	sceneSchema              = buildSceneSchema(false)
	sceneSchemaWithSubtitles = buildSceneSchema(true)
)

func analysisSchema(includeSubtitles bool) *geminiSchema {
	if includeSubtitles {
		return sceneSchemaWithSubtitles
	}
	return sceneSchema
}

func buildSceneSchema(withSubtitles bool) *geminiSchema {
	props := map[string]*geminiSchema{
		"title":        {Type: "STRING"},
		"description":  {Type: "STRING"},
		"visualPrompt": {Type: "STRING"},
		"genre":        {Type: "STRING"},
		"mood":         {Type: "STRING"},
		"characters":   {Type: "ARRAY", Items: &geminiSchema{Type: "STRING"}},
	}
	required := []string{"title", "description", "visualPrompt", "genre", "mood", "characters"}

	if withSubtitles {
		props["subtitles"] = &geminiSchema{
			Type: "ARRAY",
			Items: &geminiSchema{
				Type: "OBJECT",
				Properties: map[string]*geminiSchema{
					"startTime": {Type: "NUMBER"},
					"endTime":   {Type: "NUMBER"},
					"text":      {Type: "STRING"},
				},
				Required: []string{"startTime", "endTime", "text"},
			},
		}
		required = append(required, "subtitles")
	}

	return &geminiSchema{Type: "OBJECT", Properties: props, Required: required}
}
