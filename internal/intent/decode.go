package intent

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

//go:embed parser_prompt.md
var parserPrompt string

// buildPrompt renders the parser prompt for one command.
func buildPrompt(command string) (string, error) {
	tmpl, err := template.New("parser").Parse(parserPrompt)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Command string }{Command: command}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// decodeIntent parses the model output into an Intent. Models occasionally
// wrap the JSON in markdown fences or prose, so decoding tolerates leading
// and trailing noise around the outermost object.
func decodeIntent(raw string) (Intent, error) {
	cleaned := strings.TrimSpace(raw)
	if start, end := strings.Index(cleaned, "{"), strings.LastIndex(cleaned, "}"); start >= 0 && end > start {
		cleaned = cleaned[start : end+1]
	}

	var in Intent
	if err := json.Unmarshal([]byte(cleaned), &in); err != nil {
		return Intent{}, fmt.Errorf("failed to parse intent JSON: %w. Response: %s", err, raw)
	}
	if err := in.Validate(); err != nil {
		return Intent{}, fmt.Errorf("model returned an invalid intent: %w", err)
	}
	return in, nil
}
