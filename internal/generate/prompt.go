package generate

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"
)

//go:embed prompts/node.txt
var nodePrompt string

// BuildPrompt renders the node-generation prompt for a request.
func BuildPrompt(req Request) (string, error) {
	tmpl, err := template.New("node").Parse(nodePrompt)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, req); err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return buf.String(), nil
}
