package ai

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/valyala/fasttemplate"
)

const defaultSystemPrompt = "You are an assistant that edits source files in GitHub repositories. " +
	"Always answer with a single JSON object and nothing else."

const defaultModifyPrompt = `You are a code modification expert. Given a file content, its path, and a modification request, you will generate ONLY the modified content.

File Path:
{{filePath}}

File Content:
` + "```" + `
{{fileContent}}
` + "```" + `

Modification Request:
{{request}}

Return the complete, modified file content, not a diff. Do not add explanations or markdown formatting around the code.
Respond with a JSON object of the form {"modifiedContent": "<the full new file content>"}.`

const defaultCommitMessagePrompt = `You are a commit message expert. Generate a concise, descriptive one-line commit message in the conventional commit format (e.g. "feat: add new login button").

Modification Request: {{request}}
File Path: {{filePath}}

Original Content:
` + "```" + `
{{originalContent}}
` + "```" + `

Modified Content:
` + "```" + `
{{modifiedContent}}
` + "```" + `

Respond with a JSON object of the form {"commitMessage": "<message>"}.`

// Prompts are the templates sent to the model. Placeholders use {{name}}
// and are filled from the typed prompt inputs.
type Prompts struct {
	System        string `yaml:"system" json:"system"`
	Modify        string `yaml:"modify" json:"modify"`
	CommitMessage string `yaml:"commit_message" json:"commit_message"`
}

// DefaultPrompts returns the built-in templates
func DefaultPrompts() Prompts {
	return Prompts{
		System:        defaultSystemPrompt,
		Modify:        defaultModifyPrompt,
		CommitMessage: defaultCommitMessagePrompt,
	}
}

// LoadPrompts reads template overrides from a YAML or JSON file. Keys that
// are missing keep their default.
func LoadPrompts(path string) (Prompts, error) {
	prompts := DefaultPrompts()

	data, err := os.ReadFile(path)
	if err != nil {
		return prompts, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var overrides Prompts
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return prompts, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if overrides.System != "" {
		prompts.System = overrides.System
	}
	if overrides.Modify != "" {
		prompts.Modify = overrides.Modify
	}
	if overrides.CommitMessage != "" {
		prompts.CommitMessage = overrides.CommitMessage
	}
	return prompts, nil
}

func renderModify(tpl string, in ModifyInput) string {
	return fasttemplate.ExecuteStringStd(tpl, "{{", "}}", map[string]interface{}{
		"request":     in.Request,
		"filePath":    in.FilePath,
		"fileContent": in.FileContent,
	})
}

func renderCommitMessage(tpl string, in CommitMessageInput) string {
	return fasttemplate.ExecuteStringStd(tpl, "{{", "}}", map[string]interface{}{
		"request":         in.Request,
		"filePath":        in.FilePath,
		"originalContent": in.OriginalContent,
		"modifiedContent": in.ModifiedContent,
	})
}
