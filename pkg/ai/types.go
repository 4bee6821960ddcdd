package ai

import (
	"errors"
	"fmt"
)

// Request is one natural-language modification of a single file
type Request struct {
	Instruction    string `json:"instruction"`
	FilePath       string `json:"file_path"`
	CurrentContent string `json:"current_content"`
}

// Result is the replacement file content and the message to commit it with
type Result struct {
	NewContent    string `json:"new_content"`
	CommitMessage string `json:"commit_message"`
}

// ModifyInput is the input schema of the content prompt
type ModifyInput struct {
	Request     string `json:"request"`
	FilePath    string `json:"filePath"`
	FileContent string `json:"fileContent"`
}

// ModifyOutput is the output schema of the content prompt
type ModifyOutput struct {
	ModifiedContent string `json:"modifiedContent"`
}

// CommitMessageInput is the input schema of the commit-message prompt
type CommitMessageInput struct {
	Request         string `json:"request"`
	FilePath        string `json:"filePath"`
	OriginalContent string `json:"originalContent"`
	ModifiedContent string `json:"modifiedContent"`
}

// CommitMessageOutput is the output schema of the commit-message prompt
type CommitMessageOutput struct {
	CommitMessage string `json:"commitMessage"`
}

// Generation steps
const (
	StepModify        = "modify"
	StepCommitMessage = "commit_message"
)

var (
	// ErrEmptyOutput means the model answered without the requested field
	ErrEmptyOutput = errors.New("model returned empty output")
	// ErrMalformedOutput means the reply did not match the output schema
	ErrMalformedOutput = errors.New("model returned malformed output")
)

// GenerationError is any failure of a generative call
type GenerationError struct {
	Step string
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("AI generation failed at %s: %v", e.Step, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
