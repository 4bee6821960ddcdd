package ai

import (
	"context"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/saint0x/gitautomator/pkg/log"
	"github.com/saint0x/gitautomator/pkg/openai"
)

// Completer is a black-box text generation call. Implementations must
// honour ctx; the reply is expected to be a JSON object.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// CompleterFunc adapts a plain function to Completer
type CompleterFunc func(ctx context.Context, system, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, system, prompt string) (string, error) {
	return f(ctx, system, prompt)
}

// ChatCompleter is the subset of the OpenAI client used here
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error)
}

// OpenAI completes prompts through the chat completions API in JSON mode
type OpenAI struct {
	chat        ChatCompleter
	model       string
	temperature float64
}

// NewOpenAI wraps chat as a Completer using model
func NewOpenAI(chat ChatCompleter, model string) *OpenAI {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAI{chat: chat, model: model, temperature: 0.2}
}

func (o *OpenAI) Complete(ctx context.Context, system, prompt string) (string, error) {
	temp := o.temperature
	resp, err := o.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature:    &temp,
		ResponseFormat: openai.JSONObject,
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// Modifier produces replacement file content and a commit message for a
// natural-language request.
type Modifier struct {
	logger  *log.Logger
	model   Completer
	prompts Prompts
}

// New creates a new Modifier with the built-in prompts
func New(logger *log.Logger, model Completer) *Modifier {
	return &Modifier{
		logger:  logger,
		model:   model,
		prompts: DefaultPrompts(),
	}
}

// WithPrompts replaces the prompt templates
func (m *Modifier) WithPrompts(p Prompts) *Modifier {
	m.prompts = p
	return m
}

// Modify runs the content prompt and then the commit-message prompt. The
// second call needs the first call's output, so they never overlap.
func (m *Modifier) Modify(ctx context.Context, req Request) (*Result, error) {
	m.logger.AI("Generating new content for %s", req.FilePath)
	var content ModifyOutput
	err := m.generate(ctx, StepModify, renderModify(m.prompts.Modify, ModifyInput{
		Request:     req.Instruction,
		FilePath:    req.FilePath,
		FileContent: req.CurrentContent,
	}), &content)
	if err != nil {
		return nil, err
	}
	if content.ModifiedContent == "" {
		return nil, &GenerationError{Step: StepModify, Err: ErrEmptyOutput}
	}
	m.logger.Debug("Model returned %d bytes for %s", len(content.ModifiedContent), req.FilePath)

	m.logger.AI("Generating commit message")
	var msg CommitMessageOutput
	err = m.generate(ctx, StepCommitMessage, renderCommitMessage(m.prompts.CommitMessage, CommitMessageInput{
		Request:         req.Instruction,
		FilePath:        req.FilePath,
		OriginalContent: req.CurrentContent,
		ModifiedContent: content.ModifiedContent,
	}), &msg)
	if err != nil {
		return nil, err
	}
	message := strings.TrimSpace(msg.CommitMessage)
	if message == "" {
		return nil, &GenerationError{Step: StepCommitMessage, Err: ErrEmptyOutput}
	}

	return &Result{
		NewContent:    content.ModifiedContent,
		CommitMessage: message,
	}, nil
}

// generate sends prompt and decodes the JSON reply into out
func (m *Modifier) generate(ctx context.Context, step, prompt string, out interface{}) error {
	text, err := m.model.Complete(ctx, m.prompts.System, prompt)
	if err != nil {
		return &GenerationError{Step: step, Err: err}
	}

	text = stripFences(text)
	if text == "" {
		return &GenerationError{Step: step, Err: ErrEmptyOutput}
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return &GenerationError{Step: step, Err: fmt.Errorf("%w: %v", ErrMalformedOutput, err)}
	}
	return nil
}

// stripFences removes a markdown code fence wrapped around a reply
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	} else {
		text = ""
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))
}
