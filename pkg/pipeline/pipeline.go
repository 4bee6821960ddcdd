// Package pipeline commits an AI-generated modification of a single file.
//
// A run is strictly linear: Fetching, Generating, Committing, Done. Any
// failure is terminal for the submission. The blob sha read while Fetching
// is the only sha ever sent while Committing; concurrent writers to the same
// file are arbitrated by GitHub's compare-and-swap, and the loser fails with
// a conflict.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/saint0x/gitautomator/pkg/ai"
	"github.com/saint0x/gitautomator/pkg/github"
	"github.com/saint0x/gitautomator/pkg/log"
)

// User-facing messages
const (
	MsgMissingFields  = "Missing required fields."
	MsgGenerationFail = "AI failed to generate valid modifications or a commit message."
)

// Stage is a pipeline state
type Stage string

const (
	StageIdle           Stage = "idle"
	StageInvalid        Stage = "invalid"
	StageFetching       Stage = "fetching"
	StageFetchFailed    Stage = "fetch_failed"
	StageGenerating     Stage = "generating"
	StageGenerateFailed Stage = "generate_failed"
	StageCommitting     Stage = "committing"
	StageCommitFailed   Stage = "commit_failed"
	StageDone           Stage = "done"
)

// Result is what the submission surface reports
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Stage   Stage  `json:"stage"`
}

// ContentStore reads and compare-and-swap writes repository files
type ContentStore interface {
	GetFileContent(ctx context.Context, token, repo, ref, path string) (*github.FileContent, error)
	PutFileCommit(ctx context.Context, token, repo, branch, path, newContent, message, sha string) error
}

// Modifier turns a request and the current content into new content plus
// a commit message.
type Modifier interface {
	Modify(ctx context.Context, req ai.Request) (*ai.Result, error)
}

// Pipeline runs submissions
type Pipeline struct {
	logger   *log.Logger
	store    ContentStore
	modifier Modifier
	observe  func(Stage)
}

// New creates a new Pipeline
func New(logger *log.Logger, store ContentStore, modifier Modifier) (*Pipeline, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if store == nil {
		return nil, fmt.Errorf("content store is required")
	}
	if modifier == nil {
		return nil, fmt.Errorf("modifier is required")
	}
	return &Pipeline{logger: logger, store: store, modifier: modifier}, nil
}

// OnStage registers fn to be called on every state transition
func (p *Pipeline) OnStage(fn func(Stage)) *Pipeline {
	p.observe = fn
	return p
}

func (p *Pipeline) enter(stage Stage) {
	if p.observe != nil {
		p.observe(stage)
	}
}

// Run executes req and reports the outcome as a Result
func (p *Pipeline) Run(ctx context.Context, req Request) Result {
	res, _ := p.Execute(ctx, req)
	return res
}

// Execute is Run that also returns the error behind a failed Result
func (p *Pipeline) Execute(ctx context.Context, req Request) (Result, error) {
	p.enter(StageIdle)
	if err := req.Validate(); err != nil {
		p.logger.Warning("Rejected submission: %v", err)
		return p.fail(StageInvalid, MsgMissingFields), err
	}

	p.enter(StageFetching)
	p.logger.Step("Fetching %s from %s@%s", req.File, req.Repo, req.Branch)
	file, err := p.store.GetFileContent(ctx, req.Token, req.Repo, req.Branch, req.File)
	if err != nil {
		p.logger.Error("Fetch failed: %v", err)
		return p.fail(StageFetchFailed, err.Error()), err
	}
	p.logger.Debug("Read %s at blob %s (%d bytes)", req.File, file.SHA, len(file.Content))

	p.enter(StageGenerating)
	p.logger.Step("Generating modification")
	out, err := p.modifier.Modify(ctx, ai.Request{
		Instruction:    req.Instruction,
		FilePath:       req.File,
		CurrentContent: file.Content,
	})
	switch {
	case errors.Is(err, ai.ErrEmptyOutput):
		p.logger.Error("Generation failed: %v", err)
		return p.fail(StageGenerateFailed, MsgGenerationFail), err
	case err != nil:
		p.logger.Error("Generation failed: %v", err)
		return p.fail(StageGenerateFailed, err.Error()), err
	case out == nil || out.NewContent == "" || out.CommitMessage == "":
		err = &ai.GenerationError{Step: ai.StepModify, Err: ai.ErrEmptyOutput}
		p.logger.Error("Generation failed: %v", err)
		return p.fail(StageGenerateFailed, MsgGenerationFail), err
	}
	p.logger.Commit("Commit message: %s", out.CommitMessage)

	p.enter(StageCommitting)
	p.logger.Step("Committing %s to %s@%s", req.File, req.Repo, req.Branch)
	if err := p.store.PutFileCommit(ctx, req.Token, req.Repo, req.Branch, req.File, out.NewContent, out.CommitMessage, file.SHA); err != nil {
		if github.IsConflict(err) {
			p.logger.Warning("%s changed upstream since it was read; resubmit to retry", req.File)
		}
		p.logger.Error("Commit failed: %v", err)
		return p.fail(StageCommitFailed, err.Error()), err
	}

	msg := fmt.Sprintf("Successfully committed changes to %s in %s.", req.File, req.Repo)
	p.logger.Success("%s", msg)
	p.enter(StageDone)
	return Result{Success: true, Message: msg, Stage: StageDone}, nil
}

func (p *Pipeline) fail(stage Stage, message string) Result {
	p.enter(stage)
	return Result{Success: false, Message: message, Stage: stage}
}
