package main

import (
	"fmt"

	"github.com/saint0x/gitautomator/pkg/ai"
	"github.com/saint0x/gitautomator/pkg/github"
	"github.com/saint0x/gitautomator/pkg/openai"
	"github.com/saint0x/gitautomator/pkg/pipeline"
)

func (a *app) githubClient() (*github.Client, error) {
	client, err := github.New(a.logger, github.Options{
		APIURL:            a.cfg.GitHub.APIURL,
		Timeout:           a.cfg.GitHub.Timeout,
		RequestsPerSecond: a.cfg.GitHub.RequestsPerSecond,
		Burst:             a.cfg.GitHub.Burst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GitHub client: %w", err)
	}
	return client, nil
}

func (a *app) modifier() (*ai.Modifier, error) {
	chat := openai.NewClient(a.cfg.OpenAI.APIKey,
		openai.WithBaseURL(a.cfg.OpenAI.BaseURL),
		openai.WithTimeout(a.cfg.OpenAI.Timeout),
	)
	m := ai.New(a.logger, ai.NewOpenAI(chat, a.cfg.OpenAI.Model))

	if path := a.cfg.AI.PromptsFile; path != "" {
		prompts, err := ai.LoadPrompts(path)
		if err != nil {
			return nil, err
		}
		a.logger.Debug("Using prompts from %s", path)
		m.WithPrompts(prompts)
	}
	return m, nil
}

func (a *app) pipeline(gh *github.Client) (*pipeline.Pipeline, error) {
	m, err := a.modifier()
	if err != nil {
		return nil, err
	}
	p, err := pipeline.New(a.logger, gh, m)
	if err != nil {
		return nil, err
	}
	if a.cfg.Debug {
		p.OnStage(func(s pipeline.Stage) {
			a.logger.Debug("Pipeline stage: %s", s)
		})
	}
	return p, nil
}
