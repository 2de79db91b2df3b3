// Package pipeline turns a topic into a published article by running it
// through a chain of named stages.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/IshaanNene/radarbr/internal/types"
)

// Stage processes a job in place. A returned error skips the topic.
type Stage interface {
	// Name returns the stage identifier used in logs and summaries.
	Name() string

	// Process advances the job.
	Process(ctx context.Context, job *Job) error
}

// StageFunc adapts a function to a named Stage.
type StageFunc struct {
	name string
	fn   func(ctx context.Context, job *Job) error
}

// NewStage creates a named Stage from fn.
func NewStage(name string, fn func(ctx context.Context, job *Job) error) StageFunc {
	return StageFunc{name: name, fn: fn}
}

func (s StageFunc) Name() string { return s.name }

func (s StageFunc) Process(ctx context.Context, job *Job) error { return s.fn(ctx, job) }

// Chain runs stages in order.
type Chain struct {
	stages []Stage
	logger *slog.Logger
}

// NewChain creates an empty Chain.
func NewChain(logger *slog.Logger) *Chain {
	return &Chain{
		logger: logger.With("component", "pipeline"),
	}
}

// Use appends a stage to the chain.
func (c *Chain) Use(s Stage) *Chain {
	c.stages = append(c.stages, s)
	c.logger.Debug("stage added", "name", s.Name(), "position", len(c.stages))
	return c
}

// Run passes job through every stage. The first failure stops the chain and
// is returned as a PipelineError naming the stage.
func (c *Chain) Run(ctx context.Context, job *Job) error {
	for _, s := range c.stages {
		if err := ctx.Err(); err != nil {
			return &types.PipelineError{Stage: s.Name(), Topic: job.Topic, Err: err}
		}
		job.Stage = s.Name()
		if err := s.Process(ctx, job); err != nil {
			return &types.PipelineError{Stage: s.Name(), Topic: job.Topic, Err: err}
		}
	}
	return nil
}

// Names returns the stage names in order.
func (c *Chain) Names() []string {
	out := make([]string, len(c.stages))
	for i, s := range c.stages {
		out[i] = s.Name()
	}
	return out
}

// Len returns the number of stages in the chain.
func (c *Chain) Len() int {
	return len(c.stages)
}
