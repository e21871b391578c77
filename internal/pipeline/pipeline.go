// Package pipeline runs one generation: validate, build the profile, synthesize
// the prompt, then optionally save and submit. Local and remote results are
// reported independently.
package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"apex-portrait/internal/jobs"
	"apex-portrait/internal/portrait"
)

type ProfileSaver interface {
	Save(ctx context.Context, p portrait.Profile, name string) (string, error)
}

type JobSubmitter interface {
	Submit(ctx context.Context, req jobs.Request) (jobs.Job, error)
}

type Options struct {
	Saver     ProfileSaver
	Submitter JobSubmitter
	Logger    *slog.Logger
	Now       func() time.Time
}

type Generator struct {
	saver     ProfileSaver
	submitter JobSubmitter
	logger    *slog.Logger
	now       func() time.Time
}

func New(opts Options) *Generator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Generator{
		saver:     opts.Saver,
		submitter: opts.Submitter,
		logger:    logger,
		now:       now,
	}
}

// WithSaver returns a copy of g that saves through saver.
func (g *Generator) WithSaver(saver ProfileSaver) *Generator {
	c := *g
	c.saver = saver
	return &c
}

type SaveResult struct {
	Requested bool
	Key       string
	Err       error
}

type SubmitResult struct {
	Attempted bool
	JobID     string
	Err       error
}

type Outcome struct {
	Validation portrait.ValidationResult
	Profile    *portrait.Profile
	Prompt     string
	Save       SaveResult
	Submit     SubmitResult
}

// Generated reports whether the local part succeeded, regardless of save or
// submission failures.
func (o Outcome) Generated() bool {
	return o.Profile != nil
}

// Generate never fails as a whole: validation, save and submission problems are
// carried in the Outcome.
func (g *Generator) Generate(ctx context.Context, form portrait.FormData) Outcome {
	var out Outcome

	out.Validation = form.Validate()
	if !out.Validation.IsValid {
		g.logger.Debug("validation failed", "message", out.Validation.Message)
		return out
	}

	prompt := portrait.GenerateAdvancedPrompt(form)
	profile := portrait.BuildProfile(form, g.now()).WithPrompt(prompt)
	out.Profile = &profile
	out.Prompt = prompt

	if form.SaveProfile && g.saver != nil {
		out.Save.Requested = true
		key, err := g.saver.Save(ctx, profile, "")
		if err != nil {
			g.logger.Warn("profile save failed", "err", err)
			out.Save.Err = err
		} else {
			out.Save.Key = key
		}
	}

	if g.submitter != nil {
		out.Submit = g.submit(ctx, prompt, form)
	}

	return out
}

func (g *Generator) submit(ctx context.Context, prompt string, form portrait.FormData) SubmitResult {
	res := SubmitResult{Attempted: true}

	job, err := g.submitter.Submit(ctx, jobs.NewRequest(prompt, form.Resolution, form.Seed))
	switch {
	case errors.Is(err, jobs.ErrNoJobID):
		g.logger.Warn("job manager returned no job id")
		res.Err = err
	case err != nil:
		g.logger.Error("job submission failed", "err", err)
		res.Err = err
	default:
		res.JobID = job.JobID
	}
	return res
}
