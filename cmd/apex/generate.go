package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"apex-portrait/internal/httpclient"
	"apex-portrait/internal/jobs"
	"apex-portrait/internal/pipeline"
	"apex-portrait/internal/portrait"
)

type generateFlags struct {
	preset string
	fields map[portrait.Field]*string
	notes  string
	seed   string
	photo  string
	save   bool
	name   string
	submit bool
}

func flagName(f portrait.Field) string {
	return strings.ReplaceAll(string(f), "_", "-")
}

func newGenerateCmd(a *app) *cobra.Command {
	fl := generateFlags{fields: map[portrait.Field]*string{}}

	cmd := &cobra.Command{
		Use:   "generate [values...]",
		Short: "Validate the choices and print the profile and advanced prompt",
		Long: `generate starts from the default form, applies --preset, then any free text
arguments (preset names or catalog values, comma separated), then the field flags.`,
		Example: `  apex generate --preset "LinkedIn Professional" --save
  apex generate "Resume, Academic, Library/Academic, Calm" --notes "tweed jacket"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := fl.form(cmd, a.presets, strings.Join(args, " "))
			if err != nil {
				return err
			}

			gen, err := a.generator(fl)
			if err != nil {
				return err
			}

			out := gen.Generate(cmd.Context(), form)
			if err := printJSON(cmd.OutOrStdout(), out.Report()); err != nil {
				return err
			}
			if !out.Generated() {
				return errors.New(out.Validation.Message)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&fl.preset, "preset", "", "preset to start from")
	for _, field := range portrait.Fields() {
		fl.fields[field] = f.String(flagName(field), "", field.Title())
	}
	f.StringVar(&fl.notes, "notes", "", "custom notes")
	f.StringVar(&fl.seed, "seed", "", "seed, a number or text")
	f.StringVar(&fl.photo, "photo", "", "reference photo path; only the file name is kept")
	f.BoolVar(&fl.save, "save", false, "save the profile to the store")
	f.StringVar(&fl.name, "name", "", "profile name when saving (default: timestamped key)")
	f.BoolVar(&fl.submit, "submit", false, "submit the prompt to the job manager")
	return cmd
}

func (fl generateFlags) form(cmd *cobra.Command, book *portrait.PresetBook, free string) (portrait.FormData, error) {
	form := portrait.DefaultForm()

	if fl.preset != "" {
		applied, ok := book.Apply(form, fl.preset)
		if !ok {
			return form, fmt.Errorf("unknown preset %q", fl.preset)
		}
		form = applied
	}

	form = portrait.ParseArgs(free, form, book)

	for field, v := range fl.fields {
		if cmd.Flags().Changed(flagName(field)) {
			form = form.Set(field, strings.TrimSpace(*v))
		}
	}
	if cmd.Flags().Changed("notes") {
		form.CustomNotes = fl.notes
	}
	form.Seed = strings.TrimSpace(fl.seed)
	form.ReferencePhoto = strings.TrimSpace(fl.photo)
	form.SaveProfile = fl.save
	return form, nil
}

func (a *app) generator(fl generateFlags) (*pipeline.Generator, error) {
	opts := pipeline.Options{Logger: a.logger}
	if fl.save {
		opts.Saver = namedSaver{store: a.store, name: strings.TrimSpace(fl.name)}
	}
	if fl.submit {
		if !a.cfg.JobsEnabled {
			return nil, errors.New("job submission is disabled (JOBS_ENABLED=false)")
		}
		opts.Submitter = jobs.New(jobs.Options{
			BaseURL: a.cfg.JobsBaseURL,
			HTTPClient: httpclient.New(httpclient.Options{
				PreferIPv4: a.cfg.PreferIPv4,
				Timeout:    a.cfg.HTTPTimeout,
			}),
			Logger: a.logger,
		})
	}
	return pipeline.New(opts), nil
}

// namedSaver stores under a fixed name instead of the timestamped default.
type namedSaver struct {
	store pipeline.ProfileSaver
	name  string
}

func (s namedSaver) Save(ctx context.Context, p portrait.Profile, name string) (string, error) {
	if s.name != "" {
		name = s.name
	}
	return s.store.Save(ctx, p, name)
}
