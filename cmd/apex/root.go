package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"apex-portrait/internal/config"
	"apex-portrait/internal/portrait"
	"apex-portrait/internal/profilestore"
)

// app holds what every subcommand needs once the root pre-run has loaded it.
type app struct {
	cfg        config.Config
	logger     *slog.Logger
	store      *profilestore.Store
	closeStore func() error
	presets    *portrait.PresetBook
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = config.NewLogger(cfg, cmd.ErrOrStderr())

	a.presets, err = portrait.LoadPresetBook(cfg.PresetsFile)
	if err != nil {
		return err
	}

	a.store, a.closeStore, err = cfg.OpenStore(cmd.Context(), a.logger)
	return err
}

func (a *app) close() {
	if a.closeStore != nil {
		_ = a.closeStore()
		a.closeStore = nil
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "apex",
		Short: "Build portrait profiles and prompts from the command line",
		Long: `apex validates portrait choices, builds the profile and advanced prompt,
and manages saved profiles in the configured store (STORE_BACKEND).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	root.AddCommand(
		newPresetsCmd(a),
		newCatalogCmd(),
		newGenerateCmd(a),
		newProfilesCmd(a),
	)
	return root
}

func newPresetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printJSON(cmd.OutOrStdout(), map[string]any{"presets": a.presets.List()})
		},
	}
}

type catalogField struct {
	Field   portrait.Field    `json:"field"`
	Title   string            `json:"title"`
	Basic   bool              `json:"basic"`
	Options []portrait.Option `json:"options"`
}

func newCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Print every field with its options and the form defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fields := make([]catalogField, 0, len(portrait.Fields()))
			for _, f := range portrait.Fields() {
				fields = append(fields, catalogField{
					Field:   f,
					Title:   f.Title(),
					Basic:   f.IsBasic(),
					Options: portrait.OptionsFor(f),
				})
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"fields":   fields,
				"defaults": portrait.DefaultForm(),
			})
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
