package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"apex-portrait/internal/portrait"
	"apex-portrait/internal/profilestore"
)

func newProfilesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Manage saved profiles",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List saved profile names",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				for _, name := range a.store.Names(cmd.Context()) {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "show NAME",
			Short: "Print a saved profile as JSON",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := a.load(cmd, args[0])
				if err != nil {
					return err
				}
				if err := profilestore.Export(cmd.OutOrStdout(), p); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete NAME",
			Short: "Delete a saved profile",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if !a.store.Delete(cmd.Context(), args[0]) {
					return fmt.Errorf("could not delete profile %q", args[0])
				}
				fmt.Fprintln(cmd.OutOrStdout(), "🗑️ Deleted profile: "+args[0])
				return nil
			},
		},
		newExportCmd(a),
		newImportCmd(a),
	)
	return cmd
}

func (a *app) load(cmd *cobra.Command, name string) (portrait.Profile, error) {
	p, ok := a.store.Load(cmd.Context(), name)
	if !ok {
		return portrait.Profile{}, fmt.Errorf("profile %q not found", name)
	}
	return p, nil
}

func newExportCmd(a *app) *cobra.Command {
	var dir, filename string

	cmd := &cobra.Command{
		Use:   "export NAME",
		Short: "Write a saved profile to <dir>/<filename>.json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.load(cmd, args[0])
			if err != nil {
				return err
			}
			if filename == "" {
				filename = args[0]
			}
			path, err := profilestore.ExportToDir(dir, p, filename)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "📤 Exported to: "+path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "output directory")
	cmd.Flags().StringVar(&filename, "filename", "", "file name without extension (default: profile name)")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var name string
	var noSave bool

	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Import exported profile files into the store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name != "" && len(args) > 1 {
				return errors.New("--name needs exactly one file")
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				p, err := profilestore.ImportFile(path)
				if err != nil {
					failed++
					a.logger.Warn("profile import failed", "file", path, "err", err)
					fmt.Fprintf(out, "❌ %s: %s\n", path, importErrorText(err))
					continue
				}

				status := "✅ Profile imported"
				if !noSave {
					key := name
					if key == "" {
						key = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
					}
					saved, err := a.store.Save(cmd.Context(), p, key)
					if err != nil {
						return fmt.Errorf("save %s: %w", path, err)
					}
					status += " | 💾 Saved to: " + saved
				}
				fmt.Fprintf(out, "%s: %s\n", path, status)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d imports failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "store under this name (single file only)")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "only validate the files")
	return cmd
}

func importErrorText(err error) string {
	switch {
	case errors.Is(err, profilestore.ErrParse):
		return profilestore.ErrParse.Error()
	case errors.Is(err, profilestore.ErrRead):
		return profilestore.ErrRead.Error()
	}
	return err.Error()
}
