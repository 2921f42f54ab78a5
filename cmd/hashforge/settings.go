package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/studio1767/hashforge/internal/digest"
	"github.com/studio1767/hashforge/internal/settings"
)

func newSettingsCmd(opts *options) *cobra.Command {
	var algorithm string
	var dark bool

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the saved settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger(cmd.ErrOrStderr(), false, true)

			current, path := loadSettings(opts, logger)

			changed := false
			if cmd.Flags().Changed("algorithm") {
				alg, err := digest.Parse(algorithm)
				if err != nil {
					return err
				}
				current.DefaultAlgorithm = alg
				changed = true
			}
			if cmd.Flags().Changed("dark-theme") {
				current.DarkTheme = dark
				changed = true
			}

			if changed {
				if path == "" {
					return fmt.Errorf("no settings location; use --settings")
				}
				if err := settings.Save(path, current); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "file:              %s\n", path)
			fmt.Fprintf(out, "default_algorithm: %s\n", current.DefaultAlgorithm)
			fmt.Fprintf(out, "dark_theme:        %t\n", current.DarkTheme)
			return nil
		},
	}

	cmd.Flags().StringVarP(&algorithm, "algorithm", "a", "", "default algorithm when -a is not given")
	cmd.Flags().BoolVar(&dark, "dark-theme", true, "colour the progress bar")

	return cmd
}
