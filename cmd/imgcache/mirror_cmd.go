package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMirrorCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Inspect and manage the on-disk mirror",
	}
	cmd.AddCommand(newMirrorPathCmd(a))
	cmd.AddCommand(newMirrorStatCmd(a))
	cmd.AddCommand(newMirrorClearCmd(a))
	return cmd
}

func newMirrorPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path URL",
		Short: "Print the mirror file path for a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			m, err := a.openMirror()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.stdout, m.Path(args[0]))
			return err
		},
	}
}

func newMirrorStatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stat",
		Short: "Print the mirror directory and size",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			m, err := a.openMirror()
			if err != nil {
				return err
			}
			limit := "unlimited"
			if m.MaxBytes() > 0 {
				limit = fmt.Sprintf("%d bytes", m.MaxBytes())
			}
			_, err = fmt.Fprintf(a.stdout, "dir:   %s\nsize:  %d bytes\nlimit: %s\n", m.Dir(), m.SizeBytes(), limit)
			return err
		},
	}
}

func newMirrorClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every mirror file",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			m, err := a.openMirror()
			if err != nil {
				return err
			}
			freed, err := m.Clear()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.stdout, "freed %d bytes\n", freed)
			return err
		},
	}
}
