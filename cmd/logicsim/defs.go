// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/db47h/logicsim"
	"github.com/spf13/cobra"
)

var defsCmd = &cobra.Command{
	Use:   "defs",
	Short: "Manage saved composite definitions",
}

func init() {
	defsCmd.AddCommand(defsListCmd, defsSetsCmd, defsRmCmd, defsExportCmd, defsImportCmd)
}

var defsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the definitions of the set",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := setup(ctx)
		if err != nil {
			return err
		}
		defer e.st.Close()
		defs, err := e.st.Load(ctx, e.cfg.Store.Set)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, d := range defs {
			fmt.Fprintf(out, "%s\t%d input(s)\t%d output(s)\t%d part(s)\n", d.Name, len(d.Inputs), len(d.Outputs), len(d.Parts))
		}
		return nil
	},
}

var defsSetsCmd = &cobra.Command{
	Use:   "sets",
	Short: "List definition sets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := setup(ctx)
		if err != nil {
			return err
		}
		defer e.st.Close()
		names, err := e.st.Sets(ctx)
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	},
}

var defsRmCmd = &cobra.Command{
	Use:   "rm <name>...",
	Short: "Remove definitions from the set",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := setup(ctx)
		if err != nil {
			return err
		}
		defer e.st.Close()
		s, err := e.session(ctx)
		if err != nil {
			return err
		}
		defer s.Close()
		for _, name := range args {
			if _, err = s.RemoveDefinition(ctx, name); err != nil {
				return err
			}
		}
		return nil
	},
}

var defsExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the definitions of the set as JSON (default to stdout)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := setup(ctx)
		if err != nil {
			return err
		}
		defer e.st.Close()
		defs, err := e.st.Load(ctx, e.cfg.Store.Set)
		if err != nil {
			return err
		}
		data, err := logicsim.MarshalDefinitions(defs)
		if err != nil {
			return err
		}
		if len(args) == 0 {
			_, err = cmd.OutOrStdout().Write(append(data, '\n'))
			return err
		}
		return os.WriteFile(args[0], data, 0o644)
	},
}

var defsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Add the definitions of a JSON file to the set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		defs, err := logicsim.UnmarshalDefinitions(data)
		if err != nil {
			return err
		}
		e, err := setup(ctx)
		if err != nil {
			return err
		}
		defer e.st.Close()
		s, err := e.session(ctx)
		if err != nil {
			return err
		}
		defer s.Close()
		return s.ImportDefinitions(ctx, defs...)
	},
}
