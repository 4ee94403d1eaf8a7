// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package main

import (
	"fmt"

	"github.com/darcy-ai/darcy/internal/crew"
	"github.com/spf13/cobra"
)

func newCrewsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crews",
		Short: "List the available crews",
		RunE:  runCrews,
	}
}

func runCrews(cmd *cobra.Command, _ []string) error {
	catalog, err := crew.Builtin()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, c := range catalog.List() {
		name := titleStyle.Render(c.Icon + " " + c.Name)
		if c.ID == catalog.DefaultID() {
			name += dimStyle.Render(" (default)")
		}
		if _, err := fmt.Fprintf(out, "%s  %s\n  %s\n", name, dimStyle.Render(c.ID), c.Description); err != nil {
			return err
		}
		for _, ex := range c.Examples {
			if _, err := fmt.Fprintf(out, "    %s\n", dimStyle.Render("e.g. "+ex)); err != nil {
				return err
			}
		}
	}
	return nil
}
