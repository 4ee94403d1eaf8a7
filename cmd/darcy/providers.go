// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/darcy-ai/darcy/internal/server"
	"github.com/spf13/cobra"
)

func newProvidersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List providers and their runtime state",
		Long:  "Show every registered provider of the running gateway with health, priority and call counters.",
		RunE:  runProviders,
	}

	cmd.Flags().String("address", defaultGatewayAddr, "gateway address")
	cmd.Flags().Bool("probe", false, "probe every provider before listing")

	return cmd
}

func runProviders(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")
	probe, _ := cmd.Flags().GetBool("probe")

	gw := newGatewayClient(addr)
	var body server.ProvidersBody
	var err error
	if probe {
		err = gw.postJSON(cmd.Context(), "/api/providers/probe", struct{}{}, &body)
	} else {
		err = gw.getJSON(cmd.Context(), "/api/providers", &body)
	}
	if err != nil {
		return err
	}

	return renderProviders(cmd.OutOrStdout(), body)
}

func renderProviders(w io.Writer, body server.ProvidersBody) error {
	if body.Total == 0 {
		_, err := fmt.Fprintln(w, "No providers registered. Set an API key or enable ollama in darcy.yaml.")
		return err
	}

	rows := make([][]string, 0, len(body.Providers))
	for _, p := range body.Providers {
		m := p.Metrics
		rows = append(rows, []string{
			p.ID,
			string(p.Kind),
			healthMark(m.Healthy),
			strconv.Itoa(m.CurrentPriority),
			p.Model,
			strconv.FormatInt(m.UsageCount, 10),
			fmt.Sprintf("%.0f%%", m.SuccessRate*100),
			strconv.FormatInt(m.LastResponseMs, 10),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("PROVIDER", "KIND", "HEALTH", "PRIORITY", "MODEL", "CALLS", "SUCCESS", "LAST MS").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	_, err := fmt.Fprintf(w, "%s\n%s\n", t.String(),
		dimStyle.Render(fmt.Sprintf("%d of %d providers healthy", body.Healthy, body.Total)))
	return err
}
