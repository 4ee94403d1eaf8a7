// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package main

import (
	"fmt"

	"github.com/darcy-ai/darcy/internal/server"
	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show gateway status",
		Long:  "Check the running gateway's health endpoint and display status information.",
		RunE:  runStatus,
	}

	cmd.Flags().String("address", defaultGatewayAddr, "gateway address to check")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")
	out := cmd.OutOrStdout()

	var body server.HealthBody
	if err := newGatewayClient(addr).getJSON(cmd.Context(), "/api/health", &body); err != nil {
		if darcyerr.HasCode(err, darcyerr.CodeCLIGatewayNotRunning) {
			_, _ = fmt.Fprintf(out, "Gateway at %s is %s (connection refused)\n", addr, errorStyle.Render("not running"))
			return nil
		}
		_, _ = fmt.Fprintf(out, "Gateway at %s: %s\n", addr, err)
		return nil
	}

	_, _ = fmt.Fprintf(out, "%s %s at %s: %s\n", titleStyle.Render(body.Service), body.Version, addr, successStyle.Render(string(body.Status)))
	_, _ = fmt.Fprintf(out, "Providers healthy: %d/%d\n", body.ProvidersHealthy, body.ProvidersTotal)
	return nil
}
