// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/darcy-ai/darcy/internal/server"
	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Ask the gateway a question",
		Long:  "Send one message to the running gateway and print the answer with the provider that produced it.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runChat,
	}

	cmd.Flags().String("address", defaultGatewayAddr, "gateway address")
	cmd.Flags().String("crew", "", "crew to answer as (teaching, research, creative, assessment)")
	cmd.Flags().String("provider", "", "provider to try first")
	cmd.Flags().Bool("offline", false, "prefer providers that keep data local")
	cmd.Flags().Bool("fast", false, "prefer the fastest provider")

	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	message := strings.TrimSpace(strings.Join(args, " "))
	if message == "" {
		return darcyerr.New(darcyerr.CodeCLIInputInvalid, "message must not be empty")
	}

	addr, _ := cmd.Flags().GetString("address")
	crewID, _ := cmd.Flags().GetString("crew")
	providerID, _ := cmd.Flags().GetString("provider")
	offline, _ := cmd.Flags().GetBool("offline")
	fast, _ := cmd.Flags().GetBool("fast")

	req := server.ChatBody{Message: message, Crew: crewID, Provider: providerID}
	if offline || fast {
		req.Hints = &server.Hints{PreferOffline: offline, RealTime: fast}
	}

	var resp server.ChatResponse
	if err := newGatewayClient(addr).postJSON(cmd.Context(), "/api/chat", req, &resp); err != nil {
		return err
	}

	meta := resp.Metadata
	via := meta.Provider
	if meta.Model != "" && meta.Model != meta.Provider {
		via += "/" + meta.Model
	}
	if meta.Degraded {
		via = warnStyle.Render(via + " (basic mode)")
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n%s\n", resp.Response,
		dimStyle.Render(fmt.Sprintf("crew: %s, via: ", meta.Crew))+via)
	return err
}
