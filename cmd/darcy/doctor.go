// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package main

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/darcy-ai/darcy/internal/config"
	"github.com/darcy-ai/darcy/internal/provider"
	"github.com/darcy-ai/darcy/internal/secrets"
	"github.com/darcy-ai/darcy/internal/server"
	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics",
		Long:  "Check the binary, the config file, which providers have credentials and whether the gateway answers.",
		RunE:  runDoctor,
	}

	cmd.Flags().String("address", defaultGatewayAddr, "gateway address to check")

	return cmd
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	addr, _ := cmd.Flags().GetString("address")

	cfg, cfgPath, cfgErr := loadConfig(cmd)

	checks := []struct {
		name string
		fn   func() string
	}{
		{"Binary", checkBinary},
		{"Platform", checkPlatform},
		{"Config", func() string { return checkConfig(cfgPath, cfgErr) }},
		{"Providers", func() string { return checkProviders(cfg) }},
		{"Gateway", func() string { return checkGateway(cmd, addr) }},
	}

	for _, c := range checks {
		if _, err := fmt.Fprintf(w, "%-12s %s\n", c.name+":", c.fn()); err != nil {
			return err
		}
	}

	return nil
}

func checkBinary() string {
	return fmt.Sprintf("darcy %s (commit: %s)", version, commit)
}

func checkPlatform() string {
	return fmt.Sprintf("%s/%s, Go %s", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func checkConfig(path string, err error) string {
	switch {
	case err != nil:
		return errorStyle.Render("invalid: " + err.Error())
	case path == "":
		return "using defaults (no config file found)"
	default:
		msg := "loaded from " + path
		if mode, exposed := config.ExposedMode(path); exposed {
			msg += warnStyle.Render(fmt.Sprintf(" (mode %s is readable by other users; use 0600)", mode.Perm()))
		}
		return msg
	}
}

// checkProviders reports which built-in providers would be registered.
func checkProviders(cfg *config.Config) string {
	if cfg == nil {
		return dimStyle.Render("skipped (config not loaded)")
	}

	var ready, missing []string
	for _, d := range provider.Builtins() {
		pc := cfg.Provider(d.ID)
		switch {
		case !pc.Enabled:
		case d.Kind == provider.KindLocal:
			ready = append(ready, d.ID)
		case pc.APIKey == "" || secrets.IsKeyringURI(pc.APIKey):
			missing = append(missing, d.ID)
		default:
			ready = append(ready, d.ID)
		}
	}

	msg := fmt.Sprintf("%d ready (%s)", len(ready), strings.Join(ready, ", "))
	if len(missing) > 0 {
		msg += warnStyle.Render(fmt.Sprintf(", %d without api key (%s)", len(missing), strings.Join(missing, ", ")))
	}
	return msg
}

func checkGateway(cmd *cobra.Command, addr string) string {
	var body server.HealthBody
	if err := newGatewayClient(addr).getJSON(cmd.Context(), "/api/health", &body); err != nil {
		if darcyerr.HasCode(err, darcyerr.CodeCLIGatewayNotRunning) {
			return fmt.Sprintf("not running at %s (run 'darcy start')", addr)
		}
		return errorStyle.Render("error: " + err.Error())
	}
	return fmt.Sprintf("%s at %s, %d/%d providers healthy", body.Status, addr, body.ProvidersHealthy, body.ProvidersTotal)
}
