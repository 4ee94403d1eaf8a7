// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package main

import (
	"os"
	"path/filepath"

	"github.com/darcy-ai/darcy/internal/config"
	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCmd creates the root darcy command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "darcy",
		Short:         "Darcy AI educational chat gateway",
		Long:          "Darcy routes educational questions to the best available LLM provider and answers in a basic mode when none is reachable.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initViper(cmd)
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newStartCmd(),
		newStatusCmd(),
		newProvidersCmd(),
		newChatCmd(),
		newCrewsCmd(),
		newSecretCmd(),
		newDoctorCmd(),
		newVersionCmd(),
	)

	return root
}

// initViper binds the global flags and installs a text logger until a
// command loads the config and knows the wanted format.
func initViper(cmd *cobra.Command) error {
	v := viper.GetViper()
	if err := v.BindPFlag("verbose", cmd.Root().PersistentFlags().Lookup("verbose")); err != nil {
		return darcyerr.Errorf(darcyerr.CodeCLISetupFailure, "binding verbose flag: %w", err)
	}
	setupLogging(cmd.ErrOrStderr(), "text", v.GetBool("verbose"))
	return nil
}

// loadConfig resolves the config file (flag, then standard locations, then
// a bootstrapped default), loads it with keyring resolution and switches
// the logger to the configured format.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = discoverConfig()
	}
	if path != "" {
		config.WarnInsecurePermissions(path)
	}

	cfg, err := config.Load(path, config.WithSecretStore(secretStoreFactory()))
	if err != nil {
		return nil, "", err
	}
	setupLogging(cmd.ErrOrStderr(), cfg.Log.Format, viper.GetBool("verbose"))
	return cfg, path, nil
}

// configSearchPaths lists where darcy.yaml is looked up, in order.
func configSearchPaths() []string {
	paths := []string{"darcy.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "darcy", "darcy.yaml"))
	}
	return append(paths, "/etc/darcy/darcy.yaml")
}

func discoverConfig() string {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return config.BootstrapConfig()
}
