// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

//go:build !windows

package config

import (
	"io/fs"
	"log/slog"
	"os"
)

// readableByOthers covers the group and other read bits.
const readableByOthers fs.FileMode = 0o044

// ExposedMode returns the file mode of path and whether users other than
// the owner can read it. A missing path reports false.
func ExposedMode(path string) (fs.FileMode, bool) {
	if path == "" {
		return 0, false
	}
	info, err := os.Stat(path)
	if err != nil {
		slog.Debug("skipping config permission check", "path", path, "error", err)
		return 0, false
	}
	return info.Mode(), info.Mode().Perm()&readableByOthers != 0
}

// WarnInsecurePermissions logs a warning when the config file is group- or
// world-readable, since it may hold provider API keys. It never fails startup.
func WarnInsecurePermissions(path string) {
	if mode, exposed := ExposedMode(path); exposed {
		slog.Warn("config file has insecure permissions; api keys may be exposed to other users",
			"path", path,
			"mode", mode,
			"recommended", "0600")
	}
}
