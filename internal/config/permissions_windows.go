// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

//go:build windows

package config

import "io/fs"

// ExposedMode always reports false: Windows protects files with ACLs, not
// mode bits.
func ExposedMode(string) (fs.FileMode, bool) { return 0, false }

// WarnInsecurePermissions is a no-op on Windows.
func WarnInsecurePermissions(string) {}
