// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package store

import "errors"

// ErrNotFound indicates no state is stored for the requested provider.
var ErrNotFound = errors.New("not found")
