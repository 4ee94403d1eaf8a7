// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package redis

// EncodeDelta and Decode expose the hash codec for white-box testing.
var (
	EncodeDelta = encodeDelta
	Decode      = decode
)

// Prefix reports the key prefix so tests can open a second store on the
// same namespace.
func (s *Store) Prefix() string { return s.prefix }
