// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package store

// Config selects and configures a state backend.
type Config struct {
	Backend string // "memory" (default) or "redis"
	Redis   RedisConfig
}

// RedisConfig holds connection settings for the redis backend.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}
