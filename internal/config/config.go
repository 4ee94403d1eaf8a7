// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package config

import (
	"errors"
	"log/slog"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/darcy-ai/darcy/internal/provider"
	"github.com/darcy-ai/darcy/internal/routing"
	"github.com/darcy-ai/darcy/internal/secrets"
	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the top-level Darcy configuration.
type Config struct {
	Server    ServerConfig              `mapstructure:"server"`
	Health    HealthConfig              `mapstructure:"health"`
	Routing   RoutingConfig             `mapstructure:"routing"`
	Providers map[string]ProviderConfig `mapstructure:"providers"`
	State     StateConfig               `mapstructure:"state"`
	Log       LogConfig                 `mapstructure:"log"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Listen       string          `mapstructure:"listen"`
	CORSOrigins  []string        `mapstructure:"cors_origins"`
	ReadTimeout  time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout time.Duration   `mapstructure:"write_timeout"`
	RateLimit    RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig limits chat requests per client IP. Zero disables it.
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

// HealthConfig controls provider probing.
type HealthConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

// RoutingConfig overrides scoring weights.
type RoutingConfig struct {
	Weights routing.Weights `mapstructure:"weights"`
}

// ProviderConfig overrides a built-in provider descriptor. A hosted
// provider without an API key is not registered.
type ProviderConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	APIKey   string        `mapstructure:"api_key"`
	Endpoint string        `mapstructure:"endpoint"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Priority int           `mapstructure:"priority"`
}

// StateConfig selects where runtime counters are mirrored.
type StateConfig struct {
	Backend string      `mapstructure:"backend"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig addresses the Redis state backend.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Format string `mapstructure:"format"`
}

// vendorEnv lists the conventional environment variables honoured for each
// provider's API key, after DARCY_PROVIDERS_<ID>_API_KEY.
var vendorEnv = map[string][]string{
	provider.IDGroq:        {"GROQ_API_KEY"},
	provider.IDTogether:    {"TOGETHER_API_KEY"},
	provider.IDHuggingFace: {"HUGGINGFACE_API_KEY", "HF_TOKEN"},
	provider.IDDeepSeek:    {"DEEPSEEK_API_KEY"},
	provider.IDOpenRouter:  {"OPENROUTER_API_KEY"},
	provider.IDPerplexity:  {"PERPLEXITY_API_KEY"},
	provider.IDOpenAI:      {"OPENAI_API_KEY"},
	provider.IDAnthropic:   {"ANTHROPIC_API_KEY"},
	provider.IDGoogle:      {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	secrets secrets.Store
}

// WithSecretStore resolves keyring:// values through store. Unresolvable
// references are logged and left in place.
func WithSecretStore(store secrets.Store) LoadOption {
	return func(o *loadOptions) { o.secrets = store }
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix DARCY_).
func Load(path string, opts ...LoadOption) (*Config, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DARCY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindProviderEnv(v); err != nil {
		return nil, darcyerr.Errorf(darcyerr.CodeConfigLoadReadFailure, "binding environment: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, darcyerr.Errorf(darcyerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	if o.secrets != nil {
		if err := secrets.ResolveViperSecrets(v, o.secrets); err != nil {
			slog.Warn("unresolved keyring references; affected providers stay disabled", "error", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, darcyerr.Errorf(darcyerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, darcyerr.Errorf(darcyerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen", "127.0.0.1:3000")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 90*time.Second)
	v.SetDefault("server.rate_limit.requests_per_minute", 10)
	v.SetDefault("server.rate_limit.burst", 10)

	v.SetDefault("health.interval", provider.DefaultProbeInterval)
	v.SetDefault("health.probe_timeout", provider.DefaultProbeTimeout)

	w := routing.DefaultWeights()
	v.SetDefault("routing.weights.relevance", w.Relevance)
	v.SetDefault("routing.weights.performance", w.Performance)
	v.SetDefault("routing.weights.availability", w.Availability)
	v.SetDefault("routing.weights.specialization", w.Specialization)
	v.SetDefault("routing.weights.triggers", w.Triggers)
	v.SetDefault("routing.weights.strengths", w.Strengths)
	v.SetDefault("routing.weights.success_rate", w.SuccessRate)
	v.SetDefault("routing.weights.speed", w.Speed)
	v.SetDefault("routing.weights.reliability", w.Reliability)
	v.SetDefault("routing.weights.technical_boost", w.TechnicalBoost)
	v.SetDefault("routing.weights.privacy_boost", w.PrivacyBoost)
	v.SetDefault("routing.weights.speed_boost", w.SpeedBoost)

	for _, d := range provider.Builtins() {
		v.SetDefault("providers."+d.ID+".enabled", true)
	}

	v.SetDefault("state.backend", "memory")
	// Keys without a default are invisible to AutomaticEnv during Unmarshal.
	v.SetDefault("state.redis.addr", "")
	v.SetDefault("state.redis.password", "")
	v.SetDefault("state.redis.db", 0)
	v.SetDefault("state.redis.key_prefix", "")
	v.SetDefault("log.format", "text")
}

// bindProviderEnv makes per-provider keys visible to Unmarshal. AutomaticEnv
// alone cannot discover keys nested under a map.
func bindProviderEnv(v *viper.Viper) error {
	for _, d := range provider.Builtins() {
		prefix := "DARCY_PROVIDERS_" + strings.ToUpper(d.ID) + "_"
		names := append([]string{"providers." + d.ID + ".api_key", prefix + "API_KEY"}, vendorEnv[d.ID]...)
		if err := v.BindEnv(names...); err != nil {
			return err
		}
		for _, field := range []string{"enabled", "endpoint", "model", "timeout", "priority"} {
			if err := v.BindEnv("providers."+d.ID+"."+field, prefix+strings.ToUpper(field)); err != nil {
				return err
			}
		}
	}
	if err := v.BindEnv("providers."+provider.IDOllama+".endpoint", "DARCY_PROVIDERS_OLLAMA_ENDPOINT", "OLLAMA_URL"); err != nil {
		return err
	}
	return v.BindEnv("server.cors_origins", "DARCY_SERVER_CORS_ORIGINS", "FRONTEND_URL")
}

// Provider returns the configuration for id, or the zero value.
func (c *Config) Provider(id string) ProviderConfig {
	return c.Providers[id]
}

// Validate checks the configuration for logical errors.
// It returns a slice of all validation errors found, collecting all issues
// rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateHealth()...)
	errs = append(errs, c.validateRouting()...)
	errs = append(errs, c.validateProviders()...)
	errs = append(errs, c.validateState()...)
	errs = append(errs, c.validateLog()...)

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, darcyerr.Errorf(darcyerr.CodeConfigValidateInvalidValue, "config: server.listen must not be empty"))
	} else {
		_, portStr, err := net.SplitHostPort(c.Server.Listen)
		if err != nil {
			errs = append(errs, darcyerr.Errorf(darcyerr.CodeConfigValidateInvalidValue,
				"config: server.listen must be a valid host:port address, got %q: %w",
				c.Server.Listen, err,
			))
		} else if port, err := strconv.Atoi(portStr); err != nil {
			errs = append(errs, darcyerr.Errorf(darcyerr.CodeConfigValidateInvalidValue,
				"config: server.listen port must be a number, got %q",
				portStr,
			))
		} else if port < 1 || port > 65535 {
			errs = append(errs, darcyerr.Errorf(darcyerr.CodeConfigValidateInvalidValue,
				"config: server.listen port must be between 1 and 65535, got %d",
				port,
			))
		}
	}

	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		errs = append(errs, darcyerr.Errorf(darcyerr.CodeConfigValidateInvalidValue,
			"config: server timeouts must not be negative"))
	}

	rl := c.Server.RateLimit
	if rl.RequestsPerMinute < 0 {
		errs = append(errs, darcyerr.Errorf(darcyerr.CodeConfigValidateInvalidValue,
			"config: server.rate_limit.requests_per_minute must not be negative, got %d", rl.RequestsPerMinute))
	}
	if rl.RequestsPerMinute > 0 && rl.Burst <= 0 {
		errs = append(errs, darcyerr.Errorf(darcyerr.CodeConfigValidateInvalidValue,
			"config: server.rate_limit.burst must be positive when requests_per_minute is set, got %d", rl.Burst))
	}

	return errs
}

func (c *Config) validateHealth() []error {
	var errs []error

	if c.Health.Interval < time.Second {
		errs = append(errs, darcyerr.Errorf(darcyerr.CodeConfigValidateInvalidValue,
			"config: health.interval must be at least 1s, got %s", c.Health.Interval))
	}
	if c.Health.ProbeTimeout <= 0 {
		errs = append(errs, darcyerr.Errorf(darcyerr.CodeConfigValidateInvalidValue,
			"config: health.probe_timeout must be greater than 0, got %s", c.Health.ProbeTimeout))
	}

	return errs
}

func (c *Config) validateRouting() []error {
	var errs []error

	w := c.Routing.Weights
	weights := map[string]float64{
		"relevance": w.Relevance, "performance": w.Performance, "availability": w.Availability,
		"specialization": w.Specialization, "triggers": w.Triggers, "strengths": w.Strengths,
		"success_rate": w.SuccessRate, "speed": w.Speed, "reliability": w.Reliability,
	}
	for _, name := range sortedKeys(weights) {
		if weights[name] < 0 {
			errs = append(errs, darcyerr.Errorf(darcyerr.CodeConfigValidateInvalidValue,
				"config: routing.weights.%s must not be negative, got %g", name, weights[name]))
		}
	}

	boosts := map[string]float64{
		"technical_boost": w.TechnicalBoost, "privacy_boost": w.PrivacyBoost, "speed_boost": w.SpeedBoost,
	}
	for _, name := range sortedKeys(boosts) {
		if boosts[name] < 1 {
			errs = append(errs, darcyerr.Errorf(darcyerr.CodeConfigValidateInvalidValue,
				"config: routing.weights.%s must be at least 1, got %g", name, boosts[name]))
		}
	}

	return errs
}

func (c *Config) validateProviders() []error {
	var errs []error

	for _, id := range sortedKeys(c.Providers) {
		if _, ok := provider.Builtin(id); !ok {
			errs = append(errs, darcyerr.Errorf(darcyerr.CodeConfigValidateInvalidValue,
				"config: providers.%s is not a known provider", id))
			continue
		}
		p := c.Providers[id]
		if p.Timeout < 0 {
			errs = append(errs, darcyerr.Errorf(darcyerr.CodeConfigValidateInvalidValue,
				"config: providers.%s.timeout must not be negative, got %s", id, p.Timeout))
		}
		if p.Priority < 0 {
			errs = append(errs, darcyerr.Errorf(darcyerr.CodeConfigValidateInvalidValue,
				"config: providers.%s.priority must not be negative, got %d", id, p.Priority))
		}
	}

	return errs
}

func (c *Config) validateState() []error {
	var errs []error

	validBackends := []string{"memory", "redis"}
	if !slices.Contains(validBackends, c.State.Backend) {
		errs = append(errs, darcyerr.Errorf(darcyerr.CodeConfigValidateInvalidValue,
			"config: state.backend must be one of [memory, redis], got %q",
			c.State.Backend,
		))
	}
	if c.State.Backend == "redis" && c.State.Redis.Addr == "" {
		errs = append(errs, darcyerr.Errorf(darcyerr.CodeConfigValidateInvalidValue,
			"config: state.redis.addr must not be empty when state.backend is redis"))
	}

	return errs
}

func (c *Config) validateLog() []error {
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return []error{darcyerr.Errorf(darcyerr.CodeConfigValidateInvalidValue,
			"config: log.format must be one of [text, json], got %q", c.Log.Format)}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
