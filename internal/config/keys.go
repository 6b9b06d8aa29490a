package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "PHONEADVISOR_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.mcp_enabled", typ: kBool, env: "PHONEADVISOR_SERVER_MCP_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.Server.MCPEnabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.Server.MCPEnabled },
	},
	{
		key: "catalog.path", typ: kString, env: "PHONEADVISOR_CATALOG_PATH",
		apply:   func(cfg *Config, v any) { cfg.Catalog.Path = v.(string) },
		extract: func(cfg Config) any { return cfg.Catalog.Path },
	},
	{
		key: "storage.data_dir", typ: kString, env: "PHONEADVISOR_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.retention", typ: kDuration, env: "PHONEADVISOR_STORAGE_RETENTION",
		apply:   func(cfg *Config, v any) { cfg.Storage.Retention = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Storage.Retention },
	},
	{
		key: "log.level", typ: kString, env: "PHONEADVISOR_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "session.ttl", typ: kDuration, env: "PHONEADVISOR_SESSION_TTL",
		apply:   func(cfg *Config, v any) { cfg.Session.TTL = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Session.TTL },
	},
	{
		key: "images.enabled", typ: kBool, env: "PHONEADVISOR_IMAGES_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.Images.Enabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.Images.Enabled },
	},
	{
		key: "images.endpoint", typ: kString, env: "PHONEADVISOR_IMAGES_ENDPOINT",
		apply:   func(cfg *Config, v any) { cfg.Images.Endpoint = v.(string) },
		extract: func(cfg Config) any { return cfg.Images.Endpoint },
	},
	{
		key: "images.timeout", typ: kDuration, env: "PHONEADVISOR_IMAGES_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Images.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Images.Timeout },
	},
	{
		key: "images.ttl", typ: kDuration, env: "PHONEADVISOR_IMAGES_TTL",
		apply:   func(cfg *Config, v any) { cfg.Images.TTL = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Images.TTL },
	},
	{
		key: "api.token", typ: kString, env: "PHONEADVISOR_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.API.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.API.Token },
	},
}

// parseRaw converts a textual value to the Go type the key expects.
func parseRaw(t keyType, raw string) (any, error) {
	switch t {
	case kInt:
		i, err := strconv.Atoi(raw)
		if err != nil {
			return nil, err
		}
		return i, nil
	case kBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, err
		}
		return b, nil
	case kDuration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return raw, nil
	}
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		if s.typ == kInt {
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
			continue
		}

		raw, ok, err := b.GetString(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || (raw == "" && s.typ != kString) {
			continue
		}
		v, err := parseRaw(s.typ, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse config key %s=%q: %v. Using default value.\n", s.key, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
	return nil
}

// applyEnvOverrides applies every PHONEADVISOR_* variable that is set.
// Secrets are only ever read here.
func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if s.env == "" || raw == "" {
			continue
		}
		v, err := parseRaw(s.typ, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}
