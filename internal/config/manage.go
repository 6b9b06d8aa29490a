package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Where a displayed value came from.
const (
	SourceDefault = "default"
	SourceFile    = "file"
	SourceEnv     = "env"
)

// KeyInfo describes a config key for display purposes.
type KeyInfo struct {
	Key    string
	EnvVar string
	Value  string
	Source string
}

// ShowAll lists every non-secret key of cfg with the layer that set it.
func ShowAll(cfg Config) []KeyInfo {
	return showWith(cfg, newFileBackend(configFilePath()))
}

func showWith(cfg Config, b ConfigBackend) []KeyInfo {
	var result []KeyInfo
	for _, s := range specs {
		if s.secret {
			continue
		}
		source := SourceDefault
		if _, ok, _ := b.GetString(s.key); ok {
			source = SourceFile
		}
		if os.Getenv(s.env) != "" {
			source = SourceEnv
		}
		result = append(result, KeyInfo{
			Key:    s.key,
			EnvVar: s.env,
			Value:  formatValue(s.extract(cfg)),
			Source: source,
		})
	}
	return result
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		if val == "" {
			return `""`
		}
		return val
	case time.Duration:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

// SetKey validates value against the key's type and writes it to the
// config file.
func SetKey(key, value string) error {
	return setKeyWith(newFileBackend(configFilePath()), key, value)
}

// UnsetKey removes key from the config file so its default applies again.
func UnsetKey(key string) error {
	return unsetKeyWith(newFileBackend(configFilePath()), key)
}

func setKeyWith(b ConfigBackend, key, value string) error {
	s, err := lookupSpec(key)
	if err != nil {
		return err
	}

	switch s.typ {
	case kInt:
		i, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %w", key, err)
		}
		return b.SetInt(key, i)
	case kBool:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %w", key, err)
		}
		return b.SetBool(key, v)
	case kDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration value for %s: %w", key, err)
		}
		return b.SetString(key, value)
	default:
		return b.SetString(key, value)
	}
}

func unsetKeyWith(b ConfigBackend, key string) error {
	if _, err := lookupSpec(key); err != nil {
		return err
	}
	return b.Delete(key)
}

func lookupSpec(key string) (keySpec, error) {
	for _, s := range specs {
		if s.key != key {
			continue
		}
		if s.secret {
			return keySpec{}, fmt.Errorf("cannot set secret %q via config; use environment variable %s", key, s.env)
		}
		return s, nil
	}
	return keySpec{}, fmt.Errorf("unknown config key: %q", key)
}

// ValidKeys returns the names of all keys that can be set in the file.
func ValidKeys() []string {
	var keys []string
	for _, s := range specs {
		if !s.secret {
			keys = append(keys, s.key)
		}
	}
	return keys
}
