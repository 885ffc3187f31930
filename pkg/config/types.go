package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent bazi configuration stored as config.toml
// in the .bazi/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version  int            `toml:"version"`
	Calendar CalendarConfig `toml:"calendar"`
	Chat     ChatConfig     `toml:"chat"`
	API      APIConfig      `toml:"api"`
	Log      LogConfig      `toml:"log"`
	Storage  StorageConfig  `toml:"storage"`
	Events   EventsConfig   `toml:"events"`
}

// CalendarConfig holds the lunar calendar lookup settings.
type CalendarConfig struct {
	Endpoint       string `toml:"endpoint,omitempty"`
	TimeoutSeconds int    `toml:"timeout_seconds,omitempty"`
}

// ChatConfig holds the chat completions settings shared by analyses and
// mind maps.
type ChatConfig struct {
	Endpoint       string  `toml:"endpoint,omitempty"`
	Backend        string  `toml:"backend,omitempty"`
	Model          string  `toml:"model,omitempty"`
	MindmapModel   string  `toml:"mindmap_model,omitempty"`
	Temperature    float64 `toml:"temperature,omitempty"`
	MaxTokens      int     `toml:"max_tokens,omitempty"`
	TimeoutSeconds int     `toml:"timeout_seconds,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`

	// MCP mounts the MCP endpoint at /mcp.
	MCP bool `toml:"mcp,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level,omitempty"`
	JSON  bool   `toml:"json,omitempty"`
	File  string `toml:"file,omitempty"`
}

// StorageConfig selects where completed readings are archived.
type StorageConfig struct {
	// Driver is one of "none", "memory", "sqlite" or "postgres".
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// EventsConfig configures the Kafka publisher for reading events. Publishing
// is disabled while Brokers is empty.
type EventsConfig struct {
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// BrokerList splits the comma separated broker addresses.
func (e EventsConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(e.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"calendar.endpoint": {
		get: func(c *Config) string { return c.Calendar.Endpoint },
		set: func(c *Config, v string) error { c.Calendar.Endpoint = v; return nil },
	},
	"calendar.timeout_seconds": {
		get: func(c *Config) string { return formatInt(c.Calendar.TimeoutSeconds) },
		set: func(c *Config, v string) error {
			return parseInt("calendar.timeout_seconds", v, &c.Calendar.TimeoutSeconds)
		},
	},
	"chat.endpoint": {
		get: func(c *Config) string { return c.Chat.Endpoint },
		set: func(c *Config, v string) error { c.Chat.Endpoint = v; return nil },
	},
	"chat.backend": {
		get: func(c *Config) string { return c.Chat.Backend },
		set: func(c *Config, v string) error {
			switch v {
			case "sse", "openai":
				c.Chat.Backend = v
				return nil
			default:
				return fmt.Errorf("invalid value for chat.backend: %q (available: sse, openai)", v)
			}
		},
	},
	"chat.model": {
		get: func(c *Config) string { return c.Chat.Model },
		set: func(c *Config, v string) error { c.Chat.Model = v; return nil },
	},
	"chat.mindmap_model": {
		get: func(c *Config) string { return c.Chat.MindmapModel },
		set: func(c *Config, v string) error { c.Chat.MindmapModel = v; return nil },
	},
	"chat.temperature": {
		get: func(c *Config) string { return strconv.FormatFloat(c.Chat.Temperature, 'g', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for chat.temperature: %w", err)
			}
			if f < 0 || f > 2 {
				return fmt.Errorf("invalid value for chat.temperature: %v is outside [0, 2]", f)
			}
			c.Chat.Temperature = f
			return nil
		},
	},
	"chat.max_tokens": {
		get: func(c *Config) string { return formatInt(c.Chat.MaxTokens) },
		set: func(c *Config, v string) error { return parseInt("chat.max_tokens", v, &c.Chat.MaxTokens) },
	},
	"chat.timeout_seconds": {
		get: func(c *Config) string { return formatInt(c.Chat.TimeoutSeconds) },
		set: func(c *Config, v string) error {
			return parseInt("chat.timeout_seconds", v, &c.Chat.TimeoutSeconds)
		},
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"api.mcp": {
		get: func(c *Config) string { return strconv.FormatBool(c.API.MCP) },
		set: func(c *Config, v string) error { return parseBool("api.mcp", v, &c.API.MCP) },
	},
	"log.level": {
		get: func(c *Config) string { return c.Log.Level },
		set: func(c *Config, v string) error { c.Log.Level = v; return nil },
	},
	"log.json": {
		get: func(c *Config) string { return strconv.FormatBool(c.Log.JSON) },
		set: func(c *Config, v string) error { return parseBool("log.json", v, &c.Log.JSON) },
	},
	"log.file": {
		get: func(c *Config) string { return c.Log.File },
		set: func(c *Config, v string) error { c.Log.File = v; return nil },
	},
	"storage.driver": {
		get: func(c *Config) string { return c.Storage.Driver },
		set: func(c *Config, v string) error {
			switch v {
			case "none", "memory", "sqlite", "postgres":
				c.Storage.Driver = v
				return nil
			default:
				return fmt.Errorf("invalid value for storage.driver: %q (available: none, memory, sqlite, postgres)", v)
			}
		},
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"events.brokers": {
		get: func(c *Config) string { return c.Events.Brokers },
		set: func(c *Config, v string) error { c.Events.Brokers = v; return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
}

func formatInt(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func parseInt(key, v string, dst *int) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if n < 0 {
		return fmt.Errorf("invalid value for %s: must not be negative", key)
	}
	*dst = n
	return nil
}

func parseBool(key, v string, dst *bool) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dst = b
	return nil
}
